// Copyright 2026 The SecureShop Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package identity

import (
	"context"

	"github.com/google/uuid"
)

// Resolver resolves a caller-supplied identifier to an account. A validated
// token carries the account id as its subject, but login-style entry points
// supply an email; the same resolver serves both without the caller knowing
// which shape it holds.
type Resolver struct {
	repo AccountRepository
}

// NewResolver creates a new identifier resolver
func NewResolver(repo AccountRepository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve looks up an account by id when the identifier parses as a UUID,
// and by email otherwise. The dispatch is a parse attempt with a fallback,
// never exception-driven control flow: a string that is neither a UUID nor
// a known email falls through to the email lookup and fails with
// ErrAccountNotFound.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Account, error) {
	// uuid.Parse also accepts urn: and braced forms; only the canonical
	// 36-character shape counts as an id here.
	if len(identifier) == 36 {
		if id, err := uuid.Parse(identifier); err == nil {
			return r.repo.GetByID(ctx, id.String())
		}
	}
	return r.repo.GetByEmail(ctx, NormalizeEmail(identifier))
}
