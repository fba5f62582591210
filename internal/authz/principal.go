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

package authz

import (
	"strings"

	"github.com/secureshop/secureshop/internal/identity"
)

// Principal is the authenticated identity attached to a request. It is a
// view over an account, derived from validated token claims, and immutable
// after construction.
type Principal struct {
	AccountID     string
	Role          identity.Role
	Authenticated bool
}

// Anonymous is the unauthenticated principal. Every predicate denies it.
var Anonymous = Principal{}

// NewPrincipal builds a principal from validated token claims. The role
// string is normalized here, at the boundary, so the rest of the engine
// only ever sees the closed enum.
func NewPrincipal(accountID, role string) Principal {
	return Principal{
		AccountID:     accountID,
		Role:          NormalizeRole(role),
		Authenticated: accountID != "",
	}
}

// NormalizeRole maps an external role spelling onto the closed role enum.
// Both "ROLE_ADMIN" and "ADMIN" grant the admin role; tokens minted before
// the role prefix was dropped are still honored. Everything else is an
// ordinary user.
func NormalizeRole(role string) identity.Role {
	switch strings.ToUpper(strings.TrimSpace(role)) {
	case "ADMIN", "ROLE_ADMIN":
		return identity.RoleAdmin
	default:
		return identity.RoleUser
	}
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Authenticated && p.Role == identity.RoleAdmin
}
