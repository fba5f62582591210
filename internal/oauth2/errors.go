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

package oauth2

import "errors"

// Domain errors. Nothing past the login boundary ever sees these as raw
// errors; the transport layer folds every failure into an error redirect.
var (
	ErrMissingEmail         = errors.New("no email provided by oauth provider")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrUnknownProvider      = errors.New("unknown oauth provider")
)

// Client-visible failure reasons carried in the redirect query parameter.
const (
	ReasonMissingEmail = "No email provided by OAuth provider"
	ReasonAuthFailed   = "Authentication failed"
)
