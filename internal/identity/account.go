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
	"errors"
	"strings"
	"time"
)

// Domain errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
)

// Role is the closed set of roles an account can hold. External role
// spellings ("ROLE_ADMIN" vs "ADMIN") are normalized at the boundary,
// never here.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ProviderLocal marks accounts created through local registration.
const ProviderLocal = "local"

// Account represents a storefront account. It is created either on local
// registration or on first federated login for a given email.
//
// Provider is set at most once to a non-local value: the first successful
// OAuth login claims it, and later logins never overwrite it.
type Account struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarURL    string
	Provider     string
	Role         Role
	PasswordHash string
	Enabled      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Active reports whether the account may authenticate.
func (a *Account) Active() bool {
	return a.Enabled && a.DeletedAt == nil
}

// NormalizeEmail lowercases and trims an email address. Every lookup and
// every stored email goes through this, so the email uniqueness constraint
// is case-insensitive end to end.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountRepository defines the interface for account persistence
type AccountRepository interface {
	// Create stores a new account. Returns ErrAccountExists when another
	// account already holds the same email.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID
	GetByID(ctx context.Context, id string) (*Account, error)

	// GetByEmail retrieves an account by normalized email
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// Update updates account information
	Update(ctx context.Context, account *Account) error

	// Delete soft-deletes an account
	Delete(ctx context.Context, id string) error
}
