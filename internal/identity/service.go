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
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/secureshop/secureshop/internal/audit"
)

// Service provides account registration and local authentication
type Service struct {
	repo        AccountRepository
	hasher      *PasswordHasher
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(repo AccountRepository, hasher *PasswordHasher, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		auditLogger: auditLogger,
	}
}

// Register creates a local account with a password credential.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (*Account, error) {
	email = NormalizeEmail(email)
	if !isValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if displayName == "" {
		displayName = email
	}

	account := &Account{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		Provider:     ProviderLocal,
		Role:         RoleUser,
		PasswordHash: passwordHash,
		Enabled:      true,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountCreated,
		ActorID:  account.ID,
		Resource: "account",
		Metadata: map[string]any{"provider": ProviderLocal},
	})

	return account, nil
}

// Authenticate authenticates an account with email and password.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	email = NormalizeEmail(email)

	account, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: email,
			Metadata: map[string]any{audit.AttrReason: "account_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	if !account.Active() {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  account.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "account_disabled"},
		})
		return nil, ErrAccountDisabled
	}

	// OAuth-only accounts have no password credential.
	if account.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil || !valid {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  account.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "bad_password"},
		})
		return nil, ErrInvalidCredentials
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  account.ID,
		Resource: "login",
	})

	return account, nil
}

func isValidEmail(email string) bool {
	return len(email) > 3 && len(email) < 255 && strings.Contains(email, "@")
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
