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

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/secureshop/secureshop/internal/identity"
)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// AccountRepository implements identity.AccountRepository
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create creates a new account. The accounts_email_unique index arbitrates
// the concurrent find-or-create race on federated login; a loser sees
// identity.ErrAccountExists and retries as a lookup.
func (r *AccountRepository) Create(ctx context.Context, account *identity.Account) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, email, display_name, avatar_url, provider, role,
			password_hash, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		account.ID, account.Email, account.DisplayName, account.AvatarURL,
		account.Provider, string(account.Role), account.PasswordHash,
		account.Enabled, now, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return identity.ErrAccountExists
		}
		return fmt.Errorf("failed to insert account: %w", err)
	}

	account.CreatedAt = now
	account.UpdatedAt = now

	return nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*identity.Account, error) {
	return r.get(ctx, `WHERE id = $1 AND deleted_at IS NULL`, id)
}

// GetByEmail retrieves an account by normalized email
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	return r.get(ctx, `WHERE email = $1 AND deleted_at IS NULL`, email)
}

func (r *AccountRepository) get(ctx context.Context, where string, arg any) (*identity.Account, error) {
	var account identity.Account
	var role string
	var deletedAt sql.NullTime

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, email, display_name, avatar_url, provider, role,
			password_hash, enabled, created_at, updated_at, deleted_at
		FROM accounts
		`+where, arg).Scan(
		&account.ID, &account.Email, &account.DisplayName, &account.AvatarURL,
		&account.Provider, &role, &account.PasswordHash, &account.Enabled,
		&account.CreatedAt, &account.UpdatedAt, &deletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	account.Role = identity.Role(role)
	if deletedAt.Valid {
		account.DeletedAt = &deletedAt.Time
	}

	return &account, nil
}

// Update updates account information
func (r *AccountRepository) Update(ctx context.Context, account *identity.Account) error {
	now := time.Now()
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE accounts
		SET display_name = $2, avatar_url = $3, provider = $4, role = $5,
			password_hash = $6, enabled = $7, updated_at = $8
		WHERE id = $1 AND deleted_at IS NULL
	`,
		account.ID, account.DisplayName, account.AvatarURL, account.Provider,
		string(account.Role), account.PasswordHash, account.Enabled, now,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}

	account.UpdatedAt = now
	return nil
}

// Delete soft-deletes an account
func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE accounts SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return identity.ErrAccountNotFound
	}
	return nil
}
