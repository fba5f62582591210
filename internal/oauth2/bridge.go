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

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/secureshop/secureshop/internal/audit"
	"github.com/secureshop/secureshop/internal/identity"
)

// ProviderClient exchanges a provider callback code for the raw profile
// attribute mapping. One implementation per registered provider; this is
// the whole of the outbound provider surface, deliberately not a general
// OAuth2 client.
type ProviderClient interface {
	FetchProfile(ctx context.Context, code string) (map[string]any, error)
}

// TokenIssuer is the credential-minting dependency of the bridge.
type TokenIssuer interface {
	Issue(account *identity.Account) (string, error)
	IssueRefresh(account *identity.Account) (string, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

// LoginResult carries the reconciled account and freshly issued credentials.
type LoginResult struct {
	Account      *identity.Account
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // access token lifetime in seconds
}

// Bridge reconciles a federated-login profile onto a local account and
// hands off to the token service. It never surfaces an error past its own
// boundary other than the typed reasons in errors.go.
type Bridge struct {
	accounts    identity.AccountRepository
	tokens      TokenIssuer
	auditLogger audit.Logger
	frontendURL string
}

// NewBridge creates a new federated-login bridge
func NewBridge(accounts identity.AccountRepository, tokens TokenIssuer, auditLogger audit.Logger, frontendURL string) *Bridge {
	return &Bridge{
		accounts:    accounts,
		tokens:      tokens,
		auditLogger: auditLogger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

// Complete runs the reconciliation state machine for one federated login:
// extract attributes, require an email, find-or-create the account, issue
// tokens. Each step is a possible exit point; all exits are typed.
func (b *Bridge) Complete(ctx context.Context, provider string, attrs map[string]any) (*LoginResult, error) {
	email, _ := attrs["email"].(string)
	email = identity.NormalizeEmail(email)
	if email == "" {
		b.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeOAuthFailed,
			Resource: "oauth_login",
			Metadata: map[string]any{audit.AttrProvider: provider, audit.AttrReason: "missing_email"},
		})
		return nil, ErrMissingEmail
	}

	name, _ := attrs["name"].(string)
	avatar := ExtractAvatar(attrs)

	account, err := b.reconcile(ctx, provider, email, name, avatar)
	if err != nil {
		b.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeOAuthFailed,
			Resource: "oauth_login",
			Metadata: map[string]any{audit.AttrProvider: provider, audit.AttrReason: err.Error()},
		})
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	accessToken, err := b.tokens.Issue(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	refreshToken, err := b.tokens.IssueRefresh(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}

	b.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeOAuthLogin,
		ActorID:  account.ID,
		Resource: "oauth_login",
		Metadata: map[string]any{audit.AttrProvider: provider},
	})

	return &LoginResult{
		Account:      account,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(b.tokens.AccessTTL().Seconds()),
	}, nil
}

// reconcile finds the account for an email or creates one. Two concurrent
// first logins for the same email race here; the store's unique constraint
// on email settles it, and the loser retries as a lookup.
func (b *Bridge) reconcile(ctx context.Context, provider, email, name, avatar string) (*identity.Account, error) {
	account, err := b.accounts.GetByEmail(ctx, email)
	if errors.Is(err, identity.ErrAccountNotFound) {
		account, err = b.createAccount(ctx, provider, email, name, avatar)
	}
	if err != nil {
		return nil, err
	}

	if !account.Active() {
		return nil, identity.ErrAccountDisabled
	}

	// First-claim semantics: the first OAuth login sets the provider tag,
	// later logins from any provider leave it alone.
	if strings.TrimSpace(account.Provider) == "" {
		account.Provider = provider
		if err := b.accounts.Update(ctx, account); err != nil {
			return nil, err
		}
	}

	return account, nil
}

func (b *Bridge) createAccount(ctx context.Context, provider, email, name, avatar string) (*identity.Account, error) {
	displayName := name
	if displayName == "" {
		displayName = email
	}

	account := &identity.Account{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		AvatarURL:   avatar,
		Provider:    provider,
		Role:        identity.RoleUser,
		Enabled:     true,
	}

	err := b.accounts.Create(ctx, account)
	if errors.Is(err, identity.ErrAccountExists) {
		// Lost the create race; the concurrent login's row wins.
		return b.accounts.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, err
	}

	b.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeAccountCreated,
		ActorID:  account.ID,
		Resource: "account",
		Metadata: map[string]any{audit.AttrProvider: provider},
	})

	return account, nil
}

// SuccessRedirectURL builds the front-end redirect carrying the access
// token and its expiry.
func (b *Bridge) SuccessRedirectURL(result *LoginResult) string {
	return fmt.Sprintf("%s/oauth2/redirect?access_token=%s&expires_in=%d",
		b.frontendURL,
		url.QueryEscape(result.AccessToken),
		result.ExpiresIn,
	)
}

// ErrorRedirectURL builds the front-end redirect carrying a human-readable
// failure reason. Never a raw error, never a 5xx.
func (b *Bridge) ErrorRedirectURL(reason string) string {
	return fmt.Sprintf("%s/oauth2/redirect?error=%s", b.frontendURL, url.QueryEscape(reason))
}

// RefreshTTL exposes the refresh token lifetime for cookie construction.
func (b *Bridge) RefreshTTL() time.Duration {
	return b.tokens.RefreshTTL()
}
