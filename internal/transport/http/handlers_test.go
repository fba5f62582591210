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

package http

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureshop/secureshop/internal/audit"
	"github.com/secureshop/secureshop/internal/authz"
	"github.com/secureshop/secureshop/internal/identity"
	"github.com/secureshop/secureshop/internal/oauth2"
	"github.com/secureshop/secureshop/internal/shop"
	"github.com/secureshop/secureshop/internal/token"
)

type memAccounts struct {
	accounts map[string]*identity.Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: make(map[string]*identity.Account)}
}

func (m *memAccounts) Create(ctx context.Context, account *identity.Account) error {
	for _, a := range m.accounts {
		if a.Email == account.Email {
			return identity.ErrAccountExists
		}
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *memAccounts) GetByID(ctx context.Context, id string) (*identity.Account, error) {
	a, ok := m.accounts[id]
	if !ok || a.DeletedAt != nil {
		return nil, identity.ErrAccountNotFound
	}
	return a, nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*identity.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email && a.DeletedAt == nil {
			return a, nil
		}
	}
	return nil, identity.ErrAccountNotFound
}

func (m *memAccounts) Update(ctx context.Context, account *identity.Account) error {
	if _, ok := m.accounts[account.ID]; !ok {
		return identity.ErrAccountNotFound
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *memAccounts) Delete(ctx context.Context, id string) error {
	a, ok := m.accounts[id]
	if !ok {
		return identity.ErrAccountNotFound
	}
	now := time.Now()
	a.DeletedAt = &now
	return nil
}

type memStore struct {
	orders     map[string]*shop.Order
	orderItems map[int64]*shop.OrderItem
	reviews    map[int64]*shop.Review
	warranties map[int64]*shop.WarrantyRequest
}

func newMemStore() *memStore {
	return &memStore{
		orders:     make(map[string]*shop.Order),
		orderItems: make(map[int64]*shop.OrderItem),
		reviews:    make(map[int64]*shop.Review),
		warranties: make(map[int64]*shop.WarrantyRequest),
	}
}

func (m *memStore) GetByID(ctx context.Context, id string) (*shop.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, shop.ErrOrderNotFound
	}
	return o, nil
}

type memItems struct{ s *memStore }

func (m memItems) GetByID(ctx context.Context, id int64) (*shop.OrderItem, error) {
	i, ok := m.s.orderItems[id]
	if !ok {
		return nil, shop.ErrOrderItemNotFound
	}
	return i, nil
}

type memReviews struct{ s *memStore }

func (m memReviews) GetByID(ctx context.Context, id int64) (*shop.Review, error) {
	r, ok := m.s.reviews[id]
	if !ok {
		return nil, shop.ErrReviewNotFound
	}
	return r, nil
}

func (m memReviews) Delete(ctx context.Context, id int64) error {
	if _, ok := m.s.reviews[id]; !ok {
		return shop.ErrReviewNotFound
	}
	delete(m.s.reviews, id)
	return nil
}

type memWarranties struct{ s *memStore }

func (m memWarranties) GetByID(ctx context.Context, id int64) (*shop.WarrantyRequest, error) {
	w, ok := m.s.warranties[id]
	if !ok {
		return nil, shop.ErrWarrantyRequestNotFound
	}
	return w, nil
}

// recordingAudit captures audit events for assertions.
type recordingAudit struct {
	events []audit.Event
}

func (r *recordingAudit) Log(ctx context.Context, event audit.Event) {
	r.events = append(r.events, event)
}

func (r *recordingAudit) hasEvent(eventType string) bool {
	for _, e := range r.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

type stubProvider struct {
	attrs map[string]any
	err   error
}

func (s stubProvider) FetchProfile(ctx context.Context, code string) (map[string]any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.attrs, nil
}

type testEnv struct {
	handler  *Handler
	router   http.Handler
	accounts *memAccounts
	store    *memStore
	tokens   *token.Service
	provider *stubProvider
	audit    *recordingAudit
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tokens, err := token.NewServiceWithKey(key, nil, "secureshop", 15*time.Minute, 168*time.Hour)
	require.NoError(t, err)

	accounts := newMemAccounts()
	store := newMemStore()
	auditLogger := &recordingAudit{}

	hasher := identity.NewPasswordHasher(1024, 1, 1, 16, 32)
	identityService := identity.NewService(accounts, hasher, auditLogger)
	resolver := identity.NewResolver(accounts)
	bridge := oauth2.NewBridge(accounts, tokens, auditLogger, "http://localhost:5173")
	engine := authz.NewEngine(store, memItems{store}, memReviews{store}, memWarranties{store})

	provider := &stubProvider{}
	h := NewHandler(
		identityService, resolver, tokens, bridge, engine,
		store, memItems{store}, memReviews{store}, memWarranties{store},
		auditLogger,
		map[string]oauth2.ProviderClient{"google": provider},
		false,
	)

	return &testEnv{
		handler:  h,
		router:   NewRouter(h, NewRateLimiter(1000, 1000)),
		accounts: accounts,
		store:    store,
		tokens:   tokens,
		provider: provider,
		audit:    auditLogger,
	}
}

// seedAccount inserts an account directly into the store and returns a
// valid access token for it.
func (e *testEnv) seedAccount(t *testing.T, id, email string, role identity.Role) (*identity.Account, string) {
	t.Helper()
	account := &identity.Account{
		ID:       id,
		Email:    email,
		Provider: identity.ProviderLocal,
		Role:     role,
		Enabled:  true,
	}
	require.NoError(t, e.accounts.Create(context.Background(), account))
	access, err := e.tokens.Issue(account)
	require.NoError(t, err)
	return account, access
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, prepare ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, p := range prepare {
		p(req)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func withBearer(tok string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	}
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":        "Shopper@Example.com",
		"password":     "correct-horse",
		"display_name": "Shopper",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "shopper@example.com", created["email"])

	rec = doJSON(t, env.router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "shopper@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["access_token"])
	assert.Equal(t, "Bearer", body["token_type"])
	assert.EqualValues(t, 900, body["expires_in"])

	cookie := refreshCookie(t, rec)
	require.NotNil(t, cookie, "login must set the refresh cookie")
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, int((168 * time.Hour).Seconds()), cookie.MaxAge)

	assert.True(t, env.audit.hasEvent(audit.TypeTokenIssued))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, refreshCookie(t, rec))
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)
	account, access := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)

	// No token
	rec := doJSON(t, env.router, http.MethodGet, "/api/v1/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token
	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/auth/me", nil, withBearer("garbage"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Refresh token presented as access token
	refresh, err := env.tokens.IssueRefresh(account)
	require.NoError(t, err)
	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/auth/me", nil, withBearer(refresh))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid access token
	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/auth/me", nil, withBearer(access))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "owner@example.com", body["email"])
	assert.Equal(t, account.ID, body["account_id"])
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	account, access := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)

	refresh, err := env.tokens.IssueRefresh(account)
	require.NoError(t, err)

	// No cookie
	rec := doJSON(t, env.router, http.MethodPost, "/api/v1/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Access token in the refresh cookie is rejected
	rec = doJSON(t, env.router, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: access})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid refresh cookie yields a fresh access token
	rec = doJSON(t, env.router, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	claims, err := env.tokens.Validate(body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.SubjectID)
	assert.False(t, claims.Refresh)

	// The refresh cookie is rotated on every renewal.
	rotated := refreshCookie(t, rec)
	require.NotNil(t, rotated)
	rotatedClaims, err := env.tokens.Validate(rotated.Value)
	require.NoError(t, err)
	assert.True(t, rotatedClaims.Refresh)
}

func TestRefresh_DisabledAccount(t *testing.T) {
	env := newTestEnv(t)
	account, _ := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)

	refresh, err := env.tokens.IssueRefresh(account)
	require.NoError(t, err)

	account.Enabled = false

	rec := doJSON(t, env.router, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefresh_SoftDeletedAccount(t *testing.T) {
	env := newTestEnv(t)
	account, access := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)

	refresh, err := env.tokens.IssueRefresh(account)
	require.NoError(t, err)

	require.NoError(t, env.accounts.Delete(context.Background(), account.ID))

	// Still-valid tokens stop working once the account is soft-deleted.
	rec := doJSON(t, env.router, http.MethodPost, "/api/v1/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: refreshCookieName, Value: refresh})
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/auth/me", nil, withBearer(access))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, env.router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "owner@example.com",
		"password": "anything",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookie(t *testing.T) {
	env := newTestEnv(t)

	rec := doJSON(t, env.router, http.MethodPost, "/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := refreshCookie(t, rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}

func TestDenialPayloadShape(t *testing.T) {
	env := newTestEnv(t)
	_, access := env.seedAccount(t, "9b2e8a10-0000-4000-8000-000000000001", "stranger@example.com", identity.RoleUser)
	env.store.orders["o1"] = &shop.Order{ID: "o1", UserID: "3fa85f64-5717-4562-b3fc-2c963f66afa6"}

	rec := doJSON(t, env.router, http.MethodGet, "/api/v1/orders/o1", nil, withBearer(access))
	require.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "FORBIDDEN", body["error"])
	assert.Equal(t, forbiddenMessage, body["message"])
	assert.Equal(t, "/api/v1/orders/o1", body["path"])

	_, err := time.Parse(time.RFC3339, body["timestamp"])
	assert.NoError(t, err)
}

func TestGetOrder_OwnerAndAdmin(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerTok := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)
	_, adminTok := env.seedAccount(t, "9b2e8a10-0000-4000-8000-000000000001", "admin@example.com", identity.RoleAdmin)
	env.store.orders["o1"] = &shop.Order{ID: "o1", UserID: owner.ID}

	rec := doJSON(t, env.router, http.MethodGet, "/api/v1/orders/o1", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/orders/o1", nil, withBearer(adminTok))
	assert.Equal(t, http.StatusOK, rec.Code)

	// A missing order denies for a user but is a plain 404 for an admin.
	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/orders/missing", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/orders/missing", nil, withBearer(adminTok))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrderItem_WalksToOrder(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerTok := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)
	_, strangerTok := env.seedAccount(t, "9b2e8a10-0000-4000-8000-000000000001", "stranger@example.com", identity.RoleUser)
	env.store.orders["o1"] = &shop.Order{ID: "o1", UserID: owner.ID}
	env.store.orderItems[10] = &shop.OrderItem{ID: 10, OrderID: "o1"}

	rec := doJSON(t, env.router, http.MethodGet, "/api/v1/order-items/10", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/order-items/10", nil, withBearer(strangerTok))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/order-items/not-a-number", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteReview(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerTok := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)
	_, strangerTok := env.seedAccount(t, "9b2e8a10-0000-4000-8000-000000000001", "stranger@example.com", identity.RoleUser)
	env.store.reviews[7] = &shop.Review{ID: 7, UserID: owner.ID}

	rec := doJSON(t, env.router, http.MethodDelete, "/api/v1/reviews/7", nil, withBearer(strangerTok))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, env.router, http.MethodDelete, "/api/v1/reviews/7", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Gone now; the fail-closed walk denies its former owner too.
	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/reviews/7", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGetWarrantyRequest_Chain(t *testing.T) {
	env := newTestEnv(t)
	owner, ownerTok := env.seedAccount(t, "3fa85f64-5717-4562-b3fc-2c963f66afa6", "owner@example.com", identity.RoleUser)
	env.store.orders["o1"] = &shop.Order{ID: "o1", UserID: owner.ID}
	env.store.orderItems[10] = &shop.OrderItem{ID: 10, OrderID: "o1"}
	env.store.warranties[1] = &shop.WarrantyRequest{ID: 1, OrderItemID: 10}
	env.store.warranties[2] = &shop.WarrantyRequest{ID: 2, OrderItemID: 99}

	rec := doJSON(t, env.router, http.MethodGet, "/api/v1/warranty-requests/1", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Broken chain denies even the real owner.
	rec = doJSON(t, env.router, http.MethodGet, "/api/v1/warranty-requests/2", nil, withBearer(ownerTok))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestOAuth2Callback_Success(t *testing.T) {
	env := newTestEnv(t)
	env.provider.attrs = map[string]any{
		"email":   "oauth@example.com",
		"name":    "OAuth User",
		"picture": "http://cdn.example.com/a.png",
	}

	rec := doJSON(t, env.router, http.MethodGet, "/oauth2/callback/google?code=abc", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "http://localhost:5173/oauth2/redirect?access_token=")
	assert.Contains(t, loc, "expires_in=900")

	cookie := refreshCookie(t, rec)
	require.NotNil(t, cookie, "callback must set the refresh cookie")
	assert.True(t, cookie.HttpOnly)

	created, err := env.accounts.GetByEmail(context.Background(), "oauth@example.com")
	require.NoError(t, err)
	assert.Equal(t, "google", created.Provider)
	assert.Equal(t, "http://cdn.example.com/a.png", created.AvatarURL)
}

func TestOAuth2Callback_MissingEmail(t *testing.T) {
	env := newTestEnv(t)
	env.provider.attrs = map[string]any{"name": "No Email"}

	rec := doJSON(t, env.router, http.MethodGet, "/oauth2/callback/google?code=abc", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://localhost:5173/oauth2/redirect?error=No+email+provided+by+OAuth+provider",
		rec.Header().Get("Location"))
	assert.Nil(t, refreshCookie(t, rec))
}

func TestOAuth2Callback_Failures(t *testing.T) {
	env := newTestEnv(t)
	errorRedirect := "http://localhost:5173/oauth2/redirect?error=Authentication+failed"

	// Unknown provider
	rec := doJSON(t, env.router, http.MethodGet, "/oauth2/callback/github?code=abc", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, errorRedirect, rec.Header().Get("Location"))

	// Provider-reported error
	rec = doJSON(t, env.router, http.MethodGet, "/oauth2/callback/google?error=access_denied", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, errorRedirect, rec.Header().Get("Location"))

	// Missing code
	rec = doJSON(t, env.router, http.MethodGet, "/oauth2/callback/google", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, errorRedirect, rec.Header().Get("Location"))

	// Profile fetch failure
	env.provider.err = errors.New("provider unavailable")
	rec = doJSON(t, env.router, http.MethodGet, "/oauth2/callback/google?code=abc", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, errorRedirect, rec.Header().Get("Location"))
}
