package token

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secureshop/secureshop/internal/identity"
)

func newTestService(t *testing.T) (*Service, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	svc, err := NewServiceWithKey(key, nil, "secureshop-test", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	return svc, key
}

func testAccount() *identity.Account {
	return &identity.Account{
		ID:      "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		Email:   "user@example.com",
		Role:    identity.RoleUser,
		Enabled: true,
	}
}

func TestToken_IssueValidateRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	account := testAccount()

	tokenString, err := svc.Issue(account)
	require.NoError(t, err)

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)

	assert.Equal(t, account.ID, claims.SubjectID)
	assert.Equal(t, "USER", claims.Role)
	assert.Equal(t, account.Email, claims.Email)
	assert.False(t, claims.Refresh)
	assert.NotEmpty(t, claims.TokenID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt, 5*time.Second)
}

func TestToken_RefreshCarriesTypeClaim(t *testing.T) {
	svc, _ := newTestService(t)

	tokenString, err := svc.IssueRefresh(testAccount())
	require.NoError(t, err)

	claims, err := svc.Validate(tokenString)
	require.NoError(t, err)

	assert.True(t, claims.Refresh)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), claims.ExpiresAt, 5*time.Second)
}

func TestToken_ExpiredFailsWithExpiredToken(t *testing.T) {
	svc, key := newTestService(t)

	// Sign an already-expired token with the service's own key.
	now := time.Now()
	expired := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": "secureshop-test",
		"sub": "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		"iat": now.Add(-time.Hour).Unix(),
		"exp": now.Add(-time.Minute).Unix(),
	})
	tokenString, err := expired.SignedString(key)
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestToken_TamperedSignatureFailsWithMalformedToken(t *testing.T) {
	svc, _ := newTestService(t)

	tokenString, err := svc.Issue(testAccount())
	require.NoError(t, err)

	// Flip the last character of the signature.
	tampered := tokenString[:len(tokenString)-1]
	if tokenString[len(tokenString)-1] == 'A' {
		tampered += "B"
	} else {
		tampered += "A"
	}

	_, err = svc.Validate(tampered)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestToken_ForeignKeyFailsWithMalformedToken(t *testing.T) {
	svc, _ := newTestService(t)
	other, _ := newTestService(t)

	tokenString, err := other.Issue(testAccount())
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestToken_WrongIssuerFailsWithMalformedToken(t *testing.T) {
	svc, key := newTestService(t)

	now := time.Now()
	foreign := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss": "someone-else",
		"sub": "3fa85f64-5717-4562-b3fc-2c963f66afa6",
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	})
	tokenString, err := foreign.SignedString(key)
	require.NoError(t, err)

	_, err = svc.Validate(tokenString)
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestToken_GarbageFailsWithMalformedToken(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestToken_RefreshLifetimeMustExceedAccess(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	_, err = NewServiceWithKey(key, nil, "secureshop-test", time.Hour, time.Hour)
	assert.Error(t, err)

	_, err = NewServiceWithKey(key, nil, "secureshop-test", time.Hour, time.Minute)
	assert.Error(t, err)
}
