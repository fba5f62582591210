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

package token

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/secureshop/secureshop/internal/identity"
)

// Validation failures collapse to exactly two cases so callers cannot be
// used as a verification oracle: an expired-but-otherwise-valid token, and
// everything else.
var (
	ErrExpiredToken   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed token")
)

// Claims is the transient view over a validated token. Never persisted.
type Claims struct {
	SubjectID string
	Email     string
	Role      string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Refresh   bool
}

// Config holds token signing configuration
type Config struct {
	PrivateKeyFile string
	PublicKeyFile  string
	Issuer         string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
}

// Service issues and validates signed session credentials. The keypair is
// loaded once at construction and never mutated; all methods are safe for
// unrestricted concurrent use.
type Service struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewService creates a token service from PEM key files.
func NewService(cfg Config) (*Service, error) {
	privPEM, err := readFile(cfg.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	pubPEM, err := readFile(cfg.PublicKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}

	return NewServiceWithKey(privateKey, publicKey, cfg.Issuer, cfg.AccessTTL, cfg.RefreshTTL)
}

// NewServiceWithKey creates a token service from an in-memory keypair.
func NewServiceWithKey(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, issuer string, accessTTL, refreshTTL time.Duration) (*Service, error) {
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	if refreshTTL <= accessTTL {
		return nil, fmt.Errorf("refresh lifetime (%s) must exceed access lifetime (%s)", refreshTTL, accessTTL)
	}
	if publicKey == nil {
		publicKey = &privateKey.PublicKey
	}

	return &Service{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}, nil
}

// Issue generates a signed access token for an account.
func (s *Service) Issue(account *identity.Account) (string, error) {
	return s.sign(account, s.accessTTL, false)
}

// IssueRefresh generates a signed refresh token for an account.
func (s *Service) IssueRefresh(account *identity.Account) (string, error) {
	return s.sign(account, s.refreshTTL, true)
}

func (s *Service) sign(account *identity.Account, ttl time.Duration, refresh bool) (string, error) {
	now := time.Now()

	role := string(account.Role)
	if role == "" {
		role = string(identity.RoleUser)
	}

	claims := jwt.MapClaims{
		"iss":   s.issuer,
		"sub":   account.ID,
		"email": account.Email,
		"role":  role,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   uuid.NewString(),
	}
	if refresh {
		claims["type"] = "refresh"
	}

	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
}

// Validate verifies a token's signature, issuer, and expiry. An expired but
// otherwise well-formed token fails with ErrExpiredToken; any other defect
// fails with ErrMalformedToken.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return s.publicKey, nil
		},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	sub, _ := mapClaims["sub"].(string)
	if sub == "" {
		return nil, ErrMalformedToken
	}

	claims := &Claims{SubjectID: sub}
	claims.Email, _ = mapClaims["email"].(string)
	claims.Role, _ = mapClaims["role"].(string)
	claims.TokenID, _ = mapClaims["jti"].(string)
	if typ, _ := mapClaims["type"].(string); typ == "refresh" {
		claims.Refresh = true
	}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration {
	return s.accessTTL
}

// RefreshTTL returns the configured refresh token lifetime.
func (s *Service) RefreshTTL() time.Duration {
	return s.refreshTTL
}
