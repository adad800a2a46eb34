// Copyright 2026 The FitDesk Authors
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
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the principal's identity inside an access token. The home
// tenant travels in the token so the access guard can decide without a
// database round trip.
type Claims struct {
	Email        string `json:"email"`
	HomeTenantID string `json:"home_tenant_id,omitempty"`
	Role         string `json:"role"`
	SuperAdmin   bool   `json:"super_admin,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and validates access tokens
type TokenIssuer struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
}

// NewTokenIssuer creates a token issuer with an HMAC signing secret.
func NewTokenIssuer(secret []byte, issuer string, lifetime time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, lifetime: lifetime}
}

// Issue creates a signed access token for the principal.
func (t *TokenIssuer) Issue(p *Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:        p.Email,
		HomeTenantID: p.HomeTenantID,
		Role:         string(p.Role),
		SuperAdmin:   p.SuperAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims.
func (t *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Principal reconstructs the authenticated principal from token claims.
func (c *Claims) Principal() *Principal {
	return &Principal{
		ID:           c.Subject,
		Email:        c.Email,
		HomeTenantID: c.HomeTenantID,
		SuperAdmin:   c.SuperAdmin,
		Role:         Role(c.Role),
	}
}
