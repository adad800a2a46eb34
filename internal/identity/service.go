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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fitdesk/fitdesk/internal/audit"
)

// Service provides principal management and authentication business logic
type Service struct {
	repo        Repository
	verifier    CredentialVerifier
	registrar   CredentialRegistrar
	tokens      *TokenIssuer
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(repo Repository, verifier CredentialVerifier, registrar CredentialRegistrar, tokens *TokenIssuer, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		verifier:    verifier,
		registrar:   registrar,
		tokens:      tokens,
		auditLogger: auditLogger,
	}
}

// Provision creates a principal. Non-super principals must name their home
// tenant here; it can never be changed afterwards. Super administrators must
// not carry one.
func (s *Service) Provision(ctx context.Context, email, password, homeTenantID string, role Role, superAdmin bool, actorID string) (*Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}
	if !superAdmin && homeTenantID == "" {
		return nil, ErrHomeTenantRequired
	}
	if superAdmin && homeTenantID != "" {
		return nil, fmt.Errorf("super administrators are not bound to a center")
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrPrincipalExists
	} else if !errors.Is(err, ErrPrincipalNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate principal id: %w", err)
	}

	now := time.Now()
	p := &Principal{
		ID:           id.String(),
		Email:        email,
		HomeTenantID: homeTenantID,
		SuperAdmin:   superAdmin,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create principal: %w", err)
	}

	if password != "" {
		if err := s.registrar.Register(ctx, p.ID, password); err != nil {
			return nil, fmt.Errorf("failed to register credentials: %w", err)
		}
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePrincipalProvisioned,
		TenantID: homeTenantID,
		ActorID:  actorID,
		Resource: p.ID,
		Metadata: map[string]any{"role": string(role), "super_admin": superAdmin},
	})

	return p, nil
}

// Login authenticates a principal and issues an access token.
func (s *Service) Login(ctx context.Context, email, password, ipAddr string) (string, *Principal, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	p, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			s.auditLogger.Log(ctx, audit.Event{
				Type:      audit.TypeLoginFailed,
				IPAddress: ipAddr,
				Metadata:  map[string]any{"email": email, "reason": "unknown principal"},
			})
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to look up principal: %w", err)
	}

	if err := s.verifier.Verify(ctx, p.ID, password); err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:      audit.TypeLoginFailed,
			TenantID:  p.HomeTenantID,
			ActorID:   p.ID,
			IPAddress: ipAddr,
			Metadata:  map[string]any{"reason": "credential verification failed"},
		})
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(p)
	if err != nil {
		return "", nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeLoginSuccess,
		TenantID:  p.HomeTenantID,
		ActorID:   p.ID,
		IPAddress: ipAddr,
	})

	return token, p, nil
}

// Refresh re-issues a token for a still-valid one.
func (s *Service) Refresh(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return "", err
	}

	// Re-read the principal: a token must not outlive a role change.
	p, err := s.repo.GetByID(ctx, claims.Subject)
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(p)
}

// Authenticate validates a bearer token and returns the principal it carries.
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*Principal, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}
	return claims.Principal(), nil
}

// GetByID retrieves a principal by ID.
func (s *Service) GetByID(ctx context.Context, id string) (*Principal, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByTenant lists the principals provisioned into a center.
func (s *Service) ListByTenant(ctx context.Context, tenantID string) ([]*Principal, error) {
	return s.repo.ListByTenant(ctx, tenantID)
}
