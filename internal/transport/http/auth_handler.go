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

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fitdesk/fitdesk/internal/identity"
	"github.com/fitdesk/fitdesk/internal/observability/logger"
)

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a principal and issues an access token
// @Summary Login
// @Description Authenticate with email and password and receive an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, p, err := h.identityService.Login(r.Context(), req.Email, req.Password, getIPAddress(r))
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		slog.ErrorContext(r.Context(), "login failed",
			logger.Error(err),
			logger.Email(req.Email),
		)
		respondError(w, http.StatusInternalServerError, "failed to authenticate")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"principal": map[string]any{
			"id":             p.ID,
			"email":          p.Email,
			"home_tenant_id": p.HomeTenantID,
			"role":           p.Role,
			"super_admin":    p.SuperAdmin,
		},
	})
}

// RefreshRequest carries the token to re-issue
type RefreshRequest struct {
	Token string `json:"token"`
}

// Refresh re-issues a still-valid access token
// @Summary Refresh Token
// @Description Exchange a still-valid access token for a fresh one
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Current token"
// @Success 200 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/refresh [post]
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, err := h.identityService.Refresh(r.Context(), req.Token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"access_token": token})
}

// GetCurrentPrincipal returns the authenticated principal
// @Summary Current Principal
// @Description Return the principal behind the presented token
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} identity.Principal
// @Failure 401 {object} map[string]string
// @Router /auth/me [get]
func (h *Handler) GetCurrentPrincipal(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	respondJSON(w, http.StatusOK, p)
}

// ProvisionPrincipalRequest represents principal provisioning data. Platform
// surface: a super administrator creates staff accounts for a center.
type ProvisionPrincipalRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	HomeTenantID string `json:"home_tenant_id"`
	Role         string `json:"role"`
	SuperAdmin   bool   `json:"super_admin"`
}

// ProvisionPrincipal creates a principal bound to its home center
// @Summary Provision Principal
// @Description Create a staff account bound to its home center
// @Tags Platform
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProvisionPrincipalRequest true "Principal Data"
// @Success 201 {object} identity.Principal
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /platform/principals [post]
func (h *Handler) ProvisionPrincipal(w http.ResponseWriter, r *http.Request) {
	var req ProvisionPrincipalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actor := PrincipalFromContext(r.Context())
	p, err := h.identityService.Provision(r.Context(), req.Email, req.Password, req.HomeTenantID, identity.Role(req.Role), req.SuperAdmin, actor.ID)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrPrincipalExists):
			respondError(w, http.StatusConflict, "principal already exists")
		case errors.Is(err, identity.ErrHomeTenantRequired), errors.Is(err, identity.ErrInvalidRole):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to provision principal",
				logger.Error(err),
				logger.Email(req.Email),
			)
			respondError(w, http.StatusInternalServerError, "failed to provision principal")
		}
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// ListCenterPrincipals lists the staff accounts of a center. Platform surface.
func (h *Handler) ListCenterPrincipals(w http.ResponseWriter, r *http.Request) {
	principals, err := h.identityService.ListByTenant(r.Context(), chi.URLParam(r, "centerID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list principals")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"principals": principals})
}
