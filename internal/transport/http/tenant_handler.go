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
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fitdesk/fitdesk/internal/identity"
	"github.com/fitdesk/fitdesk/internal/observability/logger"
	"github.com/fitdesk/fitdesk/internal/tenant"
)

// RegisterCenterRequest represents center registration data. The owner
// administrator account is created in the same flow, bound to the new center.
type RegisterCenterRequest struct {
	Name          string `json:"name"`
	RoutingKey    string `json:"routing_key"`
	OwnerEmail    string `json:"owner_email"`
	OwnerPassword string `json:"owner_password"`
}

// RegisterCenter claims a routing key, creates the center and provisions its
// owning administrator.
// @Summary Register Center
// @Description Claim a routing key, create the center and its owner account
// @Tags Center
// @Accept json
// @Produce json
// @Param request body RegisterCenterRequest true "Center Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /centers/register [post]
func (h *Handler) RegisterCenter(w http.ResponseWriter, r *http.Request) {
	var req RegisterCenterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerEmail == "" {
		respondError(w, http.StatusBadRequest, "owner email is required")
		return
	}

	t, err := h.registry.Register(r.Context(), req.Name, req.RoutingKey, "")
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrRoutingKeyTaken):
			respondError(w, http.StatusConflict, "routing key is already taken")
		case errors.Is(err, tenant.ErrRoutingKeyReserved), errors.Is(err, tenant.ErrRoutingKeyInvalid):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			slog.ErrorContext(r.Context(), "failed to register center",
				logger.Error(err),
				logger.RoutingKey(req.RoutingKey),
			)
			respondError(w, http.StatusInternalServerError, "failed to register center")
		}
		return
	}

	owner, err := h.identityService.Provision(r.Context(), req.OwnerEmail, req.OwnerPassword, t.ID, identity.RoleAdministrator, false, "")
	if err != nil {
		if errors.Is(err, identity.ErrPrincipalExists) {
			respondError(w, http.StatusConflict, "owner account already exists")
			return
		}
		slog.ErrorContext(r.Context(), "failed to provision center owner",
			logger.Error(err),
			logger.TenantID(t.ID),
		)
		respondError(w, http.StatusInternalServerError, "failed to provision owner")
		return
	}

	if err := h.registry.AssignOwner(r.Context(), t.ID, owner.ID); err != nil {
		slog.ErrorContext(r.Context(), "failed to assign center owner",
			logger.Error(err),
			logger.TenantID(t.ID),
		)
		respondError(w, http.StatusInternalServerError, "failed to register center")
		return
	}
	t.OwnerPrincipalID = owner.ID

	respondJSON(w, http.StatusCreated, map[string]any{
		"center": t,
		"owner": map[string]any{
			"id":    owner.ID,
			"email": owner.Email,
		},
	})
}

// CheckAvailability reports whether a routing key can still be claimed
// @Summary Check Routing Key Availability
// @Description Report whether a routing key can still be claimed
// @Tags Center
// @Produce json
// @Param key query string true "Routing key candidate"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /centers/availability [get]
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		respondError(w, http.StatusBadRequest, "key query parameter is required")
		return
	}

	available, err := h.registry.CheckAvailability(r.Context(), key)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to check availability")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"routing_key": tenant.NormalizeRoutingKey(key),
		"available":   available,
	})
}

// GetOwnCenter returns the center the caller owns
// @Summary My Center
// @Description Return the center owned by the authenticated principal
// @Tags Center
// @Produce json
// @Security BearerAuth
// @Success 200 {object} tenant.Tenant
// @Failure 404 {object} map[string]string
// @Router /centers/mine [get]
func (h *Handler) GetOwnCenter(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())

	t, err := h.registry.OwnedBy(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "no center owned by this account")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to look up center")
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// ChangeRoutingKeyRequest carries the new routing key
type ChangeRoutingKeyRequest struct {
	CenterID      string `json:"center_id"`
	NewRoutingKey string `json:"new_routing_key"`
}

// ChangeRoutingKey moves a center to a new subdomain. Owner only.
// @Summary Change Routing Key
// @Description Move a center to a new subdomain (owner only)
// @Tags Center
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangeRoutingKeyRequest true "New routing key"
// @Success 200 {object} tenant.Tenant
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /centers/routing-key [put]
func (h *Handler) ChangeRoutingKey(w http.ResponseWriter, r *http.Request) {
	var req ChangeRoutingKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p := PrincipalFromContext(r.Context())
	t, err := h.registry.ChangeRoutingKey(r.Context(), req.CenterID, p.ID, req.NewRoutingKey)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			respondError(w, http.StatusNotFound, "center not found")
		case errors.Is(err, tenant.ErrNotOwner):
			respondError(w, http.StatusForbidden, "only the center owner may change the routing key")
		case errors.Is(err, tenant.ErrRoutingKeyTaken):
			respondError(w, http.StatusConflict, "routing key is already taken")
		case errors.Is(err, tenant.ErrRoutingKeyReserved), errors.Is(err, tenant.ErrRoutingKeyInvalid):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, http.StatusInternalServerError, "failed to change routing key")
		}
		return
	}

	respondJSON(w, http.StatusOK, t)
}

// ListCenters lists all centers. Platform surface.
// @Summary List Centers
// @Description List all registered centers
// @Tags Platform
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]any
// @Router /platform/centers [get]
func (h *Handler) ListCenters(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	centers, err := h.registry.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list centers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"centers": centers})
}

// ActivateCenter re-activates a deactivated center
func (h *Handler) ActivateCenter(w http.ResponseWriter, r *http.Request) {
	h.setCenterActive(w, r, true)
}

// DeactivateCenter soft-deactivates a center. Records are retained and the
// center ID is never reused.
func (h *Handler) DeactivateCenter(w http.ResponseWriter, r *http.Request) {
	h.setCenterActive(w, r, false)
}

func (h *Handler) setCenterActive(w http.ResponseWriter, r *http.Request, active bool) {
	centerID := chi.URLParam(r, "centerID")
	actor := PrincipalFromContext(r.Context())

	if err := h.registry.SetActive(r.Context(), centerID, active, actor.ID); err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			respondError(w, http.StatusNotFound, "center not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update center")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"center_id": centerID,
		"active":    active,
	})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
