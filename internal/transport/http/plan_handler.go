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
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitdesk/fitdesk/internal/plan"
	"github.com/fitdesk/fitdesk/internal/scope"
)

// CreatePlanRequest represents plan creation data
type CreatePlanRequest struct {
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	DurationDays int    `json:"duration_days"`
}

// CreatePlan creates a plan for the caller's center
// @Summary Create Plan
// @Description Create a membership plan at the caller's center
// @Tags Plan
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePlanRequest true "Plan Data"
// @Success 201 {object} plan.Plan
// @Failure 400 {object} map[string]string
// @Router /plans [post]
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.PriceCents < 0 || req.DurationDays <= 0 {
		respondError(w, http.StatusBadRequest, "name, a non-negative price and a positive duration are required")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create plan")
		return
	}

	now := time.Now()
	p := &plan.Plan{
		ID:           id.String(),
		Name:         req.Name,
		PriceCents:   req.PriceCents,
		DurationDays: req.DurationDays,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := scoped(r, h.plans, h.auditLogger).Create(r.Context(), p)
	if err != nil {
		respondScopeError(w, err, "failed to create plan")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// ListPlans lists the plans of the caller's center
// @Summary List Plans
// @Description List the membership plans of the caller's center
// @Tags Plan
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]any
// @Router /plans [get]
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	f := scope.Filter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	plans, err := scoped(r, h.plans, h.auditLogger).FindAll(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list plans")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

// GetPlan retrieves one plan of the caller's center
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := scoped(r, h.plans, h.auditLogger).Find(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, plan.ErrPlanNotFound) {
			respondError(w, http.StatusNotFound, "plan not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get plan")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// UpdatePlanRequest represents mutable plan fields
type UpdatePlanRequest struct {
	Name         *string `json:"name"`
	PriceCents   *int64  `json:"price_cents"`
	DurationDays *int    `json:"duration_days"`
}

// UpdatePlan updates a plan of the caller's center
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := scoped(r, h.plans, h.auditLogger).Update(r.Context(), chi.URLParam(r, "planID"), func(p *plan.Plan) error {
		if req.Name != nil {
			p.Name = *req.Name
		}
		if req.PriceCents != nil {
			if *req.PriceCents < 0 {
				return errors.New("price must be non-negative")
			}
			p.PriceCents = *req.PriceCents
		}
		if req.DurationDays != nil {
			if *req.DurationDays <= 0 {
				return errors.New("duration must be positive")
			}
			p.DurationDays = *req.DurationDays
		}
		p.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			respondError(w, http.StatusNotFound, "plan not found")
			return
		}
		respondScopeError(w, err, "failed to update plan")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeletePlan removes a plan of the caller's center
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	err := scoped(r, h.plans, h.auditLogger).Delete(r.Context(), chi.URLParam(r, "planID"))
	if err != nil {
		if errors.Is(err, plan.ErrPlanNotFound) {
			respondError(w, http.StatusNotFound, "plan not found")
			return
		}
		respondScopeError(w, err, "failed to delete plan")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
