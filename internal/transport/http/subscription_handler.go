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
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fitdesk/fitdesk/internal/member"
	"github.com/fitdesk/fitdesk/internal/plan"
	"github.com/fitdesk/fitdesk/internal/scope"
	"github.com/fitdesk/fitdesk/internal/subscription"
)

// CreateSubscriptionRequest represents subscription creation data
type CreateSubscriptionRequest struct {
	MemberID  string    `json:"member_id"`
	PlanID    string    `json:"plan_id"`
	StartDate time.Time `json:"start_date"`
}

// CreateSubscription creates a pending subscription for a member on a plan
// @Summary Create Subscription
// @Description Create a pending subscription for a member on a plan
// @Tags Subscription
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateSubscriptionRequest true "Subscription Data"
// @Success 201 {object} subscription.Subscription
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /subscriptions [post]
func (h *Handler) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MemberID == "" || req.PlanID == "" {
		respondError(w, http.StatusBadRequest, "member_id and plan_id are required")
		return
	}
	if req.StartDate.IsZero() {
		req.StartDate = time.Now()
	}

	// The member must be visible inside the caller's tenant before anything
	// is created on their behalf.
	if _, err := scoped(r, h.members, h.auditLogger).Find(r.Context(), req.MemberID); err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, member.ErrMemberNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}
	if _, err := scoped(r, h.plans, h.auditLogger).Find(r.Context(), req.PlanID); err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, plan.ErrPlanNotFound) {
			respondError(w, http.StatusNotFound, "plan not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create subscription")
		return
	}

	sub, err := h.subscriptionService.Create(r.Context(), scoped(r, h.subscriptions, h.auditLogger), req.MemberID, req.PlanID, req.StartDate)
	if err != nil {
		respondScopeError(w, err, "failed to create subscription")
		return
	}

	respondJSON(w, http.StatusCreated, sub)
}

// ListSubscriptions lists the subscriptions of the caller's center
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	f := scope.Filter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	fields := map[string]any{}
	if status := r.URL.Query().Get("status"); status != "" {
		fields["status"] = status
	}
	if memberID := r.URL.Query().Get("member_id"); memberID != "" {
		fields["member_id"] = memberID
	}
	if len(fields) > 0 {
		f.Fields = fields
	}

	subs, err := scoped(r, h.subscriptions, h.auditLogger).FindAll(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"subscriptions": subs})
}

// GetSubscription retrieves one subscription of the caller's center
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := scoped(r, h.subscriptions, h.auditLogger).Find(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, subscription.ErrSubscriptionNotFound) {
			respondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get subscription")
		return
	}

	respondJSON(w, http.StatusOK, sub)
}

// ActivateSubscription moves a pending subscription to active
// @Summary Activate Subscription
// @Description Activate a pending subscription and promote its member
// @Tags Subscription
// @Produce json
// @Security BearerAuth
// @Param subscriptionID path string true "Subscription ID"
// @Success 200 {object} subscription.Subscription
// @Failure 409 {object} map[string]string
// @Router /subscriptions/{subscriptionID}/activate [post]
func (h *Handler) ActivateSubscription(w http.ResponseWriter, r *http.Request) {
	h.transitionSubscription(w, r, h.subscriptionService.Activate)
}

// CancelSubscription terminates a pending or active subscription
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	h.transitionSubscription(w, r, h.subscriptionService.Cancel)
}

func (h *Handler) transitionSubscription(w http.ResponseWriter, r *http.Request, transition func(ctx context.Context, sub *subscription.Subscription) error) {
	sub, err := scoped(r, h.subscriptions, h.auditLogger).Find(r.Context(), chi.URLParam(r, "subscriptionID"))
	if err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, subscription.ErrSubscriptionNotFound) {
			respondError(w, http.StatusNotFound, "subscription not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load subscription")
		return
	}

	if err := transition(r.Context(), sub); err != nil {
		switch {
		case errors.Is(err, subscription.ErrInvalidTransition):
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, subscription.ErrTenantConsistency):
			respondError(w, http.StatusInternalServerError, "subscription records are inconsistent")
		default:
			respondError(w, http.StatusInternalServerError, "failed to update subscription")
		}
		return
	}

	respondJSON(w, http.StatusOK, sub)
}
