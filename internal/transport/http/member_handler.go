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
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fitdesk/fitdesk/internal/member"
	"github.com/fitdesk/fitdesk/internal/scope"
)

// CreateMemberRequest represents member enrollment data
type CreateMemberRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// CreateMember enrolls a member at the caller's center
// @Summary Enroll Member
// @Description Enroll a new member at the caller's center
// @Tags Member
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMemberRequest true "Member Data"
// @Success 201 {object} member.Member
// @Failure 400 {object} map[string]string
// @Router /members [post]
func (h *Handler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.FullName == "" {
		respondError(w, http.StatusBadRequest, "email and full_name are required")
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create member")
		return
	}

	now := time.Now()
	m := &member.Member{
		ID:        id.String(),
		Email:     req.Email,
		FullName:  req.FullName,
		Status:    member.StatusInactive,
		JoinedAt:  now,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := scoped(r, h.members, h.auditLogger).Create(r.Context(), m)
	if err != nil {
		respondScopeError(w, err, "failed to create member")
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

// ListMembers lists the members of the caller's center
// @Summary List Members
// @Description List the members of the caller's center
// @Tags Member
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status"
// @Success 200 {object} map[string]any
// @Router /members [get]
func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	f := scope.Filter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		f.Fields = map[string]any{"status": status}
	}

	members, err := scoped(r, h.members, h.auditLogger).FindAll(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"members": members})
}

// GetMember retrieves one member of the caller's center
// @Summary Get Member
// @Description Retrieve one member of the caller's center
// @Tags Member
// @Produce json
// @Security BearerAuth
// @Param memberID path string true "Member ID"
// @Success 200 {object} member.Member
// @Failure 404 {object} map[string]string
// @Router /members/{memberID} [get]
func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	m, err := scoped(r, h.members, h.auditLogger).Find(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, member.ErrMemberNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get member")
		return
	}

	respondJSON(w, http.StatusOK, m)
}

// UpdateMemberRequest represents mutable member fields
type UpdateMemberRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	Status   *string `json:"status"`
}

// UpdateMember updates a member of the caller's center
func (h *Handler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := scoped(r, h.members, h.auditLogger).Update(r.Context(), chi.URLParam(r, "memberID"), func(m *member.Member) error {
		if req.Email != nil {
			m.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.FullName != nil {
			m.FullName = *req.FullName
		}
		if req.Status != nil {
			if *req.Status != member.StatusActive && *req.Status != member.StatusInactive {
				return errors.New("invalid member status")
			}
			m.Status = *req.Status
		}
		m.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		if errors.Is(err, member.ErrMemberNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondScopeError(w, err, "failed to update member")
		return
	}

	respondJSON(w, http.StatusOK, updated)
}

// DeleteMember removes a member of the caller's center
func (h *Handler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	err := scoped(r, h.members, h.auditLogger).Delete(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		if errors.Is(err, member.ErrMemberNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondScopeError(w, err, "failed to delete member")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondScopeError maps scope-layer failures onto HTTP statuses. Cross-tenant
// attempts read as not found so foreign records never confirm their existence.
func respondScopeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, scope.ErrCrossTenantViolation):
		respondError(w, http.StatusNotFound, "record not found")
	case errors.Is(err, scope.ErrNoTenantAvailable):
		respondError(w, http.StatusBadRequest, "no center context for this request")
	case errors.Is(err, scope.ErrRecordNotFound):
		respondError(w, http.StatusNotFound, "record not found")
	default:
		respondError(w, http.StatusInternalServerError, fallback)
	}
}
