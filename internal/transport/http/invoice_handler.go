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

	"github.com/fitdesk/fitdesk/internal/invoice"
	"github.com/fitdesk/fitdesk/internal/member"
	"github.com/fitdesk/fitdesk/internal/observability/logger"
	"github.com/fitdesk/fitdesk/internal/scope"
)

// IssueInvoiceRequest represents invoice issuance data
type IssueInvoiceRequest struct {
	MemberID    string `json:"member_id"`
	AmountCents int64  `json:"amount_cents"`
}

// IssueInvoice issues an invoice for a member of the caller's center. The
// invoice number is allocated atomically per (center, year).
// @Summary Issue Invoice
// @Description Issue an invoice with an atomically allocated number
// @Tags Invoice
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body IssueInvoiceRequest true "Invoice Data"
// @Success 201 {object} invoice.Invoice
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /invoices [post]
func (h *Handler) IssueInvoice(w http.ResponseWriter, r *http.Request) {
	var req IssueInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.MemberID == "" || req.AmountCents <= 0 {
		respondError(w, http.StatusBadRequest, "member_id and a positive amount_cents are required")
		return
	}

	if _, err := scoped(r, h.members, h.auditLogger).Find(r.Context(), req.MemberID); err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, member.ErrMemberNotFound) {
			respondError(w, http.StatusNotFound, "member not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to issue invoice")
		return
	}

	inv, err := h.invoiceService.Issue(r.Context(), scoped(r, h.invoices, h.auditLogger), req.MemberID, req.AmountCents)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to issue invoice",
			logger.Error(err),
			logger.RecordID(req.MemberID),
		)
		respondScopeError(w, err, "failed to issue invoice")
		return
	}

	respondJSON(w, http.StatusCreated, inv)
}

// ListInvoices lists the invoices of the caller's center
// @Summary List Invoices
// @Description List the invoices of the caller's center
// @Tags Invoice
// @Produce json
// @Security BearerAuth
// @Param member_id query string false "Filter by member"
// @Param period query string false "Filter by allocation period"
// @Success 200 {object} map[string]any
// @Router /invoices [get]
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	f := scope.Filter{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	fields := map[string]any{}
	if memberID := r.URL.Query().Get("member_id"); memberID != "" {
		fields["member_id"] = memberID
	}
	if period := r.URL.Query().Get("period"); period != "" {
		fields["period_key"] = period
	}
	if len(fields) > 0 {
		f.Fields = fields
	}

	invoices, err := scoped(r, h.invoices, h.auditLogger).FindAll(r.Context(), f)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list invoices")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

// GetInvoice retrieves one invoice of the caller's center
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := scoped(r, h.invoices, h.auditLogger).Find(r.Context(), chi.URLParam(r, "invoiceID"))
	if err != nil {
		if errors.Is(err, scope.ErrRecordNotFound) || errors.Is(err, invoice.ErrInvoiceNotFound) {
			respondError(w, http.StatusNotFound, "invoice not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to get invoice")
		return
	}

	respondJSON(w, http.StatusOK, inv)
}
