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

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fitdesk/fitdesk/internal/invoice"
	"github.com/fitdesk/fitdesk/internal/scope"
	"github.com/fitdesk/fitdesk/internal/sequence"
)

// InvoiceStore implements scope.Store for invoices. Insert allocates the
// invoice number: the read-max-then-write step runs inside one transaction
// under a per-(tenant, period) advisory lock, so two concurrent issuances for
// the same pair serialize instead of colliding.
type InvoiceStore struct {
	db *DB
}

// NewInvoiceStore creates a new invoice store
func NewInvoiceStore(db *DB) *InvoiceStore {
	return &InvoiceStore{db: db}
}

// List lists invoices matching the filter
func (s *InvoiceStore) List(ctx context.Context, f scope.Filter) ([]*invoice.Invoice, error) {
	query := `
		SELECT id, tenant_id, member_id, number, period_key, amount_cents, issued_at, created_at
		FROM invoices`
	where, args := buildWhere(f, map[string]string{
		"member_id":  "member_id",
		"period_key": "period_key",
	})
	query += where + " ORDER BY created_at"
	query, args = applyPaging(query, args, f)

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []*invoice.Invoice{}
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.Scan(&inv.ID, &inv.TenantID, &inv.MemberID, &inv.Number, &inv.PeriodKey, &inv.AmountCents, &inv.IssuedAt, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, &inv)
	}
	return invoices, rows.Err()
}

// Get retrieves an invoice by ID
func (s *InvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, member_id, number, period_key, amount_cents, issued_at, created_at
		FROM invoices WHERE id = $1
	`, id).Scan(&inv.ID, &inv.TenantID, &inv.MemberID, &inv.Number, &inv.PeriodKey, &inv.AmountCents, &inv.IssuedAt, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return &inv, nil
}

// Insert assigns the next number for (tenant, period) and persists the
// invoice in the same transaction. Contention surfaces as
// sequence.ErrAllocationConflict; callers retry the whole issuance.
func (s *InvoiceStore) Insert(ctx context.Context, inv *invoice.Invoice) error {
	tx, err := s.db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Transaction-scoped lock on the allocation pair. Released at commit or
	// rollback, never held across requests.
	lockKey := inv.TenantID + "/" + inv.PeriodKey
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, lockKey); err != nil {
		return fmt.Errorf("failed to acquire allocation lock: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT number FROM invoices WHERE tenant_id = $1 AND period_key = $2
	`, inv.TenantID, inv.PeriodKey)
	if err != nil {
		return fmt.Errorf("failed to read existing numbers: %w", err)
	}
	var existing []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan invoice number: %w", err)
		}
		existing = append(existing, n)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read existing numbers: %w", err)
	}

	ordinal := sequence.NextOrdinal(existing, invoice.NumberPrefix, inv.PeriodKey)
	inv.Number = sequence.Format(invoice.NumberPrefix, inv.PeriodKey, ordinal)

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices (id, tenant_id, member_id, number, period_key, amount_cents, issued_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.TenantID, inv.MemberID, inv.Number, inv.PeriodKey, inv.AmountCents, inv.IssuedAt, inv.CreatedAt)
	if err != nil {
		if isAllocationConflict(err) {
			return sequence.ErrAllocationConflict
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if isAllocationConflict(err) {
			return sequence.ErrAllocationConflict
		}
		return fmt.Errorf("failed to commit invoice: %w", err)
	}
	return nil
}

// Update rewrites invoice metadata. The number and period are allocation
// output and are deliberately not updatable.
func (s *InvoiceStore) Update(ctx context.Context, inv *invoice.Invoice, expectedTenantID string) error {
	query := `
		UPDATE invoices SET member_id = $2, amount_cents = $3, issued_at = $4
		WHERE id = $1`
	args := []any{inv.ID, inv.MemberID, inv.AmountCents, inv.IssuedAt}
	if expectedTenantID != "" {
		query += " AND tenant_id = $5"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return invoice.ErrInvoiceNotFound
	}
	return nil
}

// Delete deletes an invoice
func (s *InvoiceStore) Delete(ctx context.Context, id, expectedTenantID string) error {
	query := `DELETE FROM invoices WHERE id = $1`
	args := []any{id}
	if expectedTenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if result.RowsAffected() == 0 {
		return invoice.ErrInvoiceNotFound
	}
	return nil
}

// isAllocationConflict recognizes the two ways concurrent allocation loses a
// race: a serialization failure, or the (tenant_id, number) unique backstop.
func isAllocationConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "23505"
}
