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
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/fitdesk/fitdesk/internal/member"
	"github.com/fitdesk/fitdesk/internal/scope"
)

// MemberStore implements scope.Store for members.
type MemberStore struct {
	db *DB
}

// NewMemberStore creates a new member store
func NewMemberStore(db *DB) *MemberStore {
	return &MemberStore{db: db}
}

// List lists members matching the filter. The tenant predicate comes from the
// scope layer and is applied whenever present.
func (s *MemberStore) List(ctx context.Context, f scope.Filter) ([]*member.Member, error) {
	query := `
		SELECT id, tenant_id, email, full_name, status, joined_at, created_at, updated_at
		FROM members`
	where, args := buildWhere(f, map[string]string{
		"status": "status",
		"email":  "email",
	})
	query += where + " ORDER BY created_at"
	query, args = applyPaging(query, args, f)

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	members := []*member.Member{}
	for rows.Next() {
		var m member.Member
		if err := rows.Scan(&m.ID, &m.TenantID, &m.Email, &m.FullName, &m.Status, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// Get retrieves a member by ID
func (s *MemberStore) Get(ctx context.Context, id string) (*member.Member, error) {
	var m member.Member
	err := s.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, email, full_name, status, joined_at, created_at, updated_at
		FROM members WHERE id = $1
	`, id).Scan(&m.ID, &m.TenantID, &m.Email, &m.FullName, &m.Status, &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, member.ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return &m, nil
}

// Insert inserts a member
func (s *MemberStore) Insert(ctx context.Context, m *member.Member) error {
	_, err := s.db.pool.Exec(ctx, `
		INSERT INTO members (id, tenant_id, email, full_name, status, joined_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.TenantID, m.Email, m.FullName, m.Status, m.JoinedAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// Update updates a member. When expectedTenantID is non-empty it joins the
// predicate so the ownership check and the write are one atomic statement.
func (s *MemberStore) Update(ctx context.Context, m *member.Member, expectedTenantID string) error {
	query := `
		UPDATE members SET email = $2, full_name = $3, status = $4, joined_at = $5, updated_at = $6
		WHERE id = $1`
	args := []any{m.ID, m.Email, m.FullName, m.Status, m.JoinedAt, m.UpdatedAt}
	if expectedTenantID != "" {
		query += " AND tenant_id = $7"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return member.ErrMemberNotFound
	}
	return nil
}

// Delete deletes a member
func (s *MemberStore) Delete(ctx context.Context, id, expectedTenantID string) error {
	query := `DELETE FROM members WHERE id = $1`
	args := []any{id}
	if expectedTenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, expectedTenantID)
	}

	result, err := s.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	if result.RowsAffected() == 0 {
		return member.ErrMemberNotFound
	}
	return nil
}

// buildWhere turns a scope filter into a WHERE clause. columns maps the
// filter field names a store supports onto column expressions; unknown fields
// are ignored rather than failing the query.
func buildWhere(f scope.Filter, columns map[string]string) (string, []any) {
	var conds []string
	var args []any

	if f.TenantID != "" {
		args = append(args, f.TenantID)
		conds = append(conds, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	for field, col := range columns {
		if v, ok := f.Fields[field]; ok {
			args = append(args, v)
			conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// applyPaging appends LIMIT/OFFSET when the filter sets them.
func applyPaging(query string, args []any, f scope.Filter) (string, []any) {
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}
