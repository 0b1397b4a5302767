package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

type ApprovalRepo struct {
	db *PostgresDB
}

func NewApprovalRepo(db *PostgresDB) *ApprovalRepo {
	return &ApprovalRepo{db: db}
}

// Upsert writes the approval's current state. The same row is written
// once when the approval is enqueued and again when it resolves.
func (r *ApprovalRepo) Upsert(ctx context.Context, approval *domain.PendingApproval) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO approvals (
			id, kind, requested_by, description, payload, impact,
			status, created_at, expires_at, resolved_at, resolved_by, reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			resolved_at = EXCLUDED.resolved_at,
			resolved_by = EXCLUDED.resolved_by,
			reason = EXCLUDED.reason
	`, approval.ID, approval.Kind, approval.RequestedBy, approval.Description,
		[]byte(approval.Payload), approval.Impact,
		approval.Status, approval.CreatedAt, approval.ExpiresAt,
		approval.ResolvedAt, approval.ResolvedBy, approval.Reason)

	if err != nil {
		return fmt.Errorf("upsert approval: %w", err)
	}

	return nil
}

func (r *ApprovalRepo) GetByID(ctx context.Context, id string) (*domain.PendingApproval, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, kind, requested_by, description, payload, impact,
			status, created_at, expires_at, resolved_at, resolved_by, reason
		FROM approvals
		WHERE id = $1
	`, id)

	var approval domain.PendingApproval
	var payload []byte
	err := row.Scan(
		&approval.ID, &approval.Kind, &approval.RequestedBy, &approval.Description,
		&payload, &approval.Impact,
		&approval.Status, &approval.CreatedAt, &approval.ExpiresAt,
		&approval.ResolvedAt, &approval.ResolvedBy, &approval.Reason,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("approval not found")
		}
		return nil, fmt.Errorf("scan approval: %w", err)
	}
	approval.Payload = payload

	return &approval, nil
}

// ListByStatus returns approvals in a given state, newest first. An
// empty status returns everything.
func (r *ApprovalRepo) ListByStatus(ctx context.Context, status domain.ApprovalStatus, limit, offset int) ([]*domain.PendingApproval, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, kind, requested_by, description, payload, impact,
			status, created_at, expires_at, resolved_at, resolved_by, reason
		FROM approvals
	`
	args := []interface{}{limit, offset}
	if status != "" {
		query += ` WHERE status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query approvals: %w", err)
	}
	defer rows.Close()

	var approvals []*domain.PendingApproval
	for rows.Next() {
		var approval domain.PendingApproval
		var payload []byte
		if err := rows.Scan(
			&approval.ID, &approval.Kind, &approval.RequestedBy, &approval.Description,
			&payload, &approval.Impact,
			&approval.Status, &approval.CreatedAt, &approval.ExpiresAt,
			&approval.ResolvedAt, &approval.ResolvedBy, &approval.Reason,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		approval.Payload = payload
		approvals = append(approvals, &approval)
	}

	return approvals, nil
}

func (r *ApprovalRepo) CountByStatus(ctx context.Context, status domain.ApprovalStatus) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM approvals WHERE status = $1
	`, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count approvals: %w", err)
	}
	return count, nil
}
