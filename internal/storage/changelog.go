package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

type ChangeLogRepo struct {
	db *PostgresDB
}

func NewChangeLogRepo(db *PostgresDB) *ChangeLogRepo {
	return &ChangeLogRepo{db: db}
}

func (r *ChangeLogRepo) Create(ctx context.Context, entry *domain.ChangeLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO change_log (
			id, actor, action, entity_type, entity_id,
			before_value, after_value, reason, approved, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.Actor, entry.Action, entry.EntityType, entry.EntityID,
		entry.Before, entry.After, entry.Reason, entry.Approved, entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("insert change log entry: %w", err)
	}

	return nil
}

func (r *ChangeLogRepo) CreateBatch(ctx context.Context, entries []*domain.ChangeLogEntry) error {
	batch := &pgx.Batch{}
	now := time.Now()

	for _, entry := range entries {
		if entry.ID == "" {
			entry.ID = uuid.New().String()
		}
		createdAt := entry.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}

		batch.Queue(`
			INSERT INTO change_log (
				id, actor, action, entity_type, entity_id,
				before_value, after_value, reason, approved, created_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, entry.ID, entry.Actor, entry.Action, entry.EntityType, entry.EntityID,
			entry.Before, entry.After, entry.Reason, entry.Approved, createdAt)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}

	return nil
}

// ListByEntity returns an entity's change history, newest first.
func (r *ChangeLogRepo) ListByEntity(ctx context.Context, entityType, entityID string, limit int) ([]*domain.ChangeLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, actor, action, entity_type, entity_id,
			before_value, after_value, reason, approved, created_at
		FROM change_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query change log: %w", err)
	}
	defer rows.Close()

	return scanChangeLogEntries(rows)
}

func (r *ChangeLogRepo) ListRecent(ctx context.Context, limit, offset int) ([]*domain.ChangeLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, actor, action, entity_type, entity_id,
			before_value, after_value, reason, approved, created_at
		FROM change_log
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query change log: %w", err)
	}
	defer rows.Close()

	return scanChangeLogEntries(rows)
}

func scanChangeLogEntries(rows pgx.Rows) ([]*domain.ChangeLogEntry, error) {
	var entries []*domain.ChangeLogEntry

	for rows.Next() {
		var entry domain.ChangeLogEntry
		if err := rows.Scan(
			&entry.ID, &entry.Actor, &entry.Action, &entry.EntityType, &entry.EntityID,
			&entry.Before, &entry.After, &entry.Reason, &entry.Approved, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		entries = append(entries, &entry)
	}

	return entries, nil
}
