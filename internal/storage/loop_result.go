package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

type LoopResultRepo struct {
	db *PostgresDB
}

func NewLoopResultRepo(db *PostgresDB) *LoopResultRepo {
	return &LoopResultRepo{db: db}
}

func (r *LoopResultRepo) Create(ctx context.Context, result *domain.LoopResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}

	stepsJSON, err := json.Marshal(result.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}

	alertsJSON, err := json.Marshal(result.Alerts)
	if err != nil {
		return fmt.Errorf("marshal alerts: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO loop_results (
			id, phase, steps, alerts, running_experiments, pending_approvals,
			started_at, completed_at, next_run
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, result.ID, result.Phase, stepsJSON, alertsJSON,
		result.RunningExperiments, result.PendingApprovals,
		result.StartedAt, result.CompletedAt, result.NextRun)

	if err != nil {
		return fmt.Errorf("insert loop result: %w", err)
	}

	return nil
}

func (r *LoopResultRepo) GetByID(ctx context.Context, id string) (*domain.LoopResult, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id, phase, steps, alerts, running_experiments, pending_approvals,
			started_at, completed_at, next_run
		FROM loop_results
		WHERE id = $1
	`, id)

	result, err := scanLoopResult(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("loop result not found")
		}
		return nil, err
	}
	return result, nil
}

// List returns the most recent iterations, newest first.
func (r *LoopResultRepo) List(ctx context.Context, limit, offset int) ([]*domain.LoopResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, phase, steps, alerts, running_experiments, pending_approvals,
			started_at, completed_at, next_run
		FROM loop_results
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query loop results: %w", err)
	}
	defer rows.Close()

	var results []*domain.LoopResult
	for rows.Next() {
		result, err := scanLoopResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

func (r *LoopResultRepo) Latest(ctx context.Context) (*domain.LoopResult, error) {
	results, err := r.List(ctx, 1, 0)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

func scanLoopResult(row pgx.Row) (*domain.LoopResult, error) {
	var result domain.LoopResult
	var stepsJSON, alertsJSON []byte

	if err := row.Scan(
		&result.ID, &result.Phase, &stepsJSON, &alertsJSON,
		&result.RunningExperiments, &result.PendingApprovals,
		&result.StartedAt, &result.CompletedAt, &result.NextRun,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(stepsJSON, &result.Steps); err != nil {
		return nil, fmt.Errorf("unmarshal steps: %w", err)
	}
	if alertsJSON != nil {
		json.Unmarshal(alertsJSON, &result.Alerts)
	}

	return &result, nil
}
