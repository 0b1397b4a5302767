package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

type ExperimentRepo struct {
	db *PostgresDB
}

func NewExperimentRepo(db *PostgresDB) *ExperimentRepo {
	return &ExperimentRepo{db: db}
}

// Upsert writes the design's current state. Designs are written at
// creation and rewritten on every lifecycle transition.
func (r *ExperimentRepo) Upsert(ctx context.Context, design *domain.ExperimentDesign) error {
	designJSON, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("marshal design: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO experiments (id, status, hypothesis, design, created_at, started_at, concluded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			design = EXCLUDED.design,
			started_at = EXCLUDED.started_at,
			concluded_at = EXCLUDED.concluded_at
	`, design.ID, design.Status, design.Hypothesis, designJSON,
		design.CreatedAt, design.StartedAt, design.ConcludedAt)

	if err != nil {
		return fmt.Errorf("upsert experiment: %w", err)
	}

	return nil
}

func (r *ExperimentRepo) GetByID(ctx context.Context, id string) (*domain.ExperimentDesign, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT design FROM experiments WHERE id = $1
	`, id)

	var designJSON []byte
	if err := row.Scan(&designJSON); err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("experiment not found")
		}
		return nil, fmt.Errorf("scan experiment: %w", err)
	}

	var design domain.ExperimentDesign
	if err := json.Unmarshal(designJSON, &design); err != nil {
		return nil, fmt.Errorf("unmarshal design: %w", err)
	}

	return &design, nil
}

// List returns designs newest first, optionally filtered by status.
func (r *ExperimentRepo) List(ctx context.Context, status domain.ExperimentStatus, limit, offset int) ([]*domain.ExperimentDesign, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT design FROM experiments`
	args := []interface{}{limit, offset}
	if status != "" {
		query += ` WHERE status = $3`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query experiments: %w", err)
	}
	defer rows.Close()

	var designs []*domain.ExperimentDesign
	for rows.Next() {
		var designJSON []byte
		if err := rows.Scan(&designJSON); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var design domain.ExperimentDesign
		if err := json.Unmarshal(designJSON, &design); err != nil {
			return nil, fmt.Errorf("unmarshal design: %w", err)
		}
		designs = append(designs, &design)
	}

	return designs, nil
}

func (r *ExperimentRepo) AddObservation(ctx context.Context, obs *domain.ExperimentObservation) error {
	obsJSON, err := json.Marshal(obs)
	if err != nil {
		return fmt.Errorf("marshal observation: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO experiment_observations (experiment_id, observation, observed_at)
		VALUES ($1, $2, $3)
	`, obs.ExperimentID, obsJSON, obs.ObservedAt)

	if err != nil {
		return fmt.Errorf("insert observation: %w", err)
	}

	return nil
}

// Observations returns an experiment's measurement history in the order
// it was recorded.
func (r *ExperimentRepo) Observations(ctx context.Context, experimentID string) ([]*domain.ExperimentObservation, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT observation FROM experiment_observations
		WHERE experiment_id = $1
		ORDER BY observed_at ASC
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	var observations []*domain.ExperimentObservation
	for rows.Next() {
		var obsJSON []byte
		if err := rows.Scan(&obsJSON); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		var obs domain.ExperimentObservation
		if err := json.Unmarshal(obsJSON, &obs); err != nil {
			return nil, fmt.Errorf("unmarshal observation: %w", err)
		}
		observations = append(observations, &obs)
	}

	return observations, nil
}
