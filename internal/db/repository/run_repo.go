package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skillgauge/assessment-platform/internal/assessment"
)

// RunRepository persists assessment runs in Postgres. Attempts are stored as
// a JSONB document and the row carries a version counter bumped on every
// save; a save against a stale version fails with ErrVersionConflict.
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a run repository.
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

const runColumns = `run_id, owner_id, invite_code, attempts, score, current_difficulty,
		consecutive_correct_at_max, status, completed_reason, completed_at, version,
		created_at, updated_at`

// Create inserts a fresh run at version 1.
func (r *RunRepository) Create(ctx context.Context, run assessment.Run) (*assessment.Run, error) {
	attempts, err := marshalAttempts(run.Attempts)
	if err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO assessment_runs
			(run_id, owner_id, invite_code, attempts, score, current_difficulty,
			 consecutive_correct_at_max, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + runColumns

	row := r.pool.QueryRow(ctx, query,
		run.ID, run.OwnerID, run.InviteCode, attempts, run.Score,
		run.CurrentDifficulty, run.ConsecutiveCorrectAtMax, run.Status,
	)

	stored, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return stored, nil
}

// Load fetches a run by ID.
func (r *RunRepository) Load(ctx context.Context, runID uuid.UUID) (*assessment.Run, error) {
	const query = `SELECT ` + runColumns + ` FROM assessment_runs WHERE run_id = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, assessment.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load run: %w", err)
	}
	return run, nil
}

// FindByInviteCode fetches a run by its invite code.
func (r *RunRepository) FindByInviteCode(ctx context.Context, inviteCode string) (*assessment.Run, error) {
	const query = `SELECT ` + runColumns + ` FROM assessment_runs WHERE invite_code = $1`

	run, err := scanRun(r.pool.QueryRow(ctx, query, inviteCode))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, assessment.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find run by invite code: %w", err)
	}
	return run, nil
}

// Save replaces the run's mutable state. The update only matches when the
// stored version equals the version the caller loaded; otherwise another
// writer got there first and the caller must reload.
func (r *RunRepository) Save(ctx context.Context, run assessment.Run) (*assessment.Run, error) {
	attempts, err := marshalAttempts(run.Attempts)
	if err != nil {
		return nil, err
	}

	const query = `
		UPDATE assessment_runs
		SET attempts = $3,
		    score = $4,
		    current_difficulty = $5,
		    consecutive_correct_at_max = $6,
		    status = $7,
		    completed_reason = $8,
		    completed_at = $9,
		    version = version + 1,
		    updated_at = now()
		WHERE run_id = $1 AND version = $2
		RETURNING ` + runColumns

	row := r.pool.QueryRow(ctx, query,
		run.ID, run.Version, attempts, run.Score, run.CurrentDifficulty,
		run.ConsecutiveCorrectAtMax, run.Status, nullString(string(run.CompletedReason)),
		run.CompletedAt,
	)

	stored, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the run vanished or the version is stale.
		if _, loadErr := r.Load(ctx, run.ID); errors.Is(loadErr, assessment.ErrRunNotFound) {
			return nil, assessment.ErrRunNotFound
		}
		return nil, assessment.ErrVersionConflict
	}
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	return stored, nil
}

// ListByOwner returns the owner's runs, newest first.
func (r *RunRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]assessment.Run, error) {
	const query = `SELECT ` + runColumns + ` FROM assessment_runs WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, ownerID)
}

// ListAll returns every run, newest first.
func (r *RunRepository) ListAll(ctx context.Context) ([]assessment.Run, error) {
	const query = `SELECT ` + runColumns + ` FROM assessment_runs ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *RunRepository) list(ctx context.Context, query string, args ...any) ([]assessment.Run, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []assessment.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	return runs, nil
}

func scanRun(row pgx.Row) (*assessment.Run, error) {
	var (
		run             assessment.Run
		attempts        []byte
		completedReason *string
	)

	err := row.Scan(
		&run.ID, &run.OwnerID, &run.InviteCode, &attempts, &run.Score,
		&run.CurrentDifficulty, &run.ConsecutiveCorrectAtMax, &run.Status,
		&completedReason, &run.CompletedAt, &run.Version,
		&run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Attempts = []assessment.Attempt{}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &run.Attempts); err != nil {
			return nil, fmt.Errorf("decode attempts: %w", err)
		}
	}
	if completedReason != nil {
		run.CompletedReason = assessment.CompletionReason(*completedReason)
	}

	return &run, nil
}

func marshalAttempts(attempts []assessment.Attempt) ([]byte, error) {
	if attempts == nil {
		attempts = []assessment.Attempt{}
	}
	data, err := json.Marshal(attempts)
	if err != nil {
		return nil, fmt.Errorf("encode attempts: %w", err)
	}
	return data, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
