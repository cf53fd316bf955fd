package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL. Legs and
// rollback details are stored as JSONB: they are written once, read rarely,
// and their shape follows the venue's order responses rather than anything
// worth normalizing.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Create inserts one execution outcome.
func (s *ExecutionStore) Create(ctx context.Context, outcome domain.ExecutionOutcome) error {
	legs, err := json.Marshal(outcome.Legs)
	if err != nil {
		return fmt.Errorf("postgres: marshal legs: %w", err)
	}
	var rollback []byte
	if outcome.Rollback != nil {
		rollback, err = json.Marshal(outcome.Rollback)
		if err != nil {
			return fmt.Errorf("postgres: marshal rollback: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO executions (id, kind, symbol, side, success, dry_run, realized_profit, spent_amount, final_amount, legs, rollback, reason, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		outcome.ID, outcome.Kind, outcome.Symbol, string(outcome.Side),
		outcome.Success, outcome.DryRun, outcome.RealizedProfit,
		outcome.SpentAmount, outcome.FinalAmount, legs, rollback,
		outcome.Reason, outcome.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert execution: %w", err)
	}
	return nil
}

// ListRecent returns the most recent executions, newest first.
func (s *ExecutionStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.ExecutionOutcome, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, symbol, side, success, dry_run, realized_profit, spent_amount, final_amount, legs, rollback, reason, executed_at
		FROM executions ORDER BY executed_at DESC LIMIT $1 OFFSET $2`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions: %w", err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// ListBefore returns executions older than the cutoff, oldest first, for
// archival.
func (s *ExecutionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ExecutionOutcome, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, symbol, side, success, dry_run, realized_profit, spent_amount, final_amount, legs, rollback, reason, executed_at
		FROM executions WHERE executed_at < $1 ORDER BY executed_at ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions before: %w", err)
	}
	defer rows.Close()
	return scanExecutions(rows)
}

// DeleteBefore removes executions older than the cutoff and reports how many
// rows went away.
func (s *ExecutionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM executions WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete executions before: %w", err)
	}
	return tag.RowsAffected(), nil
}

type executionRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanExecutions(rows executionRows) ([]domain.ExecutionOutcome, error) {
	var list []domain.ExecutionOutcome
	for rows.Next() {
		var o domain.ExecutionOutcome
		var side string
		var legs, rollback []byte
		if err := rows.Scan(&o.ID, &o.Kind, &o.Symbol, &side, &o.Success,
			&o.DryRun, &o.RealizedProfit, &o.SpentAmount, &o.FinalAmount,
			&legs, &rollback, &o.Reason, &o.ExecutedAt); err != nil {
			return nil, err
		}
		o.Side = domain.Side(side)
		if len(legs) > 0 {
			if err := json.Unmarshal(legs, &o.Legs); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal legs for %s: %w", o.ID, err)
			}
		}
		if len(rollback) > 0 {
			var rb domain.RollbackResult
			if err := json.Unmarshal(rollback, &rb); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal rollback for %s: %w", o.ID, err)
			}
			o.Rollback = &rb
		}
		list = append(list, o)
	}
	return list, rows.Err()
}
