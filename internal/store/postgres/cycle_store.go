package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// CycleStore implements domain.CycleStore using PostgreSQL.
type CycleStore struct {
	pool *pgxpool.Pool
}

// NewCycleStore creates a new CycleStore.
func NewCycleStore(pool *pgxpool.Pool) *CycleStore {
	return &CycleStore{pool: pool}
}

// InsertBatch writes a batch of cycle records in one round trip.
func (s *CycleStore) InsertBatch(ctx context.Context, records []domain.CycleRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO cycles (id, symbol, spot_price, derivative_price, basis_bps, net_long_bps, net_reverse_bps, side, reason, dry_run, notional, err, started_at, finished_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING`,
			rec.ID, rec.Symbol, rec.Quote.SpotPrice, rec.Quote.DerivativePrice,
			rec.Edge.BasisBps, rec.Edge.NetLongCarryBps, rec.Edge.NetReverseCarryBps,
			string(rec.Side), rec.Reason, rec.DryRun, rec.Notional, rec.Err,
			rec.StartedAt, rec.FinishedAt,
		)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert cycles batch: %w", err)
		}
	}
	return nil
}

// ListRecent returns the most recent cycle records, newest first.
func (s *CycleStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.CycleRecord, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, symbol, spot_price, derivative_price, basis_bps, net_long_bps, net_reverse_bps, side, reason, dry_run, notional, err, started_at, finished_at
		FROM cycles ORDER BY started_at DESC LIMIT $1 OFFSET $2`,
		limit, opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cycles: %w", err)
	}
	defer rows.Close()

	var list []domain.CycleRecord
	for rows.Next() {
		var rec domain.CycleRecord
		var side string
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Quote.SpotPrice,
			&rec.Quote.DerivativePrice, &rec.Edge.BasisBps,
			&rec.Edge.NetLongCarryBps, &rec.Edge.NetReverseCarryBps,
			&side, &rec.Reason, &rec.DryRun, &rec.Notional, &rec.Err,
			&rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.Side = domain.Side(side)
		rec.Quote.Symbol = rec.Symbol
		list = append(list, rec)
	}
	return list, rows.Err()
}
