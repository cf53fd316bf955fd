package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// ExecutionStore persists the append-only execution history.
type ExecutionStore interface {
	Create(ctx context.Context, outcome ExecutionOutcome) error
	ListRecent(ctx context.Context, opts ListOpts) ([]ExecutionOutcome, error)
	// ListBefore returns executions older than the cutoff, for archival.
	ListBefore(ctx context.Context, before time.Time) ([]ExecutionOutcome, error)
	// DeleteBefore removes executions older than the cutoff once archived.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// CycleStore persists per-cycle decision records.
type CycleStore interface {
	InsertBatch(ctx context.Context, records []CycleRecord) error
	ListRecent(ctx context.Context, opts ListOpts) ([]CycleRecord, error)
}

// StatusCache mirrors the latest status snapshot for external observers.
type StatusCache interface {
	SetSnapshot(ctx context.Context, snap StatusSnapshot) error
	GetSnapshot(ctx context.Context) (StatusSnapshot, error)
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

// Archiver moves aged history out of the primary store.
type Archiver interface {
	ArchiveExecutions(ctx context.Context, before time.Time) (int64, error)
}
