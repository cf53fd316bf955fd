package domain

import "time"

// CycleRecord is the flat per-cycle event emitted to the status surface and
// persisted for later analysis. One is produced every loop iteration.
type CycleRecord struct {
	ID         string
	Symbol     string
	Quote      PriceQuote
	Edge       EdgeMetrics
	Side       Side
	Reason     string
	DryRun     bool
	Notional   float64
	Err        string // non-fatal cycle error, if any
	StartedAt  time.Time
	FinishedAt time.Time
}

// Metrics are the cumulative run statistics owned by the state sink.
type Metrics struct {
	CyclesRun        int64
	CyclesFailed     int64
	TradesExecuted   int64
	TradesWon        int64
	CumulativeProfit float64
	LastError        string
}

// StatusSnapshot is the immutable view handed to observers. Readers receive
// copies, never references into the sink's internal state.
type StatusSnapshot struct {
	Running          bool
	StatusMessage    string
	AvailableCapital float64
	Metrics          Metrics
	LastCycle        *CycleRecord
	UpdatedAt        time.Time
}
