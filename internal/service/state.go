// Package service holds the state sink: the single mutable structure the
// scheduling loop writes balances, trade history, aggregate metrics, and
// status messages into. Observers receive immutable snapshots pushed on
// every change, never references into the sink's internals.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/basisbot/internal/domain"
	"github.com/alanyoungcy/basisbot/internal/notify"
)

// historyKeep bounds the in-memory tail of the trade history; the full
// append-only history lives in the execution store.
const historyKeep = 256

// StateSink owns cumulative run state. Only the scheduling loop writes to
// it; reads are safe from any goroutine.
type StateSink struct {
	mu        sync.Mutex
	running   bool
	status    string
	capital   float64
	metrics   domain.Metrics
	lastCycle *domain.CycleRecord
	history   []domain.ExecutionOutcome

	execStore   domain.ExecutionStore // optional
	cycleStore  domain.CycleStore     // optional
	statusCache domain.StatusCache    // optional
	notifier    *notify.Notifier      // optional

	observers []chan domain.StatusSnapshot
	logger    *slog.Logger
}

// NewStateSink creates a sink. Any of the persistence collaborators may be
// nil; the sink then keeps that facet in memory only.
func NewStateSink(
	execStore domain.ExecutionStore,
	cycleStore domain.CycleStore,
	statusCache domain.StatusCache,
	notifier *notify.Notifier,
	logger *slog.Logger,
) *StateSink {
	return &StateSink{
		execStore:   execStore,
		cycleStore:  cycleStore,
		statusCache: statusCache,
		notifier:    notifier,
		logger:      logger.With(slog.String("component", "state_sink")),
	}
}

// SetRunning flips the run flag and status message. The stop transition is
// announced through the event filter so operators can opt in.
func (s *StateSink) SetRunning(ctx context.Context, running bool, status string) {
	s.mu.Lock()
	wasRunning := s.running
	s.running = running
	s.status = status
	s.mu.Unlock()

	if s.notifier != nil && wasRunning && !running {
		if err := s.notifier.Notify(ctx, notify.EventBotStopped, "Bot stopped", status); err != nil {
			s.logger.Warn("stop notification failed", slog.String("error", err.Error()))
		}
	}
	s.publish(ctx)
}

// SetStatus updates the human-readable status message.
func (s *StateSink) SetStatus(ctx context.Context, status string) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.publish(ctx)
}

// RecordBalance stores the capital observed at the top of a cycle.
func (s *StateSink) RecordBalance(ctx context.Context, capital float64) {
	s.mu.Lock()
	s.capital = capital
	s.mu.Unlock()
	s.publish(ctx)
}

// RecordCycle appends one per-cycle decision record and updates the cycle
// counters. Persistence failures are logged, never fatal.
func (s *StateSink) RecordCycle(ctx context.Context, rec domain.CycleRecord) {
	s.mu.Lock()
	recCopy := rec
	s.lastCycle = &recCopy
	s.metrics.CyclesRun++
	if rec.Err != "" {
		s.metrics.CyclesFailed++
		s.metrics.LastError = rec.Err
	}
	s.mu.Unlock()

	if s.cycleStore != nil {
		if err := s.cycleStore.InsertBatch(ctx, []domain.CycleRecord{rec}); err != nil {
			s.logger.Warn("cycle record persist failed", slog.String("error", err.Error()))
		}
	}

	// Filtered by default; operators who want per-cycle failure pages add
	// cycle_error to the event list.
	if s.notifier != nil && rec.Err != "" {
		msg := fmt.Sprintf("cycle %s on %s failed: %s", rec.ID, rec.Symbol, rec.Err)
		if err := s.notifier.Notify(ctx, notify.EventCycleError, "Cycle error", msg); err != nil {
			s.logger.Warn("cycle error notification failed", slog.String("error", err.Error()))
		}
	}
	s.publish(ctx)
}

// RecordExecution appends one execution outcome to the trade history,
// updates the aggregate metrics, and escalates rollback failures.
func (s *StateSink) RecordExecution(ctx context.Context, outcome domain.ExecutionOutcome) {
	s.mu.Lock()
	s.history = append(s.history, outcome)
	if len(s.history) > historyKeep {
		s.history = s.history[len(s.history)-historyKeep:]
	}
	if !outcome.DryRun {
		s.metrics.TradesExecuted++
		if outcome.Success {
			s.metrics.TradesWon++
		}
		s.metrics.CumulativeProfit += outcome.RealizedProfit
	}
	s.mu.Unlock()

	if s.execStore != nil {
		if err := s.execStore.Create(ctx, outcome); err != nil {
			s.logger.Warn("execution persist failed",
				slog.String("outcome_id", outcome.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.notifier != nil {
		if outcome.NeedsIntervention() {
			msg := fmt.Sprintf("execution %s on %s left a residual position: %s",
				outcome.ID, outcome.Symbol, outcome.Rollback.Err)
			if err := s.notifier.NotifyAll(ctx, "ROLLBACK FAILED: manual intervention required", msg); err != nil {
				s.logger.Error("critical alert delivery failed", slog.String("error", err.Error()))
			}
		} else if !outcome.DryRun {
			event := notify.EventTradeExecuted
			title := "Trade executed"
			if !outcome.Success {
				event = notify.EventTradeFailed
				title = "Trade failed"
			}
			msg := fmt.Sprintf("%s %s on %s: profit %.4f (reason %q)",
				outcome.Kind, outcome.Side, outcome.Symbol, outcome.RealizedProfit, outcome.Reason)
			if err := s.notifier.Notify(ctx, event, title, msg); err != nil {
				s.logger.Warn("trade notification failed", slog.String("error", err.Error()))
			}
		}
	}

	s.publish(ctx)
}

// History returns a copy of the in-memory tail of the trade history.
func (s *StateSink) History() []domain.ExecutionOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ExecutionOutcome, len(s.history))
	copy(out, s.history)
	return out
}

// Snapshot returns an immutable view of the current state.
func (s *StateSink) Snapshot() domain.StatusSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *StateSink) snapshotLocked() domain.StatusSnapshot {
	snap := domain.StatusSnapshot{
		Running:          s.running,
		StatusMessage:    s.status,
		AvailableCapital: s.capital,
		Metrics:          s.metrics,
		UpdatedAt:        time.Now().UTC(),
	}
	if s.lastCycle != nil {
		cycleCopy := *s.lastCycle
		snap.LastCycle = &cycleCopy
	}
	return snap
}

// Subscribe registers a push-based observer. The returned channel receives a
// snapshot after every state change; slow observers drop updates rather
// than blocking the loop.
func (s *StateSink) Subscribe() <-chan domain.StatusSnapshot {
	ch := make(chan domain.StatusSnapshot, 8)
	s.mu.Lock()
	s.observers = append(s.observers, ch)
	s.mu.Unlock()
	return ch
}

// publish mirrors the snapshot to the status cache and all observers.
func (s *StateSink) publish(ctx context.Context) {
	s.mu.Lock()
	snap := s.snapshotLocked()
	observers := make([]chan domain.StatusSnapshot, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	if s.statusCache != nil {
		if err := s.statusCache.SetSnapshot(ctx, snap); err != nil {
			s.logger.Debug("status cache update failed", slog.String("error", err.Error()))
		}
	}

	for _, ch := range observers {
		select {
		case ch <- snap:
		default:
		}
	}
}
