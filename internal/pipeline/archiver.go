// Package pipeline runs the background maintenance jobs that accompany the
// trading loop, currently the scheduled archival of aged execution history.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// Archiver moves old execution history from the database to cold storage on
// a cron schedule.
type Archiver struct {
	blobArchiver  domain.Archiver
	retentionDays int
	logger        *slog.Logger
}

// NewArchiver creates an Archiver that keeps retentionDays of history hot.
func NewArchiver(blobArchiver domain.Archiver, retentionDays int, logger *slog.Logger) *Archiver {
	return &Archiver{
		blobArchiver:  blobArchiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "archive_pipeline")),
	}
}

// Run executes a single archive pass over everything older than the
// retention cutoff.
func (a *Archiver) Run(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	a.logger.Info("starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", a.retentionDays),
	)

	archived, err := a.blobArchiver.ArchiveExecutions(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("archiving executions before %v: %w", cutoff, err)
	}

	a.logger.Info("archive run complete", slog.Int64("executions_archived", archived))
	return nil
}

// RunCron runs archive passes on a standard 5-field cron schedule
// ("minute hour day-of-month month day-of-week") until ctx is cancelled.
// A failed pass is logged and retried at the next trigger.
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return fmt.Errorf("parsing cron expression %q: %w", cronExpr, err)
	}

	a.logger.Info("archiver cron started", slog.String("cron", cronExpr))

	for {
		next := schedule.Next(time.Now().UTC())
		a.logger.Info("archiver waiting for next trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", time.Until(next)),
		)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}
