package app

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/basisbot/internal/domain"
	"github.com/alanyoungcy/basisbot/internal/engine"
	"github.com/alanyoungcy/basisbot/internal/executor"
	"github.com/alanyoungcy/basisbot/internal/pipeline"
	"github.com/alanyoungcy/basisbot/internal/platform/binance"
	"github.com/alanyoungcy/basisbot/internal/scheduler"
	"github.com/alanyoungcy/basisbot/internal/service"
)

// TradeMode runs the full loop with live order placement (subject to
// trading.auto_execute).
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.Bool("auto_execute", a.cfg.Trading.AutoExecute),
	)
	return a.runLoop(ctx, deps, a.cfg.Trading.AutoExecute, false)
}

// DryRunMode runs the full decision pipeline and records simulated outcomes;
// no orders reach the venue.
func (a *App) DryRunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting dry-run mode")
	return a.runLoop(ctx, deps, true, true)
}

// MonitorMode observes and records edges without ever executing.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")
	return a.runLoop(ctx, deps, false, true)
}

// runLoop assembles the state sink, executor, and scheduling loop, then runs
// them alongside the background workers until the context is cancelled.
func (a *App) runLoop(ctx context.Context, deps *Dependencies, autoExecute, dryRun bool) error {
	client := deps.Clients.Get(deps.Creds)

	sink := service.NewStateSink(
		deps.ExecutionStore,
		deps.CycleStore,
		deps.StatusCache,
		deps.Notifier,
		a.logger,
	)

	exec := executor.New(client, client, a.logger)

	loop := scheduler.New(
		a.loopConfig(autoExecute, dryRun),
		client, client, client, client,
		exec,
		sink,
		a.logger,
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(ctx)
	})

	// Live book-ticker stream for visibility; the loop itself always
	// decides on fresh REST quotes.
	if a.cfg.Venue.StreamBaseURL != "" {
		symbols := append([]string{a.cfg.Trading.Symbol}, a.cfg.Trading.SweepSymbols...)
		feed := binance.NewWSFeed(a.cfg.Venue.StreamBaseURL, symbols,
			func(ctx context.Context, ticker domain.BookTicker) {
				a.logger.DebugContext(ctx, "book ticker",
					slog.String("symbol", ticker.Symbol),
					slog.Float64("bid", ticker.BidPrice),
					slog.Float64("ask", ticker.AskPrice),
				)
			},
			a.logger,
		)
		g.Go(func() error {
			return feed.Run(ctx)
		})
	}

	// Scheduled archival of aged execution history.
	if a.cfg.Pipeline.ArchiveEnabled && deps.Archiver != nil {
		archiver := pipeline.NewArchiver(deps.Archiver, a.cfg.Pipeline.ArchiveRetentionDays, a.logger)
		g.Go(func() error {
			return archiver.RunCron(ctx, a.cfg.Pipeline.ArchiveCron)
		})
	}

	return g.Wait()
}

// loopConfig maps the file configuration onto the scheduler's view of it.
func (a *App) loopConfig(autoExecute, dryRun bool) scheduler.Config {
	t := a.cfg.Trading
	return scheduler.Config{
		Symbol:          t.Symbol,
		SettlementAsset: t.SettlementAsset,
		BaseAsset:       t.BaseAsset,
		PollInterval:    t.PollInterval.Duration,
		AutoExecute:     autoExecute,
		DryRun:          dryRun,
		MaxNotional:     t.MaxNotional,
		SweepSymbols:    t.SweepSymbols,
		Policy: engine.PolicyConfig{
			Fees: domain.FeeSchedule{
				SpotTakerBps:       t.SpotTakerFeeBps,
				DerivativeTakerBps: t.DerivativeTakerFeeBps,
			},
			SlippageBpsPerLeg:     t.SlippageBpsPerLeg,
			ConsiderFunding:       t.ConsiderFunding,
			FundingHorizonHours:   t.FundingHorizonHours,
			MinSpreadBpsLongCarry: t.MinSpreadBpsLongCarry,
			MinSpreadBpsReverse:   t.MinSpreadBpsReverse,
			AllowReverse:          t.AllowReverse,
			SpotMarginEnabled:     t.SpotMarginEnabled,
			MaxBorrowAprPct:       t.MaxBorrowAprPct,
		},
		Triangular: scheduler.TriangularSettings{
			Enabled:         a.cfg.Triangular.Enabled,
			SettlementAsset: a.cfg.Triangular.SettlementAsset,
			MinQuoteVolume:  a.cfg.Triangular.MinQuoteVolume,
			MinProfitBps:    a.cfg.Triangular.MinProfitBps,
			TakerFeeBps:     a.cfg.Triangular.TakerFeeBps,
			Budget:          a.cfg.Triangular.Budget,
			SafetyFraction:  a.cfg.Triangular.SafetyFraction,
		},
	}
}
