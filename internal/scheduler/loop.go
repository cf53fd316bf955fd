// Package scheduler drives the decision-and-execution cycle: fetch capital,
// fetch prices, compute edges, decide, optionally execute, record, sleep.
// One loop owns one bot instance's run/stop lifecycle and cadence.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/basisbot/internal/domain"
	"github.com/alanyoungcy/basisbot/internal/engine"
	"github.com/alanyoungcy/basisbot/internal/executor"
	"github.com/alanyoungcy/basisbot/internal/service"
)

// TriangularSettings configures the secondary triangular sweep.
type TriangularSettings struct {
	Enabled         bool
	SettlementAsset string
	MinQuoteVolume  float64
	// MinProfitBps is the execution floor applied to the scanner's best
	// route; the scanner itself applies no threshold.
	MinProfitBps   float64
	TakerFeeBps    float64
	Budget         float64
	SafetyFraction float64
}

// Config is the loop's static configuration, immutable per run.
type Config struct {
	Symbol          string
	SettlementAsset string
	BaseAsset       string
	PollInterval    time.Duration

	Policy engine.PolicyConfig

	// AutoExecute places real orders; DryRun runs the full pipeline and
	// records simulated outcomes.
	AutoExecute bool
	DryRun      bool

	// MaxNotional caps the settlement-asset value committed per trade.
	MaxNotional float64

	// SweepSymbols is the secondary multi-symbol directional sweep run
	// after the primary pair, within the same iteration.
	SweepSymbols []string

	Triangular TriangularSettings
}

// Loop is the cancellable single-flow polling loop. Each cycle is strictly
// sequential so decisions are always made against a consistent snapshot; no
// cycle overlaps the next.
type Loop struct {
	cfg     Config
	prices  domain.PriceSource
	account domain.AccountSource
	rates   domain.RateSource
	symbols domain.SymbolSource
	exec    *executor.Executor
	sink    *service.StateSink
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Loop over the given collaborators.
func New(
	cfg Config,
	prices domain.PriceSource,
	account domain.AccountSource,
	rates domain.RateSource,
	symbols domain.SymbolSource,
	exec *executor.Executor,
	sink *service.StateSink,
	logger *slog.Logger,
) *Loop {
	return &Loop{
		cfg:     cfg,
		prices:  prices,
		account: account,
		rates:   rates,
		symbols: symbols,
		exec:    exec,
		sink:    sink,
		logger:  logger.With(slog.String("component", "scheduler")),
		now:     time.Now,
	}
}

// Run polls until ctx is cancelled. An error inside a cycle is logged,
// recorded, and survived; only cancellation stops the loop. The inter-cycle
// sleep is the one suspension point that responds to cancellation; an
// in-flight execution always runs to completion or failure first.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("scheduler started",
		slog.String("symbol", l.cfg.Symbol),
		slog.Duration("interval", l.cfg.PollInterval),
		slog.Bool("dry_run", l.cfg.DryRun),
	)
	l.sink.SetRunning(ctx, true, "running")
	defer l.sink.SetRunning(context.WithoutCancel(ctx), false, "stopped")

	for {
		l.runCycle(ctx)

		select {
		case <-ctx.Done():
			l.logger.Info("scheduler stopping", slog.String("reason", ctx.Err().Error()))
			return ctx.Err()
		case <-time.After(l.cfg.PollInterval):
		}
	}
}

// runCycle executes one full iteration: the primary pair's cycle, then the
// secondary directional sweep, then the triangular sweep, all sequential.
// A panic anywhere in the cycle is contained and counted as a failed cycle.
func (l *Loop) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Sprintf("cycle panic: %v", r)
			l.logger.Error("cycle panicked", slog.String("panic", err))
			l.sink.RecordCycle(ctx, domain.CycleRecord{
				ID:         uuid.New().String(),
				Symbol:     l.cfg.Symbol,
				Side:       domain.SideNone,
				Err:        err,
				StartedAt:  l.now().UTC(),
				FinishedAt: l.now().UTC(),
			})
		}
	}()

	capital := l.primaryCycle(ctx)

	for _, symbol := range l.cfg.SweepSymbols {
		if symbol == l.cfg.Symbol {
			continue
		}
		l.sweepCycle(ctx, symbol)
	}

	if l.cfg.Triangular.Enabled {
		l.triangularSweep(ctx, capital)
	}
}

// primaryCycle runs the main pair's fetch-compute-decide-execute-record
// sequence and returns the capital observed, for reuse by the sweeps.
func (l *Loop) primaryCycle(ctx context.Context) float64 {
	rec := domain.CycleRecord{
		ID:        uuid.New().String(),
		Symbol:    l.cfg.Symbol,
		Side:      domain.SideNone,
		DryRun:    l.cfg.DryRun,
		StartedAt: l.now().UTC(),
	}

	// 1. Capital. A fetch failure degrades to zero capital for this cycle.
	capital, err := l.account.GetAvailableCapital(ctx, l.cfg.SettlementAsset)
	if err != nil {
		l.logger.Warn("capital fetch failed", slog.String("error", err.Error()))
		capital = 0
	}
	l.sink.RecordBalance(ctx, capital)

	// 2. Prices. Without a valid quote there is nothing to decide.
	quote, err := l.prices.GetMarketPrices(ctx, l.cfg.Symbol)
	if err != nil {
		rec.Err = "price fetch: " + err.Error()
		rec.FinishedAt = l.now().UTC()
		l.logger.Warn("price fetch failed", slog.String("error", err.Error()))
		l.sink.RecordCycle(ctx, rec)
		return capital
	}
	rec.Quote = quote

	// 3. Carry-cost inputs. Both default to 0 on failure, logged not fatal.
	funding := l.fetchFunding(ctx, l.cfg.Symbol)
	borrow := l.fetchBorrow(ctx, l.cfg.BaseAsset)

	// 4–5. Compute and decide.
	decision := engine.DecideSide(quote.SpotPrice, quote.DerivativePrice, l.cfg.Policy, funding, borrow)
	rec.Edge = decision.Edge
	rec.Side = decision.Side
	rec.Reason = decision.Reason

	notional := capital
	if l.cfg.MaxNotional > 0 && notional > l.cfg.MaxNotional {
		notional = l.cfg.MaxNotional
	}
	rec.Notional = notional

	// One structured event per cycle, flat key-value.
	l.logger.Info("cycle decision",
		slog.String("cycle_id", rec.ID),
		slog.String("symbol", quote.Symbol),
		slog.Float64("spot", quote.SpotPrice),
		slog.Float64("derivative", quote.DerivativePrice),
		slog.Float64("basis_bps", decision.Edge.BasisBps),
		slog.Float64("net_long_bps", decision.Edge.NetLongCarryBps),
		slog.Float64("net_reverse_bps", decision.Edge.NetReverseCarryBps),
		slog.String("side", string(decision.Side)),
		slog.String("reason", decision.Reason),
		slog.Bool("dry_run", l.cfg.DryRun),
		slog.Float64("notional", notional),
	)

	// 6. Execute.
	if decision.Side != domain.SideNone && l.cfg.AutoExecute {
		l.executeDirectional(ctx, quote, decision, notional)
	}

	rec.FinishedAt = l.now().UTC()
	l.sink.RecordCycle(ctx, rec)
	return capital
}

// executeDirectional builds the immutable trade intent and hands it to the
// execution engine. Once a leg may have been placed the execution is
// cancellation-immune: a stop request never abandons a half-executed trade
// before its compensating action.
func (l *Loop) executeDirectional(ctx context.Context, quote domain.PriceQuote, decision engine.Decision, notional float64) {
	entryPrice := quote.SpotPrice
	spread := decision.Edge.NetLongCarryBps
	if decision.Side == domain.SideShortSpotLongDerivative {
		spread = decision.Edge.NetReverseCarryBps
	}

	if entryPrice <= 0 || notional <= 0 {
		l.logger.Warn("skipping execution, no capital or invalid entry price")
		return
	}

	intent := domain.TradeIntent{
		Symbol:       quote.Symbol,
		Side:         decision.Side,
		BuyPrice:     quote.SpotPrice,
		SellPrice:    quote.DerivativePrice,
		Amount:       notional / entryPrice,
		FeeRateBps:   l.cfg.Policy.Fees.SpotTakerBps + l.cfg.Policy.Fees.DerivativeTakerBps,
		SpreadSigned: spread,
		DryRun:       l.cfg.DryRun,
	}

	execCtx := context.WithoutCancel(ctx)
	outcome := l.exec.ExecuteDirectional(execCtx, intent)
	l.sink.RecordExecution(execCtx, outcome)

	l.logger.Info("execution attempt",
		slog.String("outcome_id", outcome.ID),
		slog.String("kind", outcome.Kind),
		slog.String("symbol", outcome.Symbol),
		slog.String("side", string(outcome.Side)),
		slog.Bool("success", outcome.Success),
		slog.Bool("dry_run", outcome.DryRun),
		slog.Float64("realized_profit", outcome.RealizedProfit),
		slog.String("reason", outcome.Reason),
	)
}

// sweepCycle evaluates one secondary symbol. The sweep scouts for
// opportunities and records them; capital stays committed to the primary
// pair, so no execution happens here.
func (l *Loop) sweepCycle(ctx context.Context, symbol string) {
	rec := domain.CycleRecord{
		ID:        uuid.New().String(),
		Symbol:    symbol,
		Side:      domain.SideNone,
		DryRun:    true,
		StartedAt: l.now().UTC(),
	}

	quote, err := l.prices.GetMarketPrices(ctx, symbol)
	if err != nil {
		l.logger.Debug("sweep price fetch failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return
	}

	funding := l.fetchFunding(ctx, symbol)
	decision := engine.DecideSide(quote.SpotPrice, quote.DerivativePrice, l.cfg.Policy, funding, 0)
	rec.Quote = quote
	rec.Edge = decision.Edge
	rec.Side = decision.Side
	rec.Reason = decision.Reason
	rec.FinishedAt = l.now().UTC()

	if decision.Side != domain.SideNone {
		l.logger.Info("sweep opportunity",
			slog.String("symbol", symbol),
			slog.String("side", string(decision.Side)),
			slog.Float64("net_long_bps", decision.Edge.NetLongCarryBps),
		)
		l.sink.RecordCycle(ctx, rec)
	}
}

// triangularSweep scans all spot books for the best three-leg route and
// executes it when it clears the configured profit floor.
func (l *Loop) triangularSweep(ctx context.Context, capital float64) {
	symbols, err := l.symbols.GetExchangeSymbols(ctx)
	if err != nil {
		l.logger.Warn("triangular sweep: exchange info failed", slog.String("error", err.Error()))
		return
	}
	tickers, err := l.prices.GetBookTickers(ctx)
	if err != nil {
		l.logger.Warn("triangular sweep: book tickers failed", slog.String("error", err.Error()))
		return
	}
	volumes, err := l.symbols.Get24hTickers(ctx)
	if err != nil {
		l.logger.Warn("triangular sweep: 24h tickers failed", slog.String("error", err.Error()))
		return
	}

	route, ok := engine.ScanTriangular(symbols, tickers, volumes, engine.ScanConfig{
		SettlementAsset:   l.cfg.Triangular.SettlementAsset,
		MinQuoteVolume:    l.cfg.Triangular.MinQuoteVolume,
		TakerFeeBps:       l.cfg.Triangular.TakerFeeBps,
		SlippageBpsPerLeg: l.cfg.Policy.SlippageBpsPerLeg,
	})
	if !ok {
		return
	}

	l.logger.Info("triangular sweep",
		slog.String("route", route.LegSymbols[0]+">"+route.LegSymbols[1]+">"+route.LegSymbols[2]),
		slog.String("direction", string(route.Direction)),
		slog.Float64("expected_net_bps", route.ExpectedNetBps),
	)

	// The profit floor lives here, at the call site, not in the scanner.
	if route.ExpectedNetBps < l.cfg.Triangular.MinProfitBps {
		return
	}
	if !l.cfg.AutoExecute {
		return
	}

	execCtx := context.WithoutCancel(ctx)
	outcome := l.exec.ExecuteTriangular(execCtx, route, capital, executor.TriangularConfig{
		Budget:         l.cfg.Triangular.Budget,
		SafetyFraction: l.cfg.Triangular.SafetyFraction,
		DryRun:         l.cfg.DryRun,
	})
	l.sink.RecordExecution(execCtx, outcome)
}

// fetchFunding returns the live funding rate, defaulting to 0 on failure.
func (l *Loop) fetchFunding(ctx context.Context, symbol string) float64 {
	if !l.cfg.Policy.ConsiderFunding {
		return 0
	}
	funding, err := l.rates.GetFundingRateBpsPer8h(ctx, symbol)
	if err != nil {
		l.logger.Warn("funding rate fetch failed, assuming 0",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return funding
}

// fetchBorrow returns the live borrow APR, defaulting to 0 on failure.
func (l *Loop) fetchBorrow(ctx context.Context, asset string) float64 {
	if !l.cfg.Policy.AllowReverse {
		return 0
	}
	borrow, err := l.rates.GetBorrowAprPct(ctx, asset)
	if err != nil {
		l.logger.Warn("borrow rate fetch failed, assuming 0",
			slog.String("asset", asset),
			slog.String("error", err.Error()),
		)
		return 0
	}
	return borrow
}
