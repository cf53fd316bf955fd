package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/basisbot/internal/domain"
	"github.com/alanyoungcy/basisbot/internal/engine"
	"github.com/alanyoungcy/basisbot/internal/executor"
	"github.com/alanyoungcy/basisbot/internal/service"
)

// fakeVenue implements every collaborator port the loop consumes.
type fakeVenue struct {
	quote    domain.PriceQuote
	priceErr error
	panics   bool

	capital    float64
	capitalErr error

	funding float64
	borrow  float64

	symbols []domain.SymbolInfo
	tickers []domain.BookTicker
	volumes []domain.Ticker24h

	orders []domain.MarketOrder
}

func (f *fakeVenue) GetMarketPrices(_ context.Context, symbol string) (domain.PriceQuote, error) {
	if f.panics {
		panic("quote source exploded")
	}
	if f.priceErr != nil {
		return domain.PriceQuote{}, f.priceErr
	}
	q := f.quote
	q.Symbol = symbol
	return q, nil
}

func (f *fakeVenue) GetBookTickers(context.Context) ([]domain.BookTicker, error) {
	return f.tickers, nil
}

func (f *fakeVenue) GetAvailableCapital(context.Context, string) (float64, error) {
	return f.capital, f.capitalErr
}

func (f *fakeVenue) GetFundingRateBpsPer8h(context.Context, string) (float64, error) {
	return f.funding, nil
}

func (f *fakeVenue) GetBorrowAprPct(context.Context, string) (float64, error) {
	return f.borrow, nil
}

func (f *fakeVenue) GetExchangeSymbols(context.Context) ([]domain.SymbolInfo, error) {
	return f.symbols, nil
}

func (f *fakeVenue) GetSymbolFilters(context.Context, string) (domain.SymbolFilters, error) {
	return domain.SymbolFilters{MinQty: 0.0001, StepSize: 0.0001, MinNotional: 10}, nil
}

func (f *fakeVenue) Get24hTickers(context.Context) ([]domain.Ticker24h, error) {
	return f.volumes, nil
}

func (f *fakeVenue) PlaceMarketOrder(_ context.Context, order domain.MarketOrder) (domain.OrderResult, error) {
	f.orders = append(f.orders, order)
	return domain.OrderResult{
		Status:      domain.OrderStatusFilled,
		ExecutedQty: order.Quantity,
		CumQuote:    order.QuoteAmount,
	}, nil
}

func testConfig() Config {
	return Config{
		Symbol:          "BTCUSDT",
		SettlementAsset: "USDT",
		BaseAsset:       "BTC",
		PollInterval:    5 * time.Millisecond,
		Policy: engine.PolicyConfig{
			Fees: domain.FeeSchedule{
				SpotTakerBps:       10,
				DerivativeTakerBps: 5,
			},
			SlippageBpsPerLeg:     5,
			MinSpreadBpsLongCarry: 20,
			MinSpreadBpsReverse:   40,
		},
	}
}

func newTestLoop(cfg Config, venue *fakeVenue) (*Loop, *service.StateSink) {
	logger := slog.New(slog.DiscardHandler)
	sink := service.NewStateSink(nil, nil, nil, nil, logger)
	exec := executor.New(venue, venue, logger)
	return New(cfg, venue, venue, venue, venue, exec, sink, logger), sink
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	venue := &fakeVenue{quote: domain.PriceQuote{SpotPrice: 100, DerivativePrice: 100.1}, capital: 1000}
	loop, sink := newTestLoop(testConfig(), venue)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	time.Sleep(25 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop on cancellation")
	}

	snap := sink.Snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, "stopped", snap.StatusMessage)
	assert.GreaterOrEqual(t, snap.Metrics.CyclesRun, int64(1))
}

func TestLoop_CycleErrorIsRecordedAndSurvived(t *testing.T) {
	venue := &fakeVenue{capital: 1000, priceErr: errors.New("exchange timeout")}
	loop, sink := newTestLoop(testConfig(), venue)

	ctx := context.Background()
	loop.runCycle(ctx)
	loop.runCycle(ctx)

	snap := sink.Snapshot()
	assert.Equal(t, int64(2), snap.Metrics.CyclesRun)
	assert.Equal(t, int64(2), snap.Metrics.CyclesFailed)
	assert.Contains(t, snap.Metrics.LastError, "exchange timeout")
	require.NotNil(t, snap.LastCycle)
	assert.Equal(t, domain.SideNone, snap.LastCycle.Side)
}

func TestLoop_PanicIsContained(t *testing.T) {
	venue := &fakeVenue{capital: 1000, panics: true}
	loop, sink := newTestLoop(testConfig(), venue)

	assert.NotPanics(t, func() { loop.runCycle(context.Background()) })

	snap := sink.Snapshot()
	assert.Equal(t, int64(1), snap.Metrics.CyclesFailed)
	assert.Contains(t, snap.Metrics.LastError, "cycle panic")
}

func TestLoop_DecisionExecutedWhenAutoExecute(t *testing.T) {
	venue := &fakeVenue{
		// 100 bps of basis, well past the 20 bps threshold.
		quote:   domain.PriceQuote{SpotPrice: 100, DerivativePrice: 101},
		capital: 1000,
	}
	cfg := testConfig()
	cfg.AutoExecute = true
	cfg.DryRun = true
	loop, sink := newTestLoop(cfg, venue)

	loop.runCycle(context.Background())

	history := sink.History()
	require.Len(t, history, 1)
	assert.Equal(t, "directional", history[0].Kind)
	assert.Equal(t, domain.SideLongSpotShortDerivative, history[0].Side)
	assert.True(t, history[0].DryRun)
	assert.True(t, history[0].Success)
	// Dry run never reaches the venue.
	assert.Empty(t, venue.orders)
}

func TestLoop_MonitorNeverExecutes(t *testing.T) {
	venue := &fakeVenue{
		quote:   domain.PriceQuote{SpotPrice: 100, DerivativePrice: 101},
		capital: 1000,
	}
	cfg := testConfig()
	cfg.AutoExecute = false
	loop, sink := newTestLoop(cfg, venue)

	loop.runCycle(context.Background())

	assert.Empty(t, sink.History())
	assert.Empty(t, venue.orders)
	// The decision itself is still recorded.
	snap := sink.Snapshot()
	require.NotNil(t, snap.LastCycle)
	assert.Equal(t, domain.SideLongSpotShortDerivative, snap.LastCycle.Side)
}

func TestLoop_MaxNotionalCapsCommitment(t *testing.T) {
	venue := &fakeVenue{
		quote:   domain.PriceQuote{SpotPrice: 100, DerivativePrice: 101},
		capital: 100_000,
	}
	cfg := testConfig()
	cfg.MaxNotional = 500
	loop, sink := newTestLoop(cfg, venue)

	loop.runCycle(context.Background())

	snap := sink.Snapshot()
	require.NotNil(t, snap.LastCycle)
	assert.InDelta(t, 500.0, snap.LastCycle.Notional, 1e-9)
}

func TestLoop_CapitalFetchFailureDegradesToZero(t *testing.T) {
	venue := &fakeVenue{
		quote:      domain.PriceQuote{SpotPrice: 100, DerivativePrice: 101},
		capitalErr: errors.New("account endpoint down"),
	}
	cfg := testConfig()
	cfg.AutoExecute = true
	loop, sink := newTestLoop(cfg, venue)

	loop.runCycle(context.Background())

	// Zero capital means zero notional, so no execution is attempted.
	assert.Empty(t, sink.History())
	assert.Empty(t, venue.orders)
	snap := sink.Snapshot()
	assert.Zero(t, snap.AvailableCapital)
}

func TestLoop_SweepRecordsOpportunitiesOnly(t *testing.T) {
	venue := &fakeVenue{
		quote:   domain.PriceQuote{SpotPrice: 100, DerivativePrice: 101},
		capital: 1000,
	}
	cfg := testConfig()
	cfg.AutoExecute = true
	cfg.DryRun = true
	cfg.SweepSymbols = []string{"ETHUSDT", "BTCUSDT"} // primary is skipped

	loop, sink := newTestLoop(cfg, venue)
	loop.runCycle(context.Background())

	// One execution from the primary pair, none from the sweep.
	history := sink.History()
	require.Len(t, history, 1)
	assert.Equal(t, "BTCUSDT", history[0].Symbol)
}

func TestLoop_TriangularSweepExecutesAboveFloor(t *testing.T) {
	venue := &fakeVenue{
		// No directional edge; the triangular route is the only opportunity.
		quote:   domain.PriceQuote{SpotPrice: 100, DerivativePrice: 100},
		capital: 1000,
		symbols: []domain.SymbolInfo{
			{Symbol: "BTCUSDT", BaseAsset: "BTC", QuoteAsset: "USDT", Trading: true},
			{Symbol: "ETHUSDT", BaseAsset: "ETH", QuoteAsset: "USDT", Trading: true},
			{Symbol: "ETHBTC", BaseAsset: "ETH", QuoteAsset: "BTC", Trading: true},
		},
		tickers: []domain.BookTicker{
			{Symbol: "BTCUSDT", BidPrice: 50000, AskPrice: 50100},
			{Symbol: "ETHUSDT", BidPrice: 3050, AskPrice: 3060},
			{Symbol: "ETHBTC", BidPrice: 0.0615, AskPrice: 0.0616},
		},
		volumes: []domain.Ticker24h{
			{Symbol: "BTCUSDT", QuoteVolume: 5_000_000},
			{Symbol: "ETHUSDT", QuoteVolume: 5_000_000},
			{Symbol: "ETHBTC", QuoteVolume: 5_000_000},
		},
	}
	cfg := testConfig()
	cfg.AutoExecute = true
	cfg.DryRun = true
	cfg.Policy.SlippageBpsPerLeg = 0
	cfg.Triangular = TriangularSettings{
		Enabled:         true,
		SettlementAsset: "USDT",
		MinQuoteVolume:  1_000_000,
		MinProfitBps:    10, // route nets ~49 bps
		Budget:          400,
		SafetyFraction:  0.5,
	}

	loop, sink := newTestLoop(cfg, venue)
	loop.runCycle(context.Background())

	history := sink.History()
	require.Len(t, history, 1)
	assert.Equal(t, "triangular", history[0].Kind)
	assert.True(t, history[0].DryRun)
	assert.True(t, history[0].Success)

	// Raising the floor above the route's edge suppresses execution.
	cfg.Triangular.MinProfitBps = 100
	loop2, sink2 := newTestLoop(cfg, venue)
	loop2.runCycle(context.Background())
	assert.Empty(t, sink2.History())
}
