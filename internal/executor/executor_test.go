package executor

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// orderStep is one scripted venue response.
type orderStep struct {
	res domain.OrderResult
	err error
}

// scriptedOrders replays a fixed sequence of order results and records every
// order it was asked to place.
type scriptedOrders struct {
	calls []domain.MarketOrder
	steps []orderStep
}

func (s *scriptedOrders) PlaceMarketOrder(_ context.Context, order domain.MarketOrder) (domain.OrderResult, error) {
	s.calls = append(s.calls, order)
	if len(s.steps) == 0 {
		return domain.OrderResult{}, errors.New("unexpected order")
	}
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step.res, step.err
}

type fakeSymbols struct {
	filters domain.SymbolFilters
	err     error
}

func (f *fakeSymbols) GetExchangeSymbols(context.Context) ([]domain.SymbolInfo, error) {
	return nil, nil
}

func (f *fakeSymbols) GetSymbolFilters(context.Context, string) (domain.SymbolFilters, error) {
	return f.filters, f.err
}

func (f *fakeSymbols) Get24hTickers(context.Context) ([]domain.Ticker24h, error) {
	return nil, nil
}

func newTestExecutor(orders domain.OrderPlacer, symbols domain.SymbolSource) *Executor {
	e := New(orders, symbols, slog.New(slog.DiscardHandler))
	e.now = func() time.Time { return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) }
	return e
}

func looseFilters() domain.SymbolFilters {
	return domain.SymbolFilters{MinNotional: 10, MinQty: 0.001, StepSize: 0.001}
}

func filled(qty, cumQuote float64) domain.OrderResult {
	return domain.OrderResult{Status: domain.OrderStatusFilled, ExecutedQty: qty, CumQuote: cumQuote}
}

func longIntent() domain.TradeIntent {
	return domain.TradeIntent{
		Symbol:       "BTCUSDT",
		Side:         domain.SideLongSpotShortDerivative,
		BuyPrice:     100,
		SellPrice:    101,
		Amount:       1,
		SpreadSigned: 75,
	}
}

func TestExecuteDirectional_HappyPath(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(1, 101)},
		{res: filled(1, 100)},
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteDirectional(context.Background(), longIntent())

	assert.True(t, outcome.Success)
	assert.Nil(t, outcome.Rollback)
	assert.False(t, outcome.NeedsIntervention())
	assert.InDelta(t, 100.0, outcome.SpentAmount, 1e-9)
	assert.InDelta(t, 0.75, outcome.RealizedProfit, 1e-9)

	require.Len(t, orders.calls, 2)
	// Hedge first, spot second; forward direction shorts the derivative.
	assert.Equal(t, "derivative", orders.calls[0].Leg)
	assert.Equal(t, domain.OrderSideSell, orders.calls[0].Side)
	assert.Equal(t, "spot", orders.calls[1].Leg)
	assert.Equal(t, domain.OrderSideBuy, orders.calls[1].Side)
	require.Len(t, outcome.Legs, 2)
}

func TestExecuteDirectional_ReverseUsesMarginBorrow(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(1, 101)},
		{res: filled(1, 100)},
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	intent := longIntent()
	intent.Side = domain.SideShortSpotLongDerivative
	outcome := e.ExecuteDirectional(context.Background(), intent)

	assert.True(t, outcome.Success)
	require.Len(t, orders.calls, 2)
	assert.Equal(t, domain.OrderSideBuy, orders.calls[0].Side)
	assert.Equal(t, "margin", orders.calls[1].Leg)
	assert.Equal(t, domain.OrderSideSell, orders.calls[1].Side)
	assert.True(t, orders.calls[1].AutoBorrow)
}

func TestExecuteDirectional_DryRunPlacesNoOrders(t *testing.T) {
	orders := &scriptedOrders{}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	intent := longIntent()
	intent.DryRun = true
	outcome := e.ExecuteDirectional(context.Background(), intent)

	assert.True(t, outcome.Success)
	assert.True(t, outcome.DryRun)
	assert.Empty(t, orders.calls)
	// Expected carry on the notional: 100 * 75bps.
	assert.InDelta(t, 0.75, outcome.RealizedProfit, 1e-9)
}

func TestExecuteDirectional_MinNotionalRejectedBeforeAnyOrder(t *testing.T) {
	orders := &scriptedOrders{}
	e := newTestExecutor(orders, &fakeSymbols{filters: domain.SymbolFilters{MinNotional: 1000}})

	outcome := e.ExecuteDirectional(context.Background(), longIntent())

	assert.False(t, outcome.Success)
	assert.Equal(t, "pre_trade_rejected_min_notional", outcome.Reason)
	assert.Empty(t, orders.calls)
	assert.Nil(t, outcome.Rollback)
}

func TestExecuteDirectional_HedgeFailureCommitsNothing(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{err: errors.New("venue down")},
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteDirectional(context.Background(), longIntent())

	assert.False(t, outcome.Success)
	assert.Equal(t, "hedge_leg_failed", outcome.Reason)
	assert.Nil(t, outcome.Rollback)
	assert.False(t, outcome.NeedsIntervention())
	require.Len(t, orders.calls, 1)
	require.Len(t, outcome.Legs, 1)
	assert.NotEmpty(t, outcome.Legs[0].Err)
}

func TestExecuteDirectional_SpotFailureCompensatesExactlyOnce(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(1, 101)},
		{err: errors.New("insufficient balance")},
		{res: filled(1, 101)}, // the compensating order
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteDirectional(context.Background(), longIntent())

	// The attempt is a failure even though the unwind succeeded.
	assert.False(t, outcome.Success)
	assert.Equal(t, "spot_leg_failed", outcome.Reason)
	require.NotNil(t, outcome.Rollback)
	assert.True(t, outcome.Rollback.Attempted)
	assert.True(t, outcome.Rollback.Success)
	assert.False(t, outcome.NeedsIntervention())

	require.Len(t, orders.calls, 3)
	comp := orders.calls[2]
	assert.Equal(t, "derivative", comp.Leg)
	assert.Equal(t, domain.OrderSideBuy, comp.Side) // opposite of the SELL hedge
	assert.InDelta(t, 1.0, comp.Quantity, 1e-9)
}

func TestExecuteDirectional_FailedCompensationNeedsIntervention(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(1, 101)},
		{err: errors.New("insufficient balance")},
		{err: errors.New("venue down")},
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteDirectional(context.Background(), longIntent())

	assert.False(t, outcome.Success)
	require.NotNil(t, outcome.Rollback)
	assert.True(t, outcome.Rollback.Attempted)
	assert.False(t, outcome.Rollback.Success)
	assert.True(t, outcome.NeedsIntervention())
	// Exactly one compensation attempt, never retried.
	assert.Len(t, orders.calls, 3)
}

func TestExecuteDirectional_PartialHedgeSizesSpotLeg(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: domain.OrderResult{Status: domain.OrderStatusPartiallyFilled, ExecutedQty: 0.4}},
		{res: filled(0.4, 40)},
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteDirectional(context.Background(), longIntent())

	assert.True(t, outcome.Success)
	require.Len(t, orders.calls, 2)
	assert.InDelta(t, 0.4, orders.calls[1].Quantity, 1e-9)
	assert.InDelta(t, 40.0, outcome.SpentAmount, 1e-9)
}

func TestQuantizeQty(t *testing.T) {
	filters := domain.SymbolFilters{MinQty: 0.01, StepSize: 0.01}

	tests := []struct {
		name string
		qty  float64
		want float64
	}{
		{"floors to step grid", 0.1234, 0.12},
		{"below min qty zeroes", 0.004, 0},
		{"exact step passes", 0.05, 0.05},
		{"zero stays zero", 0, 0},
		{"negative zeroes", -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, QuantizeQty(tt.qty, filters), 1e-9)
		})
	}

	// No step size passes the quantity through untouched.
	assert.InDelta(t, 0.1234, QuantizeQty(0.1234, domain.SymbolFilters{}), 1e-9)
}
