package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

func reverseRoute() domain.TriangularRoute {
	return domain.TriangularRoute{
		LegSymbols:      [3]string{"ETHUSDT", "ETHBTC", "BTCUSDT"},
		Direction:       domain.TraversalReverse,
		ExpectedNetBps:  49,
		MiddleBaseFirst: true,
	}
}

func TestExecuteTriangular_ProfitableChain(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(0.13, 400)},       // buy ETH with 400 USDT
		{res: filled(0.13, 0.008)},     // sell ETH for BTC
		{res: filled(0.008, 404)},      // sell BTC back to USDT
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
	})

	assert.True(t, outcome.Success)
	assert.InDelta(t, 400.0, outcome.SpentAmount, 1e-9)
	assert.InDelta(t, 404.0, outcome.FinalAmount, 1e-9)
	assert.InDelta(t, 4.0, outcome.RealizedProfit, 1e-9)
	require.Len(t, outcome.Legs, 3)
	assert.Nil(t, outcome.Rollback)

	require.Len(t, orders.calls, 3)
	assert.InDelta(t, 400.0, orders.calls[0].QuoteAmount, 1e-9)
	assert.Equal(t, domain.OrderSideBuy, orders.calls[0].Side)
	assert.Equal(t, domain.OrderSideSell, orders.calls[1].Side)
	assert.InDelta(t, 0.13, orders.calls[1].Quantity, 1e-9)
	assert.Equal(t, domain.OrderSideSell, orders.calls[2].Side)
	assert.InDelta(t, 0.008, orders.calls[2].Quantity, 1e-9)
}

func TestExecuteTriangular_CompletedButUnprofitable(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(0.13, 400)},
		{res: filled(0.13, 0.008)},
		{res: filled(0.008, 396)}, // prices moved, chain lost money
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
	})

	// All three legs filled, yet the goal is profit, not completion.
	assert.False(t, outcome.Success)
	assert.InDelta(t, -4.0, outcome.RealizedProfit, 1e-9)
	require.Len(t, outcome.Legs, 3)
}

func TestExecuteTriangular_QuoteSpendMiddleLeg(t *testing.T) {
	route := domain.TriangularRoute{
		LegSymbols:      [3]string{"BTCUSDT", "ETHBTC", "ETHUSDT"},
		Direction:       domain.TraversalForward,
		MiddleBaseFirst: false,
	}
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(0.008, 400)}, // buy BTC with 400 USDT
		{res: filled(0.13, 0.008)}, // spend the BTC buying ETH
		{res: filled(0.13, 405)},   // sell ETH back to USDT
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteTriangular(context.Background(), route, 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
	})

	assert.True(t, outcome.Success)
	require.Len(t, orders.calls, 3)
	// The middle leg buys with the first asset as quote currency.
	assert.Equal(t, domain.OrderSideBuy, orders.calls[1].Side)
	assert.InDelta(t, 0.008, orders.calls[1].QuoteAmount, 1e-9)
	assert.Zero(t, orders.calls[1].Quantity)
	assert.InDelta(t, 0.13, orders.calls[2].Quantity, 1e-9)
}

func TestExecuteTriangular_SpendClamping(t *testing.T) {
	e := newTestExecutor(&scriptedOrders{}, &fakeSymbols{filters: looseFilters()})

	// Budget caps the safety-scaled balance.
	out := e.ExecuteTriangular(context.Background(), reverseRoute(), 10_000, TriangularConfig{
		Budget:         300,
		SafetyFraction: 0.9,
		DryRun:         true,
	})
	assert.InDelta(t, 300.0, out.SpentAmount, 1e-9)

	// Out-of-range safety fraction falls back to 0.95.
	out = e.ExecuteTriangular(context.Background(), reverseRoute(), 100, TriangularConfig{
		SafetyFraction: 1.5,
		DryRun:         true,
	})
	assert.InDelta(t, 95.0, out.SpentAmount, 1e-9)
}

func TestExecuteTriangular_NoCapital(t *testing.T) {
	orders := &scriptedOrders{}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 0, TriangularConfig{
		SafetyFraction: 0.5,
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "no_capital", outcome.Reason)
	assert.Empty(t, orders.calls)
}

func TestExecuteTriangular_DryRun(t *testing.T) {
	orders := &scriptedOrders{}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
		DryRun:         true,
	})

	assert.True(t, outcome.Success)
	assert.Empty(t, orders.calls)
	assert.InDelta(t, 400*49.0/10000, outcome.RealizedProfit, 1e-9)
	assert.InDelta(t, 400+400*49.0/10000, outcome.FinalAmount, 1e-9)
}

func TestExecuteTriangular_MinNotionalRejectedBeforeAnyOrder(t *testing.T) {
	orders := &scriptedOrders{}
	e := newTestExecutor(orders, &fakeSymbols{filters: domain.SymbolFilters{MinNotional: 1000}})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "pre_trade_rejected_min_notional", outcome.Reason)
	assert.Empty(t, orders.calls)
}

func TestExecuteTriangular_MiddleLegFailureCompensatesOnce(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(0.13, 400)},
		{err: errors.New("venue rejected")},
		{res: filled(0.13, 399)}, // unwind sells the first asset back
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "leg2_failed", outcome.Reason)
	require.NotNil(t, outcome.Rollback)
	assert.True(t, outcome.Rollback.Attempted)
	assert.True(t, outcome.Rollback.Success)
	assert.False(t, outcome.NeedsIntervention())

	require.Len(t, orders.calls, 3)
	comp := orders.calls[2]
	assert.Equal(t, "ETHUSDT", comp.Symbol)
	assert.Equal(t, domain.OrderSideSell, comp.Side)
	assert.InDelta(t, 0.13, comp.Quantity, 1e-9)
}

func TestExecuteTriangular_QuantizedToZeroLeavesResidual(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(0.13, 400)},
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: domain.SymbolFilters{MinQty: 1, StepSize: 0.001, MinNotional: 10}})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "quantized_to_zero", outcome.Reason)
	require.NotNil(t, outcome.Rollback)
	assert.False(t, outcome.Rollback.Attempted)
	assert.True(t, outcome.NeedsIntervention())
	// Leg one committed and nothing else was placed.
	assert.Len(t, orders.calls, 1)
}

func TestExecuteTriangular_FinalLegFailureEscalates(t *testing.T) {
	orders := &scriptedOrders{steps: []orderStep{
		{res: filled(0.13, 400)},
		{res: filled(0.13, 0.008)},
		{err: errors.New("venue down")},
	}}
	e := newTestExecutor(orders, &fakeSymbols{filters: looseFilters()})

	outcome := e.ExecuteTriangular(context.Background(), reverseRoute(), 1000, TriangularConfig{
		Budget:         400,
		SafetyFraction: 0.5,
	})

	assert.False(t, outcome.Success)
	assert.Equal(t, "leg3_failed", outcome.Reason)
	require.NotNil(t, outcome.Rollback)
	assert.False(t, outcome.Rollback.Attempted)
	assert.True(t, outcome.NeedsIntervention())
	assert.Len(t, orders.calls, 3)
}
