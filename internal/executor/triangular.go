package executor

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// TriangularConfig bounds one triangular execution.
type TriangularConfig struct {
	// Budget is the configured maximum settlement-asset spend per route.
	Budget float64
	// SafetyFraction caps the spend as a fraction of the available
	// balance, keeping headroom for fees and price movement.
	SafetyFraction float64
	DryRun         bool
}

// ExecuteTriangular walks the route's three legs sequentially. The spend is
// clamped and validated against the first symbol's minimum notional before
// any order is placed; after leg one the realized quantity is requantized to
// the next leg's filters. Success means the final settlement amount exceeds
// the spend; a completed chain that lost money records success false.
func (e *Executor) ExecuteTriangular(
	ctx context.Context,
	route domain.TriangularRoute,
	available float64,
	cfg TriangularConfig,
) domain.ExecutionOutcome {
	outcome := domain.ExecutionOutcome{
		ID:         uuid.New().String(),
		Kind:       "triangular",
		Symbol:     route.LegSymbols[0] + ">" + route.LegSymbols[1] + ">" + route.LegSymbols[2],
		Side:       domain.SideNone,
		DryRun:     cfg.DryRun,
		ExecutedAt: e.now().UTC(),
	}

	log := e.logger.With(
		slog.String("outcome_id", outcome.ID),
		slog.String("route", outcome.Symbol),
		slog.String("direction", string(route.Direction)),
	)

	safety := cfg.SafetyFraction
	if safety <= 0 || safety > 1 {
		safety = 0.95
	}
	spend := available * safety
	if cfg.Budget > 0 && spend > cfg.Budget {
		spend = cfg.Budget
	}
	outcome.SpentAmount = spend

	if spend <= 0 {
		outcome.Reason = "no_capital"
		return outcome
	}

	if cfg.DryRun {
		outcome.Success = true
		outcome.RealizedProfit = spend * route.ExpectedNetBps / 10000
		outcome.FinalAmount = spend + outcome.RealizedProfit
		log.Info("dry run, no orders placed",
			slog.Float64("spend", spend),
			slog.Float64("expected_net_bps", route.ExpectedNetBps),
		)
		return outcome
	}

	// Pre-trade validation: no order is placed when leg one cannot meet
	// the venue minimum, so there is no partial state to unwind.
	firstFilters, err := e.symbols.GetSymbolFilters(ctx, route.LegSymbols[0])
	if err != nil {
		outcome.Reason = "filter_fetch_failed: " + err.Error()
		return outcome
	}
	if firstFilters.MinNotional > 0 && spend < firstFilters.MinNotional {
		outcome.Reason = "pre_trade_rejected_min_notional"
		log.Info("pre-trade rejection", slog.Float64("spend", spend))
		return outcome
	}

	// Leg 1: settlement asset into the first base asset.
	leg1, err := e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
		Symbol:      route.LegSymbols[0],
		Side:        domain.OrderSideBuy,
		QuoteAmount: spend,
		Leg:         "spot",
	})
	outcome.Legs = append(outcome.Legs, legResult(route.LegSymbols[0], domain.OrderSideBuy, leg1, err))
	if err != nil || !leg1.Status.Filled() {
		outcome.Reason = "leg1_failed"
		return outcome
	}

	// Requantize the realized output to leg two's grid. Quantizing to zero
	// is a known residual-risk outcome: leg one already executed, and that
	// must be surfaced rather than hidden.
	midFilters, err := e.symbols.GetSymbolFilters(ctx, route.LegSymbols[1])
	if err != nil {
		outcome.Reason = "filter_fetch_failed: " + err.Error()
		outcome.Rollback = &domain.RollbackResult{Attempted: false, Success: false, Err: "residual position in first leg asset"}
		return outcome
	}

	var leg2 domain.OrderResult
	var leg2Qty float64
	if route.MiddleBaseFirst {
		// The first asset is the base of the cross pair: sell it.
		leg2Qty = QuantizeQty(leg1.ExecutedQty, midFilters)
		if leg2Qty <= 0 {
			outcome.Reason = "quantized_to_zero"
			outcome.Rollback = &domain.RollbackResult{Attempted: false, Success: false, Err: "residual position in first leg asset"}
			log.Warn("middle leg quantized to zero, residual position left")
			return outcome
		}
		leg2, err = e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
			Symbol:   route.LegSymbols[1],
			Side:     domain.OrderSideSell,
			Quantity: leg2Qty,
			Leg:      "spot",
		})
	} else {
		// The first asset is the quote of the cross pair: spend it buying
		// the second asset.
		leg2, err = e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
			Symbol:      route.LegSymbols[1],
			Side:        domain.OrderSideBuy,
			QuoteAmount: leg1.ExecutedQty,
			Leg:         "spot",
		})
	}
	side2 := domain.OrderSideSell
	if !route.MiddleBaseFirst {
		side2 = domain.OrderSideBuy
	}
	outcome.Legs = append(outcome.Legs, legResult(route.LegSymbols[1], side2, leg2, err))
	if err != nil || !leg2.Status.Filled() {
		// Leg one committed; unwind by selling the first asset back to the
		// settlement asset. One attempt, recorded either way.
		outcome.Reason = "leg2_failed"
		e.compensateTriangular(ctx, &outcome, route.LegSymbols[0], leg1.ExecutedQty, log)
		return outcome
	}

	// Quantity of the second asset now held.
	secondQty := leg2.ExecutedQty
	if route.MiddleBaseFirst {
		secondQty = leg2.CumQuote
	}

	// Leg 3: always liquidates the intermediate asset back to settlement.
	lastFilters, err := e.symbols.GetSymbolFilters(ctx, route.LegSymbols[2])
	if err != nil {
		outcome.Reason = "filter_fetch_failed: " + err.Error()
		outcome.Rollback = &domain.RollbackResult{Attempted: false, Success: false, Err: "residual position in intermediate asset"}
		return outcome
	}
	leg3Qty := QuantizeQty(secondQty, lastFilters)
	if leg3Qty <= 0 {
		outcome.Reason = "quantized_to_zero"
		outcome.Rollback = &domain.RollbackResult{Attempted: false, Success: false, Err: "residual position in intermediate asset"}
		log.Warn("final leg quantized to zero, residual position left")
		return outcome
	}

	leg3, err := e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
		Symbol:   route.LegSymbols[2],
		Side:     domain.OrderSideSell,
		Quantity: leg3Qty,
		Leg:      "spot",
	})
	outcome.Legs = append(outcome.Legs, legResult(route.LegSymbols[2], domain.OrderSideSell, leg3, err))
	if err != nil || !leg3.Status.Filled() {
		// The compensating action for a stuck intermediate asset is the
		// liquidation that just failed; retrying silently is not allowed.
		outcome.Reason = "leg3_failed"
		outcome.Rollback = &domain.RollbackResult{Attempted: false, Success: false, Err: "intermediate asset liquidation failed"}
		log.Error("final liquidation failed, manual intervention required")
		return outcome
	}

	outcome.FinalAmount = leg3.CumQuote
	outcome.RealizedProfit = outcome.FinalAmount - spend
	// The goal is profit, not completion.
	outcome.Success = outcome.FinalAmount > spend

	log.Info("triangular execution complete",
		slog.Float64("spend", spend),
		slog.Float64("final", outcome.FinalAmount),
		slog.Bool("profitable", outcome.Success),
	)
	return outcome
}

// compensateTriangular sells qty of the first leg's base asset back to the
// settlement asset after a middle-leg failure.
func (e *Executor) compensateTriangular(ctx context.Context, outcome *domain.ExecutionOutcome, symbol string, qty float64, log *slog.Logger) {
	comp, err := e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
		Symbol:   symbol,
		Side:     domain.OrderSideSell,
		Quantity: qty,
		Leg:      "spot",
	})
	rollback := &domain.RollbackResult{
		Attempted: true,
		Success:   err == nil && comp.Status.Filled(),
		Order:     comp,
	}
	if err != nil {
		rollback.Err = err.Error()
	}
	outcome.Rollback = rollback
	if !rollback.Success {
		log.Error("triangular compensation failed, manual intervention required",
			slog.String("symbol", symbol),
			slog.String("error", rollback.Err),
		)
	}
}
