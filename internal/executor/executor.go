// Package executor places the multi-leg trades the decision engine asks for.
// A directional execution is a two-leg saga (derivative hedge, then spot
// leg) whose second-leg failure triggers exactly one compensating order
// against the first leg. A triangular execution is a sequential three-leg
// chain through the settlement asset. Every leg result is captured in the
// outcome regardless of how the attempt ends.
package executor

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// Executor owns the lifetime of a single multi-leg attempt, including its
// rollback, and hands the finished outcome back to the caller.
type Executor struct {
	orders  domain.OrderPlacer
	symbols domain.SymbolSource
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an Executor that places orders through orders and validates
// quantities against the filters reported by symbols.
func New(orders domain.OrderPlacer, symbols domain.SymbolSource, logger *slog.Logger) *Executor {
	return &Executor{
		orders:  orders,
		symbols: symbols,
		logger:  logger.With(slog.String("component", "executor")),
		now:     time.Now,
	}
}

// ExecuteDirectional runs one spot/derivative execution for the given
// intent. The derivative hedge is placed first; nothing is committed if it
// fails. A spot-leg failure after the hedge triggers one compensating
// derivative order to flatten the position. A failed compensation is
// terminal and surfaced for manual intervention, never retried here.
func (e *Executor) ExecuteDirectional(ctx context.Context, intent domain.TradeIntent) domain.ExecutionOutcome {
	outcome := domain.ExecutionOutcome{
		ID:         uuid.New().String(),
		Kind:       "directional",
		Symbol:     intent.Symbol,
		Side:       intent.Side,
		DryRun:     intent.DryRun,
		ExecutedAt: e.now().UTC(),
	}

	log := e.logger.With(
		slog.String("outcome_id", outcome.ID),
		slog.String("symbol", intent.Symbol),
		slog.String("side", string(intent.Side)),
	)

	if intent.DryRun {
		outcome.Success = true
		outcome.RealizedProfit = intent.Notional() * intent.SpreadSigned / 10000
		log.Info("dry run, no orders placed",
			slog.Float64("notional", intent.Notional()),
			slog.Float64("expected_profit", outcome.RealizedProfit),
		)
		return outcome
	}

	// Quantize against the spot symbol's live filters. The venue would
	// reject a misaligned quantity anyway; rejecting here is free.
	filters, err := e.symbols.GetSymbolFilters(ctx, intent.Symbol)
	if err != nil {
		outcome.Reason = "filter_fetch_failed: " + err.Error()
		return outcome
	}
	qty := QuantizeQty(intent.Amount, filters)
	if qty <= 0 || qty*intent.BuyPrice < filters.MinNotional {
		outcome.Reason = "pre_trade_rejected_min_notional"
		log.Info("pre-trade rejection", slog.Float64("qty", qty))
		return outcome
	}

	hedgeSide, spotLeg := legsFor(intent.Side)

	// Leg 1: the derivative hedge. On failure nothing is committed yet.
	hedge, hedgeErr := e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
		Symbol:   intent.Symbol,
		Side:     hedgeSide,
		Quantity: qty,
		Leg:      "derivative",
	})
	outcome.Legs = append(outcome.Legs, legResult(intent.Symbol, hedgeSide, hedge, hedgeErr))
	if hedgeErr != nil || !hedge.Status.Filled() {
		outcome.Reason = "hedge_leg_failed"
		log.Warn("hedge leg failed, nothing to unwind", slog.Any("error", hedgeErr))
		return outcome
	}

	// Leg 2: the spot (or margin) leg, sized to what the hedge actually
	// filled. PARTIALLY_FILLED proceeds with the executed quantity.
	spotQty := QuantizeQty(hedge.ExecutedQty, filters)
	spot, spotErr := e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
		Symbol:     intent.Symbol,
		Side:       spotLeg.side,
		Quantity:   spotQty,
		Leg:        spotLeg.venue,
		AutoBorrow: spotLeg.autoBorrow,
	})
	outcome.Legs = append(outcome.Legs, legResult(intent.Symbol, spotLeg.side, spot, spotErr))

	if spotErr == nil && spot.Status.Filled() {
		outcome.Success = true
		outcome.SpentAmount = spotQty * intent.BuyPrice
		outcome.RealizedProfit = spotQty * intent.BuyPrice * intent.SpreadSigned / 10000
		log.Info("directional execution complete",
			slog.Float64("qty", spotQty),
			slog.Float64("expected_carry", outcome.RealizedProfit),
		)
		return outcome
	}

	// Spot leg failed after the hedge committed: flatten the hedge with
	// one opposite-side order. The compensation result is recorded either
	// way; the attempt as a whole is a failure regardless.
	log.Warn("spot leg failed, compensating hedge", slog.Any("error", spotErr))
	comp, compErr := e.orders.PlaceMarketOrder(ctx, domain.MarketOrder{
		Symbol:   intent.Symbol,
		Side:     opposite(hedgeSide),
		Quantity: hedge.ExecutedQty,
		Leg:      "derivative",
	})

	rollback := &domain.RollbackResult{
		Attempted: true,
		Success:   compErr == nil && comp.Status.Filled(),
		Order:     comp,
	}
	if compErr != nil {
		rollback.Err = compErr.Error()
	}
	outcome.Rollback = rollback
	outcome.Reason = "spot_leg_failed"

	if !rollback.Success {
		log.Error("compensation failed, manual intervention required",
			slog.String("hedge_order_id", hedge.OrderID),
			slog.String("rollback_error", rollback.Err),
		)
	}
	return outcome
}

// spotLegSpec describes the non-derivative leg of a directional trade.
type spotLegSpec struct {
	side       domain.OrderSide
	venue      string
	autoBorrow bool
}

// legsFor maps a side verdict onto concrete legs. The forward direction
// buys spot outright; the reverse direction borrow-sells spot on margin.
func legsFor(side domain.Side) (hedge domain.OrderSide, spot spotLegSpec) {
	if side == domain.SideShortSpotLongDerivative {
		return domain.OrderSideBuy, spotLegSpec{
			side:       domain.OrderSideSell,
			venue:      "margin",
			autoBorrow: true,
		}
	}
	return domain.OrderSideSell, spotLegSpec{
		side:  domain.OrderSideBuy,
		venue: "spot",
	}
}

func opposite(s domain.OrderSide) domain.OrderSide {
	if s == domain.OrderSideBuy {
		return domain.OrderSideSell
	}
	return domain.OrderSideBuy
}

func legResult(symbol string, side domain.OrderSide, res domain.OrderResult, err error) domain.LegResult {
	lr := domain.LegResult{Symbol: symbol, Side: side, Order: res}
	if err != nil {
		lr.Err = err.Error()
	}
	return lr
}

// QuantizeQty floors qty onto the symbol's step grid and zeroes quantities
// below the minimum. A zero step size passes the quantity through.
func QuantizeQty(qty float64, filters domain.SymbolFilters) float64 {
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return 0
	}
	if filters.StepSize > 0 {
		steps := math.Floor(qty / filters.StepSize)
		qty = steps * filters.StepSize
	}
	if filters.MinQty > 0 && qty < filters.MinQty {
		return 0
	}
	return qty
}
