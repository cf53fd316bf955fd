package domain

import "time"

// OrderSide indicates whether a leg buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderStatus is the venue-reported state of a placed order.
type OrderStatus string

const (
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusFailed          OrderStatus = "FAILED"
)

// Filled reports whether the order committed quantity to the book.
// PARTIALLY_FILLED counts as filled enough to proceed; the engine does not
// re-slice the remainder.
func (s OrderStatus) Filled() bool {
	return s == OrderStatusFilled || s == OrderStatusPartiallyFilled
}

// Fill is one execution report inside an order result.
type Fill struct {
	Price      float64
	Qty        float64
	Commission float64
}

// OrderResult is what the venue returns for one placed market order.
type OrderResult struct {
	OrderID     string
	Symbol      string
	Side        OrderSide
	Status      OrderStatus
	ExecutedQty float64
	// CumQuote is the settlement-asset value actually exchanged.
	CumQuote float64
	AvgPrice float64
	Fills    []Fill
}

// LegResult captures one leg of a multi-leg attempt, success or not.
type LegResult struct {
	Symbol string
	Side   OrderSide
	Order  OrderResult
	Err    string // empty on success
}

// RollbackResult records the compensating order issued after a later leg
// failed. Success false here is a terminal, human-escalation case.
type RollbackResult struct {
	Attempted bool
	Success   bool
	Order     OrderResult
	Err       string
}

// ExecutionOutcome is the immutable record of one execution attempt
// (directional or triangular). One is created per attempt and appended to
// the trade history; it is never mutated after creation.
type ExecutionOutcome struct {
	ID             string
	Kind           string // "directional" or "triangular"
	Symbol         string
	Side           Side
	Success        bool
	DryRun         bool
	RealizedProfit float64 // settlement-asset units
	SpentAmount    float64
	FinalAmount    float64
	Legs           []LegResult
	Rollback       *RollbackResult
	Reason         string // populated on skips and failures
	ExecutedAt     time.Time
}

// NeedsIntervention reports whether this outcome left a residual open
// position that must be surfaced as a critical alert: a compensating order
// that failed, or a committed leg for which no compensation was possible.
func (o ExecutionOutcome) NeedsIntervention() bool {
	return o.Rollback != nil && !o.Rollback.Success
}
