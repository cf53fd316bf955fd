package domain

import "math"

// Side is the directional verdict of the decision policy.
type Side string

const (
	// SideLongSpotShortDerivative buys spot and shorts the derivative,
	// harvesting a positive basis.
	SideLongSpotShortDerivative Side = "long_spot_short_derivative"
	// SideShortSpotLongDerivative borrow-sells spot and longs the
	// derivative, harvesting a negative basis. Gated behind margin
	// capability and a stricter threshold.
	SideShortSpotLongDerivative Side = "short_spot_long_derivative"
	// SideNone means no trade this cycle.
	SideNone Side = "none"
)

// Decision skip reasons, reported on the status surface when Side is none.
const (
	ReasonInvalidPrice         = "invalid_price"
	ReasonBasisConditionNotMet = "basis_condition_not_met"
	ReasonReverseNotAllowed    = "reverse_not_allowed"
	ReasonBorrowAprTooHigh     = "borrow_apr_too_high"
	ReasonBelowThreshold       = "below_threshold"
)

// EdgeMetrics is the derived per-cycle economics of the spot/derivative pair.
// Recomputed every cycle, never mutated in place. All values are basis points.
type EdgeMetrics struct {
	BasisBps           float64
	FeesBps            float64
	SlippageBps        float64
	FundingBps         float64
	BorrowBps          float64
	NetLongCarryBps    float64
	NetReverseCarryBps float64
}

// isFinitePositive reports whether v is a usable price or amount.
func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Sanitize returns v, or 0 when v is NaN or infinite. The pure calculators
// never let non-finite inputs propagate.
func Sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
