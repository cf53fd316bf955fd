package engine

import (
	"github.com/alanyoungcy/basisbot/internal/domain"
)

// PolicyConfig bundles the thresholds and capability flags the side decision
// runs under. The reverse direction carries borrowing risk and margin-call
// exposure absent from the forward direction, so it sits behind its own flag
// and its own, typically stricter, threshold.
type PolicyConfig struct {
	Fees              domain.FeeSchedule
	SlippageBpsPerLeg float64

	ConsiderFunding     bool
	FundingHorizonHours float64

	MinSpreadBpsLongCarry float64
	MinSpreadBpsReverse   float64

	AllowReverse      bool
	SpotMarginEnabled bool
	MaxBorrowAprPct   float64
}

// Decision is the output of one policy evaluation.
type Decision struct {
	Side   domain.Side
	Edge   domain.EdgeMetrics
	Reason string // populated when Side is none
}

// DecideSide evaluates the ordered decision rules against one price pair and
// the live funding/borrow rates. First match wins.
func DecideSide(spot, derivative float64, cfg PolicyConfig, fundingRateBpsPer8h, borrowAprPct float64) Decision {
	spot = domain.Sanitize(spot)
	derivative = domain.Sanitize(derivative)
	if spot <= 0 || derivative <= 0 {
		return Decision{Side: domain.SideNone, Reason: domain.ReasonInvalidPrice}
	}

	edge := ComputeEdge(EdgeInputs{
		Spot:                spot,
		Derivative:          derivative,
		Fees:                cfg.Fees,
		SlippageBpsPerLeg:   cfg.SlippageBpsPerLeg,
		ConsiderFunding:     cfg.ConsiderFunding,
		FundingRateBpsPer8h: fundingRateBpsPer8h,
		FundingHorizonHours: cfg.FundingHorizonHours,
		BorrowAprPct:        borrowAprPct,
	})

	if derivative > spot && edge.NetLongCarryBps >= cfg.MinSpreadBpsLongCarry {
		return Decision{Side: domain.SideLongSpotShortDerivative, Edge: edge}
	}

	if derivative < spot {
		if !cfg.AllowReverse || !cfg.SpotMarginEnabled {
			return Decision{Side: domain.SideNone, Edge: edge, Reason: domain.ReasonReverseNotAllowed}
		}
		if domain.Sanitize(borrowAprPct) > cfg.MaxBorrowAprPct {
			return Decision{Side: domain.SideNone, Edge: edge, Reason: domain.ReasonBorrowAprTooHigh}
		}
		if edge.NetReverseCarryBps >= cfg.MinSpreadBpsReverse {
			return Decision{Side: domain.SideShortSpotLongDerivative, Edge: edge}
		}
	}

	return Decision{Side: domain.SideNone, Edge: edge, Reason: domain.ReasonBasisConditionNotMet}
}
