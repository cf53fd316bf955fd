// Package engine holds the pure decision core: the net-edge calculator, the
// side decision policy, and the triangular route scanner. Nothing in this
// package performs I/O; every function is deterministic in its inputs.
package engine

import (
	"github.com/alanyoungcy/basisbot/internal/domain"
)

// hoursPerFundingPeriod is the venue's funding interval.
const hoursPerFundingPeriod = 8.0

// hoursPerYear converts an APR into an hourly accrual.
const hoursPerYear = 24.0 * 365.0

// EdgeInputs are the inputs to one net-edge computation. Prices must be
// finite; a non-positive spot yields the all-zero result, which is a defined
// degenerate case rather than an error.
type EdgeInputs struct {
	Spot       float64
	Derivative float64

	Fees              domain.FeeSchedule
	SlippageBpsPerLeg float64

	ConsiderFunding     bool
	FundingRateBpsPer8h float64
	FundingHorizonHours float64

	// BorrowAprPct is the margin borrow rate in percent per year, clamped
	// to >= 0. It is charged only on the reverse-carry direction.
	BorrowAprPct float64
}

// ComputeEdge derives the basis and the two directional net edges from one
// price pair and the configured cost assumptions. NaN/Infinity inputs are
// sanitized to 0 rather than propagated.
func ComputeEdge(in EdgeInputs) domain.EdgeMetrics {
	spot := domain.Sanitize(in.Spot)
	derivative := domain.Sanitize(in.Derivative)
	if spot <= 0 || derivative <= 0 {
		return domain.EdgeMetrics{}
	}

	slippage := domain.Sanitize(in.SlippageBpsPerLeg)
	horizon := domain.Sanitize(in.FundingHorizonHours)
	borrowApr := domain.Sanitize(in.BorrowAprPct)
	if borrowApr < 0 {
		borrowApr = 0
	}

	basisBps := (derivative - spot) / spot * 10000

	feesBps := domain.Sanitize(in.Fees.SpotTakerBps) + domain.Sanitize(in.Fees.DerivativeTakerBps)
	// One entry and one exit leg.
	slippageTotalBps := 2 * slippage

	var fundingBps float64
	if in.ConsiderFunding {
		fundingBps = domain.Sanitize(in.FundingRateBpsPer8h) * (horizon / hoursPerFundingPeriod)
	}

	var borrowBps float64
	if borrowApr > 0 {
		borrowBps = borrowApr * 100 * (horizon / hoursPerYear)
	}

	return domain.EdgeMetrics{
		BasisBps:           basisBps,
		FeesBps:            feesBps,
		SlippageBps:        slippageTotalBps,
		FundingBps:         fundingBps,
		BorrowBps:          borrowBps,
		NetLongCarryBps:    basisBps - feesBps - slippageTotalBps + fundingBps,
		NetReverseCarryBps: -basisBps - feesBps - slippageTotalBps - borrowBps - fundingBps,
	}
}
