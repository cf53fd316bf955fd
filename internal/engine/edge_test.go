package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

func TestComputeEdge_BasisAndNets(t *testing.T) {
	// 100 -> 101 is exactly 100 bps of basis.
	edge := ComputeEdge(EdgeInputs{
		Spot:       100,
		Derivative: 101,
		Fees: domain.FeeSchedule{
			SpotTakerBps:       10,
			DerivativeTakerBps: 5,
		},
		SlippageBpsPerLeg: 5,
	})

	assert.InDelta(t, 100.0, edge.BasisBps, 1e-9)
	assert.InDelta(t, 15.0, edge.FeesBps, 1e-9)
	assert.InDelta(t, 10.0, edge.SlippageBps, 1e-9)
	assert.Zero(t, edge.FundingBps)
	assert.Zero(t, edge.BorrowBps)
	assert.InDelta(t, 75.0, edge.NetLongCarryBps, 1e-9)
	assert.InDelta(t, -125.0, edge.NetReverseCarryBps, 1e-9)
}

func TestComputeEdge_FundingScalesWithHorizon(t *testing.T) {
	// 2 bps per 8h over a 24h horizon accrues 6 bps.
	edge := ComputeEdge(EdgeInputs{
		Spot:                100,
		Derivative:          101,
		ConsiderFunding:     true,
		FundingRateBpsPer8h: 2,
		FundingHorizonHours: 24,
	})

	assert.InDelta(t, 6.0, edge.FundingBps, 1e-9)
	// Funding helps the long-carry side and hurts the reverse side.
	assert.InDelta(t, 106.0, edge.NetLongCarryBps, 1e-9)
	assert.InDelta(t, -106.0, edge.NetReverseCarryBps, 1e-9)
}

func TestComputeEdge_FundingIgnoredWhenDisabled(t *testing.T) {
	edge := ComputeEdge(EdgeInputs{
		Spot:                100,
		Derivative:          101,
		ConsiderFunding:     false,
		FundingRateBpsPer8h: 50,
		FundingHorizonHours: 24,
	})

	assert.Zero(t, edge.FundingBps)
	assert.InDelta(t, 100.0, edge.NetLongCarryBps, 1e-9)
}

func TestComputeEdge_BorrowChargedOnReverseOnly(t *testing.T) {
	// 5% APR over 24h: 5 * 100 * 24/8760 bps.
	edge := ComputeEdge(EdgeInputs{
		Spot:                100,
		Derivative:          99,
		FundingHorizonHours: 24,
		BorrowAprPct:        5,
	})

	wantBorrow := 5.0 * 100 * (24.0 / 8760.0)
	assert.InDelta(t, wantBorrow, edge.BorrowBps, 1e-9)
	assert.InDelta(t, -100.0, edge.BasisBps, 1e-9)
	// The long side never pays borrow.
	assert.InDelta(t, -100.0, edge.NetLongCarryBps, 1e-9)
	assert.InDelta(t, 100.0-wantBorrow, edge.NetReverseCarryBps, 1e-9)
}

func TestComputeEdge_NegativeBorrowClamped(t *testing.T) {
	edge := ComputeEdge(EdgeInputs{
		Spot:                100,
		Derivative:          99,
		FundingHorizonHours: 24,
		BorrowAprPct:        -3,
	})
	assert.Zero(t, edge.BorrowBps)
}

func TestComputeEdge_DegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		in   EdgeInputs
	}{
		{"zero spot", EdgeInputs{Spot: 0, Derivative: 101}},
		{"negative spot", EdgeInputs{Spot: -1, Derivative: 101}},
		{"zero derivative", EdgeInputs{Spot: 100, Derivative: 0}},
		{"nan spot", EdgeInputs{Spot: math.NaN(), Derivative: 101}},
		{"inf derivative", EdgeInputs{Spot: 100, Derivative: math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, domain.EdgeMetrics{}, ComputeEdge(tt.in))
		})
	}
}
