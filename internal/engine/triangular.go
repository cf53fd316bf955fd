package engine

import (
	"sort"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// ScanConfig configures one triangular scanner pass.
type ScanConfig struct {
	// SettlementAsset is the quote asset every route starts and ends in.
	SettlementAsset string
	// MinQuoteVolume is the 24h quote-volume floor a pair must clear to be
	// considered liquid enough.
	MinQuoteVolume float64
	TakerFeeBps    float64
	// SlippageBpsPerLeg worsens the execution price of every leg: raises
	// the effective ask, lowers the effective bid.
	SlippageBpsPerLeg float64
}

// legBook is the cycle-local view of one tradable pair.
type legBook struct {
	symbol string
	bid    float64
	ask    float64
}

// ScanTriangular enumerates every three-leg route through the settlement
// asset and returns the single best route by compounded multiplier across
// all base-asset pairs and both traversal directions. Ties keep the first
// found (strict greater-than). The second return is false when no feasible
// route exists at all; no profit threshold is applied here, that check
// belongs to the call site.
//
// Complexity is O(n²) in the number of eligible base assets, which the
// liquidity floor keeps small.
func ScanTriangular(
	symbols []domain.SymbolInfo,
	tickers []domain.BookTicker,
	volumes []domain.Ticker24h,
	cfg ScanConfig,
) (domain.TriangularRoute, bool) {
	books := make(map[string]legBook, len(tickers))
	for _, t := range tickers {
		if t.BidPrice > 0 && t.AskPrice > 0 {
			books[t.Symbol] = legBook{symbol: t.Symbol, bid: t.BidPrice, ask: t.AskPrice}
		}
	}
	volume := make(map[string]float64, len(volumes))
	for _, v := range volumes {
		volume[v.Symbol] = v.QuoteVolume
	}

	liquid := func(symbol string) (legBook, bool) {
		b, ok := books[symbol]
		if !ok || volume[symbol] < cfg.MinQuoteVolume {
			return legBook{}, false
		}
		return b, true
	}

	// Bases with a direct, liquid pair against the settlement asset.
	settleLeg := make(map[string]legBook)
	tradable := make(map[string]bool, len(symbols))
	var bases []string
	for _, s := range symbols {
		if !s.Trading {
			continue
		}
		tradable[s.Symbol] = true
		if s.QuoteAsset != cfg.SettlementAsset {
			continue
		}
		if b, ok := liquid(s.Symbol); ok {
			settleLeg[s.BaseAsset] = b
			bases = append(bases, s.BaseAsset)
		}
	}
	sort.Strings(bases)

	feeKeep := 1 - cfg.TakerFeeBps/10000
	slip := cfg.SlippageBpsPerLeg / 10000

	var (
		best      domain.TriangularRoute
		bestMult  float64
		bestFound bool
	)

	consider := func(mult float64, route domain.TriangularRoute) {
		if !bestFound || mult > bestMult {
			bestMult = mult
			best = route
			best.ExpectedNetBps = (mult - 1) * 10000
			bestFound = true
		}
	}

	for i := 0; i < len(bases); i++ {
		for j := i + 1; j < len(bases); j++ {
			a, b := bases[i], bases[j]

			// The cross market can exist in either orientation.
			crossSym, aIsBase := a+b, true
			cross, ok := liquid(crossSym)
			if !ok || !tradable[crossSym] {
				crossSym, aIsBase = b+a, false
				cross, ok = liquid(crossSym)
				if !ok || !tradable[crossSym] {
					continue
				}
			}

			legA, legB := settleLeg[a], settleLeg[b]

			// Forward: settlement -> a -> b -> settlement.
			if mult, ok := routeMultiplier(legA, cross, legB, aIsBase, feeKeep, slip); ok {
				consider(mult, domain.TriangularRoute{
					LegSymbols:      [3]string{legA.symbol, cross.symbol, legB.symbol},
					Direction:       domain.TraversalForward,
					MiddleBaseFirst: aIsBase,
				})
			}

			// Reverse: settlement -> b -> a -> settlement.
			if mult, ok := routeMultiplier(legB, cross, legA, !aIsBase, feeKeep, slip); ok {
				consider(mult, domain.TriangularRoute{
					LegSymbols:      [3]string{legB.symbol, cross.symbol, legA.symbol},
					Direction:       domain.TraversalReverse,
					MiddleBaseFirst: !aIsBase,
				})
			}
		}
	}

	return best, bestFound
}

// routeMultiplier compounds one unit of settlement asset through the three
// legs. firstIsBase says whether the first asset is the base of the cross
// pair (middle leg sells it) or its quote (middle leg buys the second asset
// with it). Every leg pays the taker fee and a slippage-worsened price.
func routeMultiplier(first, cross, last legBook, firstIsBase bool, feeKeep, slip float64) (float64, bool) {
	if feeKeep <= 0 {
		return 0, false
	}

	// Leg 1: buy the first asset with settlement at the (worsened) ask.
	ask1 := first.ask * (1 + slip)
	if ask1 <= 0 {
		return 0, false
	}
	qty := 1 / ask1 * feeKeep

	// Leg 2: cross the middle pair.
	if firstIsBase {
		qty = qty * cross.bid * (1 - slip) * feeKeep
	} else {
		ask2 := cross.ask * (1 + slip)
		if ask2 <= 0 {
			return 0, false
		}
		qty = qty / ask2 * feeKeep
	}

	// Leg 3: sell the second asset back to settlement at the (worsened) bid.
	final := qty * last.bid * (1 - slip) * feeKeep
	if final <= 0 {
		return 0, false
	}
	return final, true
}
