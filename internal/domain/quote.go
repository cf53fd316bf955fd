// Package domain defines the core value types and collaborator interfaces for
// the basis bot: price quotes, edge metrics, trade intents, triangular routes,
// execution outcomes, and the store/cache/venue ports the engine consumes.
package domain

import "time"

// PriceQuote is the pair of prices one decision cycle operates on. It is
// refreshed every cycle and never persisted directly.
type PriceQuote struct {
	Symbol          string
	SpotPrice       float64
	DerivativePrice float64
}

// Valid reports whether both legs carry a usable price. A zero or non-finite
// price invalidates the whole cycle.
func (q PriceQuote) Valid() bool {
	return isFinitePositive(q.SpotPrice) && isFinitePositive(q.DerivativePrice)
}

// BookTicker is the best bid/ask for one symbol as reported by the venue.
type BookTicker struct {
	Symbol   string
	BidPrice float64
	BidQty   float64
	AskPrice float64
	AskQty   float64
}

// Ticker24h carries the rolling 24h statistics used for liquidity filtering.
type Ticker24h struct {
	Symbol      string
	QuoteVolume float64
	LastPrice   float64
}

// FeeSchedule is the static taker-fee configuration, immutable per run.
// All values are basis points.
type FeeSchedule struct {
	SpotTakerBps       float64
	DerivativeTakerBps float64
}

// SymbolInfo is the exchange-wide metadata for one tradable symbol.
type SymbolInfo struct {
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	Trading    bool // status == TRADING
	Filters    SymbolFilters
}

// SymbolFilters are the exchange-enforced order constraints for a symbol.
// They are fetched per symbol as needed and cached only within a cycle;
// filters can change and staleness is cheap to avoid by refetching.
type SymbolFilters struct {
	MinNotional float64
	MinQty      float64
	StepSize    float64
	TickSize    float64
	FetchedAt   time.Time
}
