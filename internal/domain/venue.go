package domain

import (
	"context"
	"time"
)

// PriceSource fetches the current prices the decision cycle runs on. Both
// methods must return within a bounded timeout or the cycle treats them as
// failed.
type PriceSource interface {
	// GetMarketPrices returns the spot and derivative best prices for one
	// underlying symbol.
	GetMarketPrices(ctx context.Context, symbol string) (PriceQuote, error)
	// GetBookTickers returns best bid/ask for every spot symbol.
	GetBookTickers(ctx context.Context) ([]BookTicker, error)
}

// AccountSource reports available capital in settlement-asset units. It must
// return 0 rather than an error when no balance exists.
type AccountSource interface {
	GetAvailableCapital(ctx context.Context, asset string) (float64, error)
}

// RateSource fetches the carrying-cost inputs. Both default to 0 on failure
// at the call site; a missing rate is logged, never fatal.
type RateSource interface {
	GetFundingRateBpsPer8h(ctx context.Context, symbol string) (float64, error)
	GetBorrowAprPct(ctx context.Context, asset string) (float64, error)
}

// SymbolSource provides exchange-wide symbol metadata and liquidity stats.
type SymbolSource interface {
	GetExchangeSymbols(ctx context.Context) ([]SymbolInfo, error)
	GetSymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error)
	Get24hTickers(ctx context.Context) ([]Ticker24h, error)
}

// MarketOrder describes one market order to place. Exactly one of Quantity
// and QuoteAmount is set: Quantity is base units, QuoteAmount spends
// settlement units.
type MarketOrder struct {
	Symbol      string
	Side        OrderSide
	Quantity    float64
	QuoteAmount float64
	// Leg selects the venue segment: "spot", "derivative" or "margin".
	Leg string
	// AutoBorrow asks the venue to margin-borrow the sold asset (reverse
	// carry entry) and AutoRepay to repay on the buy-back.
	AutoBorrow bool
	AutoRepay  bool
}

// OrderPlacer submits market orders. Implementations never retry silently; a
// repeated call is always an explicit new order.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, order MarketOrder) (OrderResult, error)
}

// RateLimiter serializes and paces outbound venue calls. Acquire blocks until
// the caller may issue exactly one request; the returned release func must be
// called when the request completes.
type RateLimiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// CeilingLimiter is the optional venue-wide request ceiling shared across
// processes (Redis sliding window). The in-process pacer consults it when
// configured.
type CeilingLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
