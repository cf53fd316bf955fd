package binance

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// GetMarketPrices returns the spot best ask and derivative best bid for one
// underlying symbol, the two prices one decision cycle runs on.
func (c *Client) GetMarketPrices(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var spot bookTickerResp
	if err := c.doPublic(ctx, c.creds.SpotBaseURL, "/api/v3/ticker/bookTicker", params, &spot); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: spot book ticker %s: %w", symbol, err)
	}

	futParams := url.Values{}
	futParams.Set("symbol", symbol)
	var fut bookTickerResp
	if err := c.doPublic(ctx, c.creds.FutBaseURL, "/fapi/v1/ticker/bookTicker", futParams, &fut); err != nil {
		return domain.PriceQuote{}, fmt.Errorf("binance: futures book ticker %s: %w", symbol, err)
	}

	return domain.PriceQuote{
		Symbol:          symbol,
		SpotPrice:       f(spot.AskPrice),
		DerivativePrice: f(fut.BidPrice),
	}, nil
}

// GetBookTickers returns best bid/ask for every spot symbol.
func (c *Client) GetBookTickers(ctx context.Context) ([]domain.BookTicker, error) {
	var raw []bookTickerResp
	if err := c.doPublic(ctx, c.creds.SpotBaseURL, "/api/v3/ticker/bookTicker", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance: book tickers: %w", err)
	}

	out := make([]domain.BookTicker, 0, len(raw))
	for _, t := range raw {
		out = append(out, domain.BookTicker{
			Symbol:   t.Symbol,
			BidPrice: f(t.BidPrice),
			BidQty:   f(t.BidQty),
			AskPrice: f(t.AskPrice),
			AskQty:   f(t.AskQty),
		})
	}
	return out, nil
}

// Get24hTickers returns rolling 24h statistics for every spot symbol.
func (c *Client) Get24hTickers(ctx context.Context) ([]domain.Ticker24h, error) {
	var raw []ticker24hResp
	if err := c.doPublic(ctx, c.creds.SpotBaseURL, "/api/v3/ticker/24hr", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance: 24h tickers: %w", err)
	}

	out := make([]domain.Ticker24h, 0, len(raw))
	for _, t := range raw {
		out = append(out, domain.Ticker24h{
			Symbol:      t.Symbol,
			QuoteVolume: f(t.QuoteVolume),
			LastPrice:   f(t.LastPrice),
		})
	}
	return out, nil
}

// GetExchangeSymbols returns the full tradable-symbol list with quote-asset
// classification and filters.
func (c *Client) GetExchangeSymbols(ctx context.Context) ([]domain.SymbolInfo, error) {
	var raw exchangeInfoResp
	if err := c.doPublic(ctx, c.creds.SpotBaseURL, "/api/v3/exchangeInfo", nil, &raw); err != nil {
		return nil, fmt.Errorf("binance: exchange info: %w", err)
	}

	out := make([]domain.SymbolInfo, 0, len(raw.Symbols))
	for _, s := range raw.Symbols {
		out = append(out, domain.SymbolInfo{
			Symbol:     s.Symbol,
			BaseAsset:  s.BaseAsset,
			QuoteAsset: s.QuoteAsset,
			Trading:    s.Status == "TRADING",
			Filters:    parseFilters(s.Filters),
		})
	}
	return out, nil
}

// GetSymbolFilters fetches the current trading filters for one symbol.
// Callers cache the result only within a cycle; filters can change and
// staleness is cheap to avoid by refetching.
func (c *Client) GetSymbolFilters(ctx context.Context, symbol string) (domain.SymbolFilters, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var raw exchangeInfoResp
	if err := c.doPublic(ctx, c.creds.SpotBaseURL, "/api/v3/exchangeInfo", params, &raw); err != nil {
		return domain.SymbolFilters{}, fmt.Errorf("binance: exchange info %s: %w", symbol, err)
	}
	if len(raw.Symbols) == 0 {
		return domain.SymbolFilters{}, fmt.Errorf("binance: exchange info %s: %w", symbol, domain.ErrNotFound)
	}
	return parseFilters(raw.Symbols[0].Filters), nil
}

// GetFundingRateBpsPer8h returns the derivative's current funding rate,
// converted from the venue's fractional representation to basis points per
// 8h period.
func (c *Client) GetFundingRateBpsPer8h(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var raw premiumIndexResp
	if err := c.doPublic(ctx, c.creds.FutBaseURL, "/fapi/v1/premiumIndex", params, &raw); err != nil {
		return 0, fmt.Errorf("binance: premium index %s: %w", symbol, err)
	}
	return f(raw.LastFundingRate) * 10000, nil
}

// GetBorrowAprPct returns the margin borrow rate for an asset in percent per
// year, derived from the latest daily interest rate.
func (c *Client) GetBorrowAprPct(ctx context.Context, asset string) (float64, error) {
	params := url.Values{}
	params.Set("asset", asset)
	params.Set("size", "1")

	var raw struct {
		Rows []interestRateEntry `json:"rows"`
	}
	if err := c.doSigned(ctx, c.creds.SpotBaseURL, "GET", "/sapi/v1/margin/interestRateHistory", params, &raw); err != nil {
		return 0, fmt.Errorf("binance: interest rate %s: %w", asset, err)
	}
	if len(raw.Rows) == 0 {
		return 0, nil
	}
	return f(raw.Rows[0].DailyInterestRate) * 365 * 100, nil
}

// GetAvailableCapital returns the free balance of the settlement asset. A
// missing balance entry is 0, not an error.
func (c *Client) GetAvailableCapital(ctx context.Context, asset string) (float64, error) {
	var raw accountResp
	if err := c.doSigned(ctx, c.creds.SpotBaseURL, "GET", "/api/v3/account", nil, &raw); err != nil {
		return 0, fmt.Errorf("binance: account: %w", err)
	}
	for _, b := range raw.Balances {
		if b.Asset == asset {
			return f(b.Free), nil
		}
	}
	return 0, nil
}

// parseFilters extracts the order constraints from a symbol's filter list.
func parseFilters(filters []exchangeFilter) domain.SymbolFilters {
	out := domain.SymbolFilters{FetchedAt: time.Now().UTC()}
	for _, flt := range filters {
		switch flt.FilterType {
		case "LOT_SIZE":
			out.MinQty = f(flt.MinQty)
			out.StepSize = f(flt.StepSize)
		case "PRICE_FILTER":
			out.TickSize = f(flt.TickSize)
		case "MIN_NOTIONAL":
			out.MinNotional = f(flt.MinNotional)
		case "NOTIONAL":
			out.MinNotional = f(flt.NotionalMin)
		}
	}
	return out
}

// Compile-time interface checks.
var (
	_ domain.PriceSource   = (*Client)(nil)
	_ domain.AccountSource = (*Client)(nil)
	_ domain.RateSource    = (*Client)(nil)
	_ domain.SymbolSource  = (*Client)(nil)
)
