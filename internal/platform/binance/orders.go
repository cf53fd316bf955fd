package binance

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// PlaceMarketOrder submits one market order on the requested venue segment.
// It never retries: a repeated call is always a new order.
func (c *Client) PlaceMarketOrder(ctx context.Context, order domain.MarketOrder) (domain.OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", order.Symbol)
	params.Set("side", string(order.Side))
	params.Set("type", "MARKET")

	if order.Quantity > 0 {
		params.Set("quantity", formatQty(order.Quantity))
	} else if order.QuoteAmount > 0 {
		params.Set("quoteOrderQty", formatQty(order.QuoteAmount))
	} else {
		return domain.OrderResult{}, fmt.Errorf("binance: place order %s: %w", order.Symbol, domain.ErrFilterViolation)
	}

	baseURL := c.creds.SpotBaseURL
	path := "/api/v3/order"
	switch order.Leg {
	case "derivative":
		baseURL = c.creds.FutBaseURL
		path = "/fapi/v1/order"
	case "margin":
		path = "/sapi/v1/margin/order"
		if order.AutoBorrow {
			params.Set("sideEffectType", "MARGIN_BUY")
		} else if order.AutoRepay {
			params.Set("sideEffectType", "AUTO_REPAY")
		}
	}

	var raw orderResp
	if err := c.doSigned(ctx, baseURL, "POST", path, params, &raw); err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: place %s order %s %s: %w",
			order.Leg, order.Side, order.Symbol, err)
	}

	return toOrderResult(raw, order.Side), nil
}

// toOrderResult converts a wire order response into the domain result,
// deriving the average price from fills when the venue does not report it.
func toOrderResult(raw orderResp, side domain.OrderSide) domain.OrderResult {
	res := domain.OrderResult{
		OrderID:     strconv.FormatInt(raw.OrderID, 10),
		Symbol:      raw.Symbol,
		Side:        side,
		Status:      domain.OrderStatus(raw.Status),
		ExecutedQty: f(raw.ExecutedQty),
		AvgPrice:    f(raw.AvgPrice),
	}

	res.CumQuote = f(raw.CumQuoteQty)
	if res.CumQuote == 0 {
		res.CumQuote = f(raw.CumQuote)
	}

	for _, fl := range raw.Fills {
		res.Fills = append(res.Fills, domain.Fill{
			Price:      f(fl.Price),
			Qty:        f(fl.Qty),
			Commission: f(fl.Commission),
		})
	}

	if res.AvgPrice == 0 && res.ExecutedQty > 0 && res.CumQuote > 0 {
		res.AvgPrice = res.CumQuote / res.ExecutedQty
	}
	return res
}

// formatQty renders a quantity with up to eight decimals, trimmed. Step-size
// quantization happens before this point, in the executor.
func formatQty(q float64) string {
	s := strconv.FormatFloat(q, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

var _ domain.OrderPlacer = (*Client)(nil)
