package binance

import "strconv"

// The venue serializes all decimals as JSON strings; these wire types keep
// the raw strings and convert at the accessor boundary.

type bookTickerResp struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	BidQty   string `json:"bidQty"`
	AskPrice string `json:"askPrice"`
	AskQty   string `json:"askQty"`
}

type ticker24hResp struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	QuoteVolume string `json:"quoteVolume"`
}

type premiumIndexResp struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	LastFundingRate string `json:"lastFundingRate"`
}

type exchangeInfoResp struct {
	Symbols []exchangeSymbol `json:"symbols"`
}

type exchangeSymbol struct {
	Symbol     string           `json:"symbol"`
	Status     string           `json:"status"`
	BaseAsset  string           `json:"baseAsset"`
	QuoteAsset string           `json:"quoteAsset"`
	Filters    []exchangeFilter `json:"filters"`
}

type exchangeFilter struct {
	FilterType  string `json:"filterType"`
	MinQty      string `json:"minQty"`
	StepSize    string `json:"stepSize"`
	TickSize    string `json:"tickSize"`
	MinNotional string `json:"minNotional"`
	// Spot exchangeInfo uses NOTIONAL with this field name.
	NotionalMin string `json:"notional"`
}

type accountResp struct {
	Balances []accountBalance `json:"balances"`
}

type accountBalance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

type interestRateEntry struct {
	Asset             string `json:"asset"`
	DailyInterestRate string `json:"dailyInterestRate"`
}

type orderFill struct {
	Price      string `json:"price"`
	Qty        string `json:"qty"`
	Commission string `json:"commission"`
}

type orderResp struct {
	Symbol      string `json:"symbol"`
	OrderID     int64  `json:"orderId"`
	Status      string `json:"status"`
	ExecutedQty string `json:"executedQty"`
	// Spot and margin report cummulativeQuoteQty; futures reports cumQuote.
	CumQuoteQty string      `json:"cummulativeQuoteQty"`
	CumQuote    string      `json:"cumQuote"`
	AvgPrice    string      `json:"avgPrice"`
	Fills       []orderFill `json:"fills"`
}

// f parses a venue decimal string, returning 0 for empty or malformed input.
func f(s string) float64 {
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
