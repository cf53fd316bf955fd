package domain

// TradeIntent fully determines the legs of one directional execution. Built
// once per executable decision and never mutated after construction; the
// rollback path builds a fresh intent rather than editing this one.
type TradeIntent struct {
	Symbol       string
	Side         Side
	BuyPrice     float64
	SellPrice    float64
	Amount       float64 // base-asset quantity
	FeeRateBps   float64
	SpreadSigned float64 // signed net edge in bps at decision time
	DryRun       bool
}

// Notional returns the approximate settlement-asset value of the intent.
func (t TradeIntent) Notional() float64 {
	price := t.BuyPrice
	if t.Side == SideShortSpotLongDerivative {
		price = t.SellPrice
	}
	return t.Amount * price
}
