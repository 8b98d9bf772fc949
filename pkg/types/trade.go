package types

import "time"

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// TradeResult is the uniform outcome returned by the orchestrator for
// both venues. Exactly one of OrderID / TxHash is set on success,
// depending on how the venue identifies accepted orders.
type TradeResult struct {
	Success     bool
	Venue       Venue
	OrderID     string // venue-assigned order id
	TxHash      string // on-chain transaction hash, when the venue reports one
	Outcome     string
	Side        Side
	Amount      float64 // USD notional requested
	SubmittedAt time.Time
	Err         error // typed error when Success is false
}

// TradeRequest is what callers hand to the orchestrator.
type TradeRequest struct {
	Market  *Market
	Outcome string // "YES" or "NO"
	Amount  float64
	Side    Side
	Price   float64 // unit price; 0 means market order
}
