package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SwapRequest represents a user's swap intent.
// PayAsset and ReceiveAsset must differ; PayAmount must be a finite positive
// decimal with no more fractional digits than PayAsset.Decimals.
type SwapRequest struct {
	PayAsset      Asset
	PayAmount     string
	ReceiveAsset  Asset
	ReceiveAmount string // optional, filled in from the quote
	SlippagePct   float64
	UserAddress   string // optional until execution
}

// FeeKind distinguishes the fee entries attached to a quote.
type FeeKind string

const (
	FeeGas FeeKind = "gas"
	FeeLP  FeeKind = "lp"
)

// Fee is a single fee line item, denominated in Asset.
type Fee struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
	Kind   FeeKind         `json:"kind"`
}

// Hop is one pool traversal in a routing path.
type Hop struct {
	PoolID        string `json:"pool_id"`
	PaySymbol     string `json:"pay_symbol"`
	ReceiveSymbol string `json:"receive_symbol"`
}

// QuoteTTL is how long a quote stays usable after creation.
const QuoteTTL = 30 * time.Second

// Quote is a priced swap estimate. A quote is stale once
// now - CreatedAt > QuoteTTL and must not be executed against.
type Quote struct {
	ReceiveAmount  decimal.Decimal `json:"receive_amount"`
	Price          decimal.Decimal `json:"price"`
	PriceImpactPct float64         `json:"price_impact_pct"`
	GasFees        []Fee           `json:"gas_fees"`
	LPFees         []Fee           `json:"lp_fees"`
	Route          []Hop           `json:"route"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Usable reports whether the quote carries a non-zero price, i.e. a route
// was found.
func (q *Quote) Usable() bool {
	return q != nil && q.Price.IsPositive()
}

// AgeAt returns the quote's age at the given instant.
func (q *Quote) AgeAt(now time.Time) time.Duration {
	return now.Sub(q.CreatedAt)
}

// SwapResult is the outcome of a completed same-ledger swap.
type SwapResult struct {
	TxHash        string    `json:"tx_hash"`
	PayAmount     string    `json:"pay_amount"`
	ReceiveAmount string    `json:"receive_amount"`
	Timestamp     time.Time `json:"timestamp"`
}
