package types

import (
	"context"

	"github.com/shopspring/decimal"
)

// Pool is a liquidity pool on the home ledger between two assets.
type Pool struct {
	ID       string          `json:"id"`
	Symbol0  string          `json:"symbol_0"`
	Symbol1  string          `json:"symbol_1"`
	Balance0 decimal.Decimal `json:"balance_0"`
	Balance1 decimal.Decimal `json:"balance_1"`
	LPFeeBps int             `json:"lp_fee_bps"`
}

// Matches reports whether the pool connects the two symbols, in either order.
func (p Pool) Matches(a, b string) bool {
	return (p.Symbol0 == a && p.Symbol1 == b) || (p.Symbol0 == b && p.Symbol1 == a)
}

// Has reports whether the pool holds the given symbol on either side.
func (p Pool) Has(symbol string) bool {
	return p.Symbol0 == symbol || p.Symbol1 == symbol
}

// RateFor returns the exchange rate pay -> receive implied by pool balances,
// along with the pool balance on the pay side (used as the liquidity weight).
// The rate is inverted when the pay asset sits on side 1.
func (p Pool) RateFor(paySymbol string) (rate, payBalance decimal.Decimal, ok bool) {
	switch paySymbol {
	case p.Symbol0:
		if p.Balance0.IsZero() {
			return decimal.Zero, decimal.Zero, false
		}
		return p.Balance1.Div(p.Balance0), p.Balance0, true
	case p.Symbol1:
		if p.Balance1.IsZero() {
			return decimal.Zero, decimal.Zero, false
		}
		return p.Balance0.Div(p.Balance1), p.Balance1, true
	default:
		return decimal.Zero, decimal.Zero, false
	}
}

// PoolSource supplies the current pool set for pricing.
type PoolSource interface {
	Pools(ctx context.Context) ([]Pool, error)
}
