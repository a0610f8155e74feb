// Package quote prices swaps against the home ledger's liquidity pools,
// with a short-lived cache in front of the pool reads.
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"ledger-swap/pkg/errs"
	"ledger-swap/pkg/types"
	"ledger-swap/pkg/validate"
)

// DefaultIntermediary is the reference asset used for two-hop routing when
// no direct pool exists.
const DefaultIntermediary = "USDT"

// Engine produces priced quotes from pool state.
type Engine struct {
	pools        types.PoolSource
	validator    *validate.Validator
	intermediary string
	log          *slog.Logger

	cache *cache

	// now is replaceable in tests.
	now func() time.Time
}

// NewEngine creates a quote engine over the given pool source.
func NewEngine(pools types.PoolSource, validator *validate.Validator) *Engine {
	e := &Engine{
		pools:        pools,
		validator:    validator,
		intermediary: DefaultIntermediary,
		log:          slog.Default(),
		now:          time.Now,
	}
	e.cache = newCache(types.QuoteTTL, e.nowFunc)
	return e
}

// SetIntermediary overrides the two-hop routing asset.
func (e *Engine) SetIntermediary(symbol string) {
	e.intermediary = symbol
}

func (e *Engine) nowFunc() time.Time {
	return e.now()
}

// GetQuote validates the request, consults the cache, and prices the swap
// on a miss. A cancelled context fails with errs.ErrCancelled and the
// partial result is not cached.
func (e *Engine) GetQuote(ctx context.Context, req types.SwapRequest) (*types.Quote, error) {
	if res := e.validator.Validate(req); !res.IsValid {
		return nil, fmt.Errorf("invalid quote request: %s", res.ErrorText())
	}

	key := cacheKey(req.PayAsset.Symbol, req.ReceiveAsset.Symbol, req.PayAmount)
	if q, ok := e.cache.get(key); ok {
		return q, nil
	}

	pools, err := e.pools.Pools(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("quote fetch %w", errs.ErrCancelled)
		}
		return nil, &errs.NetworkError{Op: "pool fetch", Err: err}
	}
	if ctx.Err() != nil {
		return nil, fmt.Errorf("quote fetch %w", errs.ErrCancelled)
	}

	amount, err := decimal.NewFromString(req.PayAmount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	q := e.price(pools, req.PayAsset, amount, req.ReceiveAsset)
	if !q.Usable() {
		e.log.Debug("no route found",
			"pay", req.PayAsset.Symbol, "receive", req.ReceiveAsset.Symbol)
		return q, fmt.Errorf("%w from %s to %s", errs.ErrNoRoute,
			req.PayAsset.Symbol, req.ReceiveAsset.Symbol)
	}

	e.cache.put(key, q)
	return q, nil
}

// price computes the quote from pool state: direct pool first, then a
// two-hop route through the intermediary asset.
func (e *Engine) price(pools []types.Pool, pay types.Asset, amount decimal.Decimal, receive types.Asset) *types.Quote {
	q := &types.Quote{
		Price:     decimal.Zero,
		CreatedAt: e.now(),
	}

	if hop, ok := weightedHop(pools, pay.Symbol, receive.Symbol, amount); ok {
		q.Price = hop.price
		q.PriceImpactPct = hop.impactPct
		q.Route = []types.Hop{hop.route}
		q.LPFees = []types.Fee{hop.lpFee}
		q.GasFees = []types.Fee{{Asset: receive.Symbol, Amount: receive.Fee, Kind: types.FeeGas}}
		q.ReceiveAmount = receiveAmount(amount, hop)
		return q
	}

	// Two-hop route through the intermediary: compose
	// price = price(pay -> mid) * price(mid -> receive).
	if pay.Symbol == e.intermediary || receive.Symbol == e.intermediary {
		return q
	}
	first, ok := weightedHop(pools, pay.Symbol, e.intermediary, amount)
	if !ok {
		return q
	}
	midAmount := receiveAmount(amount, first)
	second, ok := weightedHop(pools, e.intermediary, receive.Symbol, midAmount)
	if !ok {
		return q
	}

	q.Price = first.price.Mul(second.price)
	q.PriceImpactPct = composeImpact(first.impactPct, second.impactPct)
	q.Route = []types.Hop{first.route, second.route}
	q.LPFees = []types.Fee{first.lpFee, second.lpFee}
	q.GasFees = []types.Fee{
		{Asset: e.intermediary, Amount: decimal.Zero, Kind: types.FeeGas},
		{Asset: receive.Symbol, Amount: receive.Fee, Kind: types.FeeGas},
	}
	q.ReceiveAmount = receiveAmount(midAmount, second)
	return q
}

// hop is one priced pool traversal.
type hop struct {
	price     decimal.Decimal
	impactPct float64
	route     types.Hop
	lpFee     types.Fee
	feeBps    int
}

// weightedHop prices pay -> receive across every qualifying pool. With
// multiple pools the price is the liquidity-weighted average
// sum(price_i * weight_i) / sum(weight_i), weight being the pool's balance
// on the pay side.
func weightedHop(pools []types.Pool, paySymbol, receiveSymbol string, amount decimal.Decimal) (hop, bool) {
	var (
		weightedSum decimal.Decimal
		totalWeight decimal.Decimal
		deepest     types.Pool
		deepestBal  decimal.Decimal
		found       bool
	)

	for _, p := range pools {
		if !p.Matches(paySymbol, receiveSymbol) {
			continue
		}
		rate, payBal, ok := p.RateFor(paySymbol)
		if !ok {
			continue
		}
		weightedSum = weightedSum.Add(rate.Mul(payBal))
		totalWeight = totalWeight.Add(payBal)
		if !found || payBal.GreaterThan(deepestBal) {
			deepest = p
			deepestBal = payBal
		}
		found = true
	}

	if !found || totalWeight.IsZero() {
		return hop{}, false
	}

	price := weightedSum.Div(totalWeight)

	// Price impact from finite liquidity: the trade's share of the pay-side
	// depth after it lands.
	impact, _ := amount.Div(deepestBal.Add(amount)).Mul(decimal.New(100, 0)).Float64()

	lpFee := amount.Mul(price).Mul(decimal.New(int64(deepest.LPFeeBps), -4))

	return hop{
		price:     price,
		impactPct: impact,
		feeBps:    deepest.LPFeeBps,
		route: types.Hop{
			PoolID:        deepest.ID,
			PaySymbol:     paySymbol,
			ReceiveSymbol: receiveSymbol,
		},
		lpFee: types.Fee{Asset: receiveSymbol, Amount: lpFee, Kind: types.FeeLP},
	}, true
}

// receiveAmount applies the hop's price and LP fee to the pay amount.
func receiveAmount(amount decimal.Decimal, h hop) decimal.Decimal {
	gross := amount.Mul(h.price)
	return gross.Sub(gross.Mul(decimal.New(int64(h.feeBps), -4)))
}

// composeImpact combines per-hop impacts multiplicatively.
func composeImpact(a, b float64) float64 {
	return 100 * (1 - (1-a/100)*(1-b/100))
}
