package quote

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ledger-swap/pkg/errs"
	"ledger-swap/pkg/types"
	"ledger-swap/pkg/validate"
)

type fakePools struct {
	pools []types.Pool
	calls int
	block bool // when true, return only once ctx is done
}

func (f *fakePools) Pools(ctx context.Context) ([]types.Pool, error) {
	f.calls++
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.pools, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func pool(id, s0, s1, b0, b1 string, feeBps int) types.Pool {
	return types.Pool{
		ID: id, Symbol0: s0, Symbol1: s1,
		Balance0: dec(b0), Balance1: dec(b1),
		LPFeeBps: feeBps,
	}
}

func asset(symbol string, decimals int32) types.Asset {
	return types.Asset{Symbol: symbol, Decimals: decimals, Origin: types.OriginHome}
}

func request(pay, receive string, amount string) types.SwapRequest {
	return types.SwapRequest{
		PayAsset:     asset(pay, 8),
		PayAmount:    amount,
		ReceiveAsset: asset(receive, 8),
	}
}

func TestDirectPoolPrice(t *testing.T) {
	pools := &fakePools{pools: []types.Pool{
		pool("p1", "ICP", "USDT", "100", "1000", 0),
	}}
	e := NewEngine(pools, validate.New())

	q, err := e.GetQuote(context.Background(), request("ICP", "USDT", "1"))
	require.NoError(t, err)
	require.True(t, q.Usable())
	require.True(t, q.Price.Equal(dec("10")), "price %s", q.Price)
	require.True(t, q.ReceiveAmount.Equal(dec("10")))
	require.Len(t, q.Route, 1)
}

func TestInvertedPoolPrice(t *testing.T) {
	// Pay asset on side 1: rate must invert.
	pools := &fakePools{pools: []types.Pool{
		pool("p1", "ICP", "USDT", "100", "1000", 0),
	}}
	e := NewEngine(pools, validate.New())

	q, err := e.GetQuote(context.Background(), request("USDT", "ICP", "10"))
	require.NoError(t, err)
	require.True(t, q.Price.Equal(dec("0.1")), "price %s", q.Price)
}

func TestLiquidityWeightedAverage(t *testing.T) {
	// Two qualifying pools: (10*100 + 8*300) / 400 = 8.5.
	pools := &fakePools{pools: []types.Pool{
		pool("p1", "ICP", "USDT", "100", "1000", 0),
		pool("p2", "ICP", "USDT", "300", "2400", 0),
	}}
	e := NewEngine(pools, validate.New())

	q, err := e.GetQuote(context.Background(), request("ICP", "USDT", "1"))
	require.NoError(t, err)
	require.True(t, q.Price.Equal(dec("8.5")), "price %s", q.Price)
}

func TestTwoHopRoute(t *testing.T) {
	pools := &fakePools{pools: []types.Pool{
		pool("p1", "ICP", "USDT", "100", "1000", 0),
		pool("p2", "USDT", "SOL", "1000", "5", 0),
	}}
	e := NewEngine(pools, validate.New())

	q, err := e.GetQuote(context.Background(), request("ICP", "SOL", "1"))
	require.NoError(t, err)
	require.True(t, q.Price.Equal(dec("0.05")), "price %s", q.Price)
	require.Len(t, q.Route, 2)
	require.Equal(t, "USDT", q.Route[0].ReceiveSymbol)
	require.Equal(t, "SOL", q.Route[1].ReceiveSymbol)
}

func TestNoRoute(t *testing.T) {
	pools := &fakePools{pools: []types.Pool{
		pool("p1", "ICP", "USDT", "100", "1000", 0),
	}}
	e := NewEngine(pools, validate.New())

	q, err := e.GetQuote(context.Background(), request("ICP", "BTC", "1"))
	require.ErrorIs(t, err, errs.ErrNoRoute)
	require.False(t, q.Usable())
	require.True(t, q.Price.IsZero())
}

func TestCacheHitWithinTTL(t *testing.T) {
	pools := &fakePools{pools: []types.Pool{
		pool("p1", "ICP", "USDT", "100", "1000", 0),
	}}
	e := NewEngine(pools, validate.New())

	q1, err := e.GetQuote(context.Background(), request("ICP", "USDT", "1"))
	require.NoError(t, err)
	q2, err := e.GetQuote(context.Background(), request("ICP", "USDT", "1"))
	require.NoError(t, err)

	require.Same(t, q1, q2, "second call must return the cached object")
	require.Equal(t, 1, pools.calls, "no second underlying fetch within TTL")

	// A different amount is a different key.
	_, err = e.GetQuote(context.Background(), request("ICP", "USDT", "2"))
	require.NoError(t, err)
	require.Equal(t, 2, pools.calls)
}

func TestCacheExpiresAfterTTL(t *testing.T) {
	pools := &fakePools{pools: []types.Pool{
		pool("p1", "ICP", "USDT", "100", "1000", 0),
	}}
	e := NewEngine(pools, validate.New())

	base := time.Now()
	e.now = func() time.Time { return base }

	_, err := e.GetQuote(context.Background(), request("ICP", "USDT", "1"))
	require.NoError(t, err)
	require.Equal(t, 1, pools.calls)

	e.now = func() time.Time { return base.Add(types.QuoteTTL + time.Second) }

	_, err = e.GetQuote(context.Background(), request("ICP", "USDT", "1"))
	require.NoError(t, err)
	require.Equal(t, 2, pools.calls, "expired entry must trigger a new fetch")
}

func TestCancellationIsDistinctAndNotCached(t *testing.T) {
	pools := &fakePools{block: true}
	e := NewEngine(pools, validate.New())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.GetQuote(ctx, request("ICP", "USDT", "1"))
		done <- err
	}()
	cancel()

	err := <-done
	require.ErrorIs(t, err, errs.ErrCancelled)

	// Nothing was cached: the next call fetches again.
	pools.block = false
	pools.pools = []types.Pool{pool("p1", "ICP", "USDT", "100", "1000", 0)}
	_, err = e.GetQuote(context.Background(), request("ICP", "USDT", "1"))
	require.NoError(t, err)
	require.Equal(t, 2, pools.calls)
}

func TestQuoteValidatesRequestFirst(t *testing.T) {
	pools := &fakePools{}
	e := NewEngine(pools, validate.New())

	_, err := e.GetQuote(context.Background(), request("ICP", "ICP", "1"))
	require.Error(t, err)
	require.Zero(t, pools.calls, "invalid request must not hit the pool source")
}
