package bridge

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// newStaticPriceClient serves canned USD prices without a real server.
// Symbols missing from the map answer 404.
func newStaticPriceClient(prices map[string]string) *PriceClient {
	c := NewPriceClient("http://prices.test")
	c.httpc = &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		symbol := r.URL.Query().Get("symbol")
		usd, ok := prices[symbol]
		if !ok {
			return &http.Response{
				StatusCode: http.StatusNotFound,
				Body:       io.NopCloser(strings.NewReader("{}")),
				Header:     make(http.Header),
			}, nil
		}
		body := fmt.Sprintf(`{"symbol":%q,"usd":%s}`, symbol, usd)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}, nil
	})}
	return c
}

func countingPriceClient(prices map[string]string, calls *int) *PriceClient {
	c := newStaticPriceClient(prices)
	inner := c.httpc.Transport
	c.httpc.Transport = roundTripFunc(func(r *http.Request) (*http.Response, error) {
		*calls++
		return inner.RoundTrip(r)
	})
	return c
}

func TestUSDPriceCachesWithinTTL(t *testing.T) {
	var calls int
	c := countingPriceClient(map[string]string{"SOL": "150"}, &calls)

	first, err := c.USDPrice(context.Background(), "SOL")
	require.NoError(t, err)
	require.True(t, first.Equal(dec("150")))

	second, err := c.USDPrice(context.Background(), "SOL")
	require.NoError(t, err)
	require.True(t, second.Equal(first))
	require.Equal(t, 1, calls, "second read within the TTL must hit the cache")
}

func TestUSDPriceRefetchesAfterTTL(t *testing.T) {
	var calls int
	c := countingPriceClient(map[string]string{"SOL": "150"}, &calls)

	_, err := c.USDPrice(context.Background(), "SOL")
	require.NoError(t, err)

	c.now = func() time.Time { return time.Now().Add(referencePriceTTL + time.Second) }
	_, err = c.USDPrice(context.Background(), "SOL")
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestUSDPriceUnknownSymbol(t *testing.T) {
	c := newStaticPriceClient(map[string]string{"SOL": "150"})

	_, err := c.USDPrice(context.Background(), "DOGE")
	require.Error(t, err)
	require.Contains(t, err.Error(), "status code 404")
}

func TestUSDPriceRejectsNonPositivePrice(t *testing.T) {
	c := newStaticPriceClient(map[string]string{"SOL": "0"})

	_, err := c.USDPrice(context.Background(), "SOL")
	require.Error(t, err)
}

func TestExchangeRate(t *testing.T) {
	c := newStaticPriceClient(map[string]string{"SOL": "150", "ICP": "7.5"})

	rate, err := c.ExchangeRate(context.Background(), "SOL", "ICP")
	require.NoError(t, err)
	require.True(t, rate.Equal(dec("20")), "rate was %s", rate)
}
