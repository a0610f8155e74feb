package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledger-swap/pkg/errs"
)

// referencePriceTTL is how long an external reference price stays cached.
const referencePriceTTL = 60 * time.Second

// PriceClient fetches USD reference prices from an external price API,
// caching each symbol for referencePriceTTL.
type PriceClient struct {
	baseURL string
	httpc   *http.Client
	now     func() time.Time

	mu    sync.Mutex
	cache map[string]cachedPrice
}

type cachedPrice struct {
	price     decimal.Decimal
	fetchedAt time.Time
}

// NewPriceClient creates a reference price client for the given API base
// URL.
func NewPriceClient(baseURL string) *PriceClient {
	return &PriceClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
		cache:   make(map[string]cachedPrice),
	}
}

// priceResponse is the external API's answer for a single symbol.
type priceResponse struct {
	Symbol string          `json:"symbol"`
	USD    decimal.Decimal `json:"usd"`
}

// USDPrice returns the reference USD price for a symbol.
func (c *PriceClient) USDPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	c.mu.Lock()
	if entry, ok := c.cache[symbol]; ok && c.now().Sub(entry.fetchedAt) <= referencePriceTTL {
		c.mu.Unlock()
		return entry.price, nil
	}
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/v1/prices?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to build price request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return decimal.Zero, &errs.NetworkError{Op: "reference price fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("price API returned status code %d", resp.StatusCode)
	}

	var out priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("failed to decode price response: %w", err)
	}
	if !out.USD.IsPositive() {
		return decimal.Zero, fmt.Errorf("price API returned no price for %s", symbol)
	}

	c.mu.Lock()
	c.cache[symbol] = cachedPrice{price: out.USD, fetchedAt: c.now()}
	c.mu.Unlock()

	return out.USD, nil
}

// ExchangeRate derives pay -> receive as price(pay) / price(receive).
func (c *PriceClient) ExchangeRate(ctx context.Context, paySymbol, receiveSymbol string) (decimal.Decimal, error) {
	payUSD, err := c.USDPrice(ctx, paySymbol)
	if err != nil {
		return decimal.Zero, err
	}
	receiveUSD, err := c.USDPrice(ctx, receiveSymbol)
	if err != nil {
		return decimal.Zero, err
	}
	if receiveUSD.IsZero() {
		return decimal.Zero, fmt.Errorf("zero reference price for %s", receiveSymbol)
	}
	return payUSD.Div(receiveUSD), nil
}
