// Package ledger talks to the home ledger's HTTP gateway. The gateway
// fronts the on-chain swap canister; every method here maps to one
// canister primitive.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"ledger-swap/pkg/errs"
	"ledger-swap/pkg/types"
)

// Client implements types.HomeLedger over the gateway's JSON API.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a gateway client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// do sends one request and decodes the JSON answer into out. Non-2xx
// answers are turned into errors carrying the gateway's own message when
// one can be extracted from the body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return &errs.NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.apiError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// apiError extracts the gateway's error message from a failed response.
func (c *Client) apiError(resp *http.Response) error {
	se := &statusError{code: resp.StatusCode}
	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr == nil && len(bodyBytes) > 0 {
		var errorResp map[string]interface{}
		if jsonErr := json.Unmarshal(bodyBytes, &errorResp); jsonErr == nil {
			if message, ok := errorResp["message"].(string); ok {
				se.message = message
				return se
			}
			if apiErrors, ok := errorResp["errors"]; ok {
				se.message = fmt.Sprintf("%v", apiErrors)
				return se
			}
		}
		se.message = string(bodyBytes)
	}
	return se
}

// Assets lists every asset the ledger can swap.
func (c *Client) Assets(ctx context.Context) ([]types.Asset, error) {
	var out struct {
		Assets []types.Asset `json:"assets"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/assets", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get assets: %w", err)
	}
	return out.Assets, nil
}

// FindAsset resolves a symbol to its asset record.
func (c *Client) FindAsset(ctx context.Context, symbol string) (*types.Asset, error) {
	assets, err := c.Assets(ctx)
	if err != nil {
		return nil, err
	}
	for _, asset := range assets {
		if asset.Symbol == symbol {
			return &asset, nil
		}
	}
	return nil, fmt.Errorf("asset '%s' not found", symbol)
}

// Pools returns the ledger's liquidity pools. Client satisfies
// types.PoolSource so the quote engine can price against it directly.
func (c *Client) Pools(ctx context.Context) ([]types.Pool, error) {
	var out struct {
		Pools []types.Pool `json:"pools"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/pools", nil, &out); err != nil {
		return nil, fmt.Errorf("failed to get pools: %w", err)
	}
	return out.Pools, nil
}

// DepositAddress returns the foreign-chain account that receives pay-side
// deposits for the given asset.
func (c *Client) DepositAddress(ctx context.Context, asset types.Asset) (string, error) {
	path := "/v1/deposit-addresses?asset=" + url.QueryEscape(asset.Symbol)

	var out struct {
		Address string `json:"address"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return "", fmt.Errorf("failed to get deposit address: %w", err)
	}
	if out.Address == "" {
		return "", fmt.Errorf("no deposit address configured for %s", asset.Symbol)
	}
	return out.Address, nil
}

func (c *Client) BalanceOf(ctx context.Context, owner string, asset types.Asset) (decimal.Decimal, error) {
	path := fmt.Sprintf("/v1/balances?owner=%s&asset=%s",
		url.QueryEscape(owner), url.QueryEscape(asset.Symbol))

	var out struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return out.Balance, nil
}

func (c *Client) Allowance(ctx context.Context, owner, spender string, asset types.Asset) (decimal.Decimal, error) {
	path := fmt.Sprintf("/v1/allowances?owner=%s&spender=%s&asset=%s",
		url.QueryEscape(owner), url.QueryEscape(spender), url.QueryEscape(asset.Symbol))

	var out struct {
		Allowance decimal.Decimal `json:"allowance"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get allowance: %w", err)
	}
	return out.Allowance, nil
}

func (c *Client) Approve(ctx context.Context, spender string, amount decimal.Decimal, asset types.Asset) error {
	body := map[string]any{
		"spender": spender,
		"amount":  amount,
		"asset":   asset.Symbol,
	}
	if err := c.do(ctx, http.MethodPost, "/v1/approvals", body, nil); err != nil {
		return fmt.Errorf("failed to approve: %w", err)
	}
	return nil
}

func (c *Client) Quote(ctx context.Context, pay types.Asset, amount decimal.Decimal, receive types.Asset) (*types.LedgerQuote, error) {
	body := map[string]any{
		"pay_symbol":     pay.Symbol,
		"pay_amount":     amount,
		"receive_symbol": receive.Symbol,
	}
	var out types.LedgerQuote
	if err := c.do(ctx, http.MethodPost, "/v1/quotes", body, &out); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &out, nil
}

func (c *Client) Execute(ctx context.Context, params types.ExecuteParams) (string, error) {
	var out struct {
		JobID string `json:"job_id"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/swaps", params, &out); err != nil {
		return "", fmt.Errorf("failed to execute swap: %w", err)
	}
	return out.JobID, nil
}

// JobStatus returns nil with no error while the ledger has not surfaced
// the job yet (the gateway answers 404 in that window).
func (c *Client) JobStatus(ctx context.Context, jobID string) (*types.SwapJob, error) {
	var out types.SwapJob
	err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(jobID), nil, &out)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job status: %w", err)
	}
	return &out, nil
}

// LookupForeignTransaction returns nil with no error while the foreign
// transaction is not registered yet.
func (c *Client) LookupForeignTransaction(ctx context.Context, signature string) (*types.ForeignTxRecord, error) {
	var out types.ForeignTxRecord
	err := c.do(ctx, http.MethodGet, "/v1/foreign-transactions/"+url.PathEscape(signature), nil, &out)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up foreign transaction: %w", err)
	}
	return &out, nil
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

// statusError carries the HTTP status of a failed gateway call so callers
// can distinguish not-found from real failures.
type statusError struct {
	code    int
	message string
}

func (e *statusError) Error() string {
	if e.message != "" {
		return fmt.Sprintf("API error (status %d): %s", e.code, e.message)
	}
	return fmt.Sprintf("API returned status code %d", e.code)
}
