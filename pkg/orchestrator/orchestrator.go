// Package orchestrator composes the validator and quote engine into the
// end-to-end same-ledger swap pipeline, with bounded retry and analytics.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger-swap/pkg/errs"
	"ledger-swap/pkg/quote"
	"ledger-swap/pkg/types"
	"ledger-swap/pkg/validate"
)

// Orchestrator drives a swap request from validation to settlement.
// It holds no per-session state and no internal mutual exclusion: callers
// must not run two ExecuteSwap calls concurrently for one session.
type Orchestrator struct {
	ledger    types.HomeLedger
	quotes    *quote.Engine
	validator *validate.Validator
	analytics types.Analytics
	retry     RetryPolicy

	// spender is the principal granted allowances for pre-approval assets.
	spender string

	log *slog.Logger
	now func() time.Time
}

// New wires an orchestrator over its collaborators.
func New(ledger types.HomeLedger, quotes *quote.Engine, validator *validate.Validator, analytics types.Analytics, spender string) *Orchestrator {
	return &Orchestrator{
		ledger:    ledger,
		quotes:    quotes,
		validator: validator,
		analytics: analytics,
		retry:     DefaultRetryPolicy(),
		spender:   spender,
		log:       slog.Default(),
		now:       time.Now,
	}
}

// SetRetryPolicy overrides the execution retry policy.
func (o *Orchestrator) SetRetryPolicy(p RetryPolicy) {
	o.retry = p
}

// ExecuteSwap runs the full pipeline, short-circuiting on the first
// failure. Any execution-path error is normalized into a user-presentable
// message on the returned error.
func (o *Orchestrator) ExecuteSwap(ctx context.Context, req types.SwapRequest) (*types.SwapResult, error) {
	started := o.now()

	// 1. Format + business validation; returned, never thrown.
	if res := o.validator.Validate(req); !res.IsValid {
		return nil, fmt.Errorf("invalid swap request: %s", res.ErrorText())
	}

	// 2. Authenticated user gate.
	if req.UserAddress == "" {
		return nil, errs.ErrUnauthorized
	}

	// 3. Balance sufficiency, including the approval-fee buffer for
	// pre-approval assets.
	balance, err := o.ledger.BalanceOf(ctx, req.UserAddress, req.PayAsset)
	if err != nil {
		return nil, o.fail(req, started, &errs.NetworkError{Op: "balance check", Err: err})
	}
	if res := o.validator.ValidateBalance(req, balance, req.PayAsset.UsesAllowance); !res.IsValid {
		return nil, o.fail(req, started, fmt.Errorf("%w: %s", errs.ErrInsufficientBalance, res.ErrorText()))
	}

	// 4. Fresh quote (may hit cache).
	q, err := o.quotes.GetQuote(ctx, req)
	if err != nil {
		return nil, o.fail(req, started, err)
	}

	// 5. Freshness and realized slippage re-checks.
	if res := validate.ValidateQuoteFreshness(q.CreatedAt, types.QuoteTTL, o.now()); !res.IsValid {
		return nil, o.fail(req, started, errs.ErrQuoteExpired)
	}
	if res := validate.ValidateSlippage(req.SlippagePct, q.PriceImpactPct); !res.IsValid {
		return nil, o.fail(req, started, fmt.Errorf("%w: %s", errs.ErrSlippageExceeded, res.ErrorText()))
	}

	// 6. Swap initiated.
	o.analytics.Track("swap_initiated", map[string]any{
		"pay_token":     req.PayAsset.Symbol,
		"receive_token": req.ReceiveAsset.Symbol,
		"pay_amount":    req.PayAmount,
	})

	// 7. Execute with retry.
	txHash, err := ExecuteWithRetry(ctx, o.retry, func(ctx context.Context) (string, error) {
		return o.executeOnce(ctx, req, q)
	})
	if err != nil {
		return nil, o.fail(req, started, err)
	}

	duration := o.now().Sub(started)
	o.analytics.Track("swap_completed", map[string]any{
		"pay_token":      req.PayAsset.Symbol,
		"receive_token":  req.ReceiveAsset.Symbol,
		"pay_amount":     req.PayAmount,
		"receive_amount": q.ReceiveAmount.String(),
		"duration_ms":    duration.Milliseconds(),
	})
	o.log.Info("swap completed",
		"tx_hash", txHash,
		"pay", req.PayAsset.Symbol,
		"receive", req.ReceiveAsset.Symbol,
		"duration", duration)

	return &types.SwapResult{
		TxHash:        txHash,
		PayAmount:     req.PayAmount,
		ReceiveAmount: q.ReceiveAmount.String(),
		Timestamp:     o.now(),
	}, nil
}

// executeOnce performs one execution attempt: allowance handling, then the
// ledger's execute primitive.
func (o *Orchestrator) executeOnce(ctx context.Context, req types.SwapRequest, q *types.Quote) (string, error) {
	amount, err := decimal.NewFromString(req.PayAmount)
	if err != nil {
		return "", fmt.Errorf("invalid amount: %w", err)
	}

	if req.PayAsset.UsesAllowance {
		if err := o.ensureAllowance(ctx, req, amount); err != nil {
			return "", err
		}
	}

	params := types.ExecuteParams{
		RequestID:      uuid.NewString(),
		PaySymbol:      req.PayAsset.Symbol,
		PayAmount:      amount,
		ReceiveSymbol:  req.ReceiveAsset.Symbol,
		ReceiveAmount:  q.ReceiveAmount,
		MaxSlippagePct: req.SlippagePct,
		Fees:           append(append([]types.Fee{}, q.GasFees...), q.LPFees...),
	}

	result, err := o.ledger.Execute(ctx, params)
	if err != nil {
		return "", err
	}

	// The ledger returns a numeric transaction reference; anything else
	// means the call did not land.
	if _, convErr := strconv.ParseUint(result, 10, 64); convErr != nil {
		return "", &errs.ExecutionError{Reason: fmt.Sprintf("unexpected execute result %q", result)}
	}

	return result, nil
}

// ensureAllowance tops up the spender's allowance when it cannot cover the
// amount plus the transfer fee.
func (o *Orchestrator) ensureAllowance(ctx context.Context, req types.SwapRequest, amount decimal.Decimal) error {
	allowance, err := o.ledger.Allowance(ctx, req.UserAddress, o.spender, req.PayAsset)
	if err != nil {
		return &errs.NetworkError{Op: "allowance check", Err: err}
	}

	need := amount.Add(req.PayAsset.Fee)
	if allowance.GreaterThanOrEqual(need) {
		return nil
	}

	o.log.Debug("approving allowance",
		"token", req.PayAsset.Symbol, "amount", need.String())
	if err := o.ledger.Approve(ctx, o.spender, need, req.PayAsset); err != nil {
		return fmt.Errorf("approve failed: %w", err)
	}
	return nil
}

// fail records the failure and returns an error carrying the curated
// user-facing message. Cancellations pass through untracked and unlogged.
func (o *Orchestrator) fail(req types.SwapRequest, started time.Time, err error) error {
	if errors.Is(err, errs.ErrCancelled) {
		return err
	}

	o.analytics.Track("swap_failed", map[string]any{
		"pay_token":     req.PayAsset.Symbol,
		"receive_token": req.ReceiveAsset.Symbol,
		"error":         err.Error(),
		"duration_ms":   o.now().Sub(started).Milliseconds(),
	})
	o.log.Error("swap failed", "error", err)

	if msg := errs.UserMessage(err); msg != err.Error() {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return err
}
