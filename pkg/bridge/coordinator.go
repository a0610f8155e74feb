package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledger-swap/pkg/errs"
	"ledger-swap/pkg/types"
	"ledger-swap/pkg/wallet"
)

const (
	// DefaultVerifyMaxRetries bounds foreign-transaction confirmation
	// polling; with DefaultVerifyDelay it covers ~30 seconds.
	DefaultVerifyMaxRetries = 60
	DefaultVerifyDelay      = 500 * time.Millisecond
)

// Coordinator executes cross-ledger swaps: it submits the pay-side
// transaction on the foreign chain when required, has the home ledger
// confirm it, and then submits the swap itself.
type Coordinator struct {
	ledger types.HomeLedger
	wallet wallet.Wallet
	prices *PriceClient
	log    *slog.Logger

	// ReferredBy is stamped into every canonical message; empty means no
	// referral.
	ReferredBy string

	verifyMaxRetries int
	verifyDelay      time.Duration
	now              func() time.Time
}

// NewCoordinator wires a coordinator over the home ledger, the foreign
// wallet, and the reference price fallback.
func NewCoordinator(ledger types.HomeLedger, w wallet.Wallet, prices *PriceClient) *Coordinator {
	return &Coordinator{
		ledger:           ledger,
		wallet:           w,
		prices:           prices,
		log:              slog.Default(),
		verifyMaxRetries: DefaultVerifyMaxRetries,
		verifyDelay:      DefaultVerifyDelay,
		now:              time.Now,
	}
}

// GetQuote prices a cross-ledger swap. The home ledger's read-only quote
// primitive is authoritative; when it fails, the external reference price
// feed supplies exchangeRate = price(pay) / price(receive).
func (c *Coordinator) GetQuote(ctx context.Context, pay types.Asset, amount decimal.Decimal, receive types.Asset) (*types.Quote, error) {
	lq, err := c.ledger.Quote(ctx, pay, amount, receive)
	if err == nil {
		price := decimal.Zero
		if amount.IsPositive() {
			price = lq.ReceiveAmount.Div(amount)
		}
		return &types.Quote{
			ReceiveAmount: lq.ReceiveAmount,
			Price:         price,
			GasFees:       lq.Fees,
			CreatedAt:     c.now(),
		}, nil
	}

	c.log.Debug("ledger quote unavailable, falling back to reference prices",
		"pay", pay.Symbol, "receive", receive.Symbol, "error", err)

	rate, rateErr := c.prices.ExchangeRate(ctx, pay.Symbol, receive.Symbol)
	if rateErr != nil {
		return nil, fmt.Errorf("quote unavailable: %w", rateErr)
	}

	return &types.Quote{
		ReceiveAmount: amount.Mul(rate),
		Price:         rate,
		CreatedAt:     c.now(),
	}, nil
}

// ExecuteArgs carries everything needed to submit one cross-ledger swap.
type ExecuteArgs struct {
	Pay            types.Asset
	PayAmount      decimal.Decimal
	Receive        types.Asset
	ReceiveAmount  decimal.Decimal
	PayAddress     string // depositing address on the pay side
	ReceiveAddress string // settlement address on the receive side
	MaxSlippagePct float64
	Fees           []types.Fee

	// PayTxID is the foreign-chain signature proving the pay-side deposit.
	// When set it is verified against the home ledger before submission.
	PayTxID string

	// SignedMessage authorizes the swap on behalf of the foreign wallet.
	SignedMessage []byte
}

// ExecuteSwap verifies the optional pay-side proof and submits the swap to
// the home ledger, returning the job id to poll.
func (c *Coordinator) ExecuteSwap(ctx context.Context, args ExecuteArgs) (string, error) {
	if args.PayTxID != "" {
		ok := c.VerifyForeignTransaction(ctx, args.PayTxID, nil, c.verifyMaxRetries, c.verifyDelay)
		if !ok {
			return "", &errs.ExecutionError{
				Reason: fmt.Sprintf("foreign transaction %s was not registered in time", args.PayTxID),
			}
		}
	}
	return c.submit(ctx, args)
}

// submit builds the execute params and hands the swap to the home ledger.
// Callers must have verified args.PayTxID already.
func (c *Coordinator) submit(ctx context.Context, args ExecuteArgs) (string, error) {
	params := types.ExecuteParams{
		RequestID:      uuid.NewString(),
		PaySymbol:      args.Pay.Symbol,
		PayAmount:      args.PayAmount,
		ReceiveSymbol:  args.Receive.Symbol,
		ReceiveAmount:  args.ReceiveAmount,
		ReceiveAddress: args.ReceiveAddress,
		MaxSlippagePct: args.MaxSlippagePct,
		Fees:           args.Fees,
		PayTxID:        args.PayTxID,
		SignedMessage:  args.SignedMessage,
	}

	jobID, err := c.ledger.Execute(ctx, params)
	if err != nil {
		return "", fmt.Errorf("swap submission failed: %w", err)
	}
	if jobID == "" {
		return "", &errs.ExecutionError{Reason: "ledger returned no job id"}
	}

	c.log.Info("cross-ledger swap submitted",
		"job_id", jobID, "pay", args.Pay.Symbol, "receive", args.Receive.Symbol)
	return jobID, nil
}

// verifyCheckpoints maps poll attempts to the coarse progress messages
// surfaced while waiting for the home ledger to register a foreign
// transaction. With the default 500ms delay they land at roughly 0s,
// 1.5s, 4.5s and 10s.
var verifyCheckpoints = map[int]string{
	0:  "Verifying transaction...",
	3:  "Waiting for confirmation...",
	9:  "Still waiting on the network...",
	20: "This is taking longer than usual...",
}

// VerifyForeignTransaction polls the home ledger until it registers the
// foreign transaction with the given signature. It returns true on the
// first non-empty lookup and false after maxRetries empty polls spaced
// delay apart. A timeout is reported as false, not an error: the caller
// owns the translation into a user-facing retry state.
func (c *Coordinator) VerifyForeignTransaction(ctx context.Context, signature string, onStatus func(string), maxRetries int, delay time.Duration) bool {
	if maxRetries <= 0 {
		maxRetries = DefaultVerifyMaxRetries
	}
	if delay <= 0 {
		delay = DefaultVerifyDelay
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if msg, ok := verifyCheckpoints[attempt]; ok && onStatus != nil {
			onStatus(msg)
		}

		record, err := c.ledger.LookupForeignTransaction(ctx, signature)
		if err != nil {
			// A failed lookup is indistinguishable from "not yet";
			// keep polling until the attempts run out.
			c.log.Debug("foreign transaction lookup failed", "error", err)
		} else if record != nil {
			return true
		}

		if attempt < maxRetries-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return false
			}
		}
	}

	return false
}

// ExecuteForeignToHome runs the pay-on-foreign-chain flow: send the
// deposit from the foreign wallet, wait for the home ledger to register
// it, then submit the swap with the signed canonical message.
func (c *Coordinator) ExecuteForeignToHome(ctx context.Context, args ExecuteArgs, onStatus func(string)) (string, error) {
	caps := c.wallet.Capabilities()

	var (
		payTx string
		err   error
	)
	switch args.Pay.Origin {
	case types.OriginForeignNative:
		if !caps.CanSendNativeAsset {
			return "", fmt.Errorf("connected wallet cannot send %s directly; transfer %s to %s manually and retry with the transaction signature",
				args.Pay.Symbol, args.PayAmount.String(), args.PayAddress)
		}
		payTx, err = c.wallet.SendNativeAsset(ctx, args.PayAddress, args.PayAmount)
	case types.OriginForeignToken:
		payTx, err = c.wallet.SendToken(ctx, args.Pay.MintID, args.PayAddress, args.PayAmount)
	default:
		return "", fmt.Errorf("pay asset %s is not a foreign asset", args.Pay.Symbol)
	}
	if err != nil {
		return "", fmt.Errorf("pay-side transfer failed: %w", err)
	}

	if onStatus != nil {
		onStatus("Deposit sent: " + payTx)
	}
	if !c.VerifyForeignTransaction(ctx, payTx, onStatus, c.verifyMaxRetries, c.verifyDelay) {
		return "", &errs.ExecutionError{
			Reason: fmt.Sprintf("deposit %s was not registered by the ledger; the transfer may still settle", payTx),
		}
	}

	args.PayTxID = payTx
	if caps.CanSignMessage {
		signed, signErr := c.signCanonical(args)
		if signErr != nil {
			return "", signErr
		}
		args.SignedMessage = signed
	}

	// The deposit is already verified, so submit directly.
	return c.submit(ctx, args)
}

// ExecuteHomeToForeign runs the pay-on-home-ledger flow: allowance
// handling for pre-approval assets, then submission with the foreign
// receive address.
func (c *Coordinator) ExecuteHomeToForeign(ctx context.Context, args ExecuteArgs, spender, owner string) (string, error) {
	if args.Pay.Origin != types.OriginHome {
		return "", fmt.Errorf("pay asset %s is not a home asset", args.Pay.Symbol)
	}

	if args.Pay.UsesAllowance {
		allowance, err := c.ledger.Allowance(ctx, owner, spender, args.Pay)
		if err != nil {
			return "", &errs.NetworkError{Op: "allowance check", Err: err}
		}
		need := args.PayAmount.Add(args.Pay.Fee)
		if allowance.LessThan(need) {
			if err := c.ledger.Approve(ctx, spender, need, args.Pay); err != nil {
				return "", fmt.Errorf("approve failed: %w", err)
			}
		}
	}

	if args.ReceiveAddress == "" {
		args.ReceiveAddress = c.wallet.Address()
	}

	if c.wallet.Capabilities().CanSignMessage {
		signed, err := c.signCanonical(args)
		if err != nil {
			return "", err
		}
		args.SignedMessage = signed
	}

	return c.ExecuteSwap(ctx, args)
}

// signCanonical builds and signs the canonical message for the swap.
func (c *Coordinator) signCanonical(args ExecuteArgs) ([]byte, error) {
	payAtomic, err := args.Pay.AtomicUnits(args.PayAmount)
	if err != nil {
		return nil, err
	}
	receiveAtomic, err := args.Receive.AtomicUnits(args.ReceiveAmount)
	if err != nil {
		return nil, err
	}

	msg := CanonicalMessage{
		PayAsset:            args.Pay.Symbol,
		PayAmountAtomic:     payAtomic,
		PayAddress:          args.PayAddress,
		ReceiveAsset:        args.Receive.Symbol,
		ReceiveAmountAtomic: receiveAtomic,
		ReceiveAddress:      args.ReceiveAddress,
		MaxSlippage:         args.MaxSlippagePct,
		Timestamp:           uint64(c.now().UnixMilli()),
		ReferredBy:          c.ReferredBy,
	}

	signed, err := c.wallet.SignMessage(msg.Bytes())
	if err != nil {
		return nil, fmt.Errorf("message signing failed: %w", err)
	}
	return signed, nil
}
