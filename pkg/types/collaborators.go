package types

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerQuote is the home ledger's own answer to a quote call.
type LedgerQuote struct {
	ReceiveAmount decimal.Decimal `json:"receive_amount"`
	Fees          []Fee           `json:"fees"`
}

// ExecuteParams is the record handed to the home ledger's execute primitive.
type ExecuteParams struct {
	RequestID      string          `json:"request_id"` // unique correlation id
	PaySymbol      string          `json:"pay_symbol"`
	PayAmount      decimal.Decimal `json:"pay_amount"`
	ReceiveSymbol  string          `json:"receive_symbol"`
	ReceiveAmount  decimal.Decimal `json:"receive_amount"`
	ReceiveAddress string          `json:"receive_address,omitempty"`
	MaxSlippagePct float64         `json:"max_slippage_pct"`
	Fees           []Fee           `json:"fees,omitempty"`

	// PayTxID carries proof of the foreign-side deposit when the pay asset
	// left a foreign wallet. It must be verified before submission.
	PayTxID string `json:"pay_tx_id,omitempty"`

	// SignedMessage is the canonical message signature authorizing the swap
	// on behalf of the foreign wallet, when that wallet can sign.
	SignedMessage []byte `json:"signed_message,omitempty"`
}

// HomeLedger is the smart-contract ledger actor the engine drives.
// Implementations are transport-specific and live outside the core.
type HomeLedger interface {
	BalanceOf(ctx context.Context, owner string, asset Asset) (decimal.Decimal, error)
	Allowance(ctx context.Context, owner, spender string, asset Asset) (decimal.Decimal, error)
	Approve(ctx context.Context, spender string, amount decimal.Decimal, asset Asset) error

	// Quote prices a swap using the ledger's read-only quote primitive.
	Quote(ctx context.Context, pay Asset, amount decimal.Decimal, receive Asset) (*LedgerQuote, error)

	// Execute submits a swap and returns the ledger's job id.
	Execute(ctx context.Context, params ExecuteParams) (string, error)

	// JobStatus returns nil with no error while the job is not yet visible.
	JobStatus(ctx context.Context, jobID string) (*SwapJob, error)

	// LookupForeignTransaction returns nil with no error while the ledger
	// has not yet registered the foreign transaction.
	LookupForeignTransaction(ctx context.Context, signature string) (*ForeignTxRecord, error)
}

// NotifyHandle identifies a live notification so it can be dismissed.
type NotifyHandle int64

// Notifier is the user-facing notification sink.
type Notifier interface {
	Info(message string, duration time.Duration) NotifyHandle
	Success(message string, duration time.Duration) NotifyHandle
	Error(message string, duration time.Duration) NotifyHandle
	Dismiss(handle NotifyHandle)
}

// BalanceRefresher triggers re-reads of cached balances after settlement.
type BalanceRefresher interface {
	RefreshAll()
	// RefreshForeign aggressively refreshes foreign-chain balances, which
	// lag behind the home ledger's view.
	RefreshForeign()
}

// Analytics receives engine events.
type Analytics interface {
	Track(event string, payload map[string]any)
}
