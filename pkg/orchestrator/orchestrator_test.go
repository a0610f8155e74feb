package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ledger-swap/pkg/errs"
	"ledger-swap/pkg/quote"
	"ledger-swap/pkg/types"
	"ledger-swap/pkg/validate"
)

type approveCall struct {
	spender string
	amount  decimal.Decimal
	symbol  string
}

type fakeLedger struct {
	balance       decimal.Decimal
	allowance     decimal.Decimal
	approvals     []approveCall
	executeResult string
	executeErr    error
	executeCalls  int
}

func (f *fakeLedger) BalanceOf(ctx context.Context, owner string, asset types.Asset) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeLedger) Allowance(ctx context.Context, owner, spender string, asset types.Asset) (decimal.Decimal, error) {
	return f.allowance, nil
}

func (f *fakeLedger) Approve(ctx context.Context, spender string, amount decimal.Decimal, asset types.Asset) error {
	f.approvals = append(f.approvals, approveCall{spender: spender, amount: amount, symbol: asset.Symbol})
	f.allowance = amount
	return nil
}

func (f *fakeLedger) Quote(ctx context.Context, pay types.Asset, amount decimal.Decimal, receive types.Asset) (*types.LedgerQuote, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeLedger) Execute(ctx context.Context, params types.ExecuteParams) (string, error) {
	f.executeCalls++
	return f.executeResult, f.executeErr
}

func (f *fakeLedger) JobStatus(ctx context.Context, jobID string) (*types.SwapJob, error) {
	return nil, nil
}

func (f *fakeLedger) LookupForeignTransaction(ctx context.Context, signature string) (*types.ForeignTxRecord, error) {
	return nil, nil
}

type fakeAnalytics struct {
	events []string
}

func (f *fakeAnalytics) Track(event string, payload map[string]any) {
	f.events = append(f.events, event)
}

type staticPools struct {
	pools []types.Pool
}

func (s staticPools) Pools(ctx context.Context) ([]types.Pool, error) {
	return s.pools, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testAssets() (icp, usdt types.Asset) {
	icp = types.Asset{Symbol: "ICP", Decimals: 8, Origin: types.OriginHome, Fee: dec("0.0001")}
	usdt = types.Asset{Symbol: "USDT", Decimals: 6, Origin: types.OriginHome}
	return
}

func newTestOrchestrator(ledger *fakeLedger) (*Orchestrator, *fakeAnalytics) {
	v := validate.New()
	pools := staticPools{pools: []types.Pool{{
		ID: "p1", Symbol0: "ICP", Symbol1: "USDT",
		Balance0: dec("10000"), Balance1: dec("100000"),
	}}}
	analytics := &fakeAnalytics{}
	o := New(ledger, quote.NewEngine(pools, v), v, analytics, "swap-backend")
	o.SetRetryPolicy(RetryPolicy{MaxAttempts: 2, Backoff: BackoffConstant, InitialDelay: time.Millisecond})
	return o, analytics
}

func validRequest() types.SwapRequest {
	icp, usdt := testAssets()
	return types.SwapRequest{
		PayAsset:     icp,
		PayAmount:    "1",
		ReceiveAsset: usdt,
		SlippagePct:  1,
		UserAddress:  "aaaaa-aa",
	}
}

func TestExecuteSwapHappyPath(t *testing.T) {
	ledger := &fakeLedger{balance: dec("100"), executeResult: "12345"}
	o, analytics := newTestOrchestrator(ledger)

	res, err := o.ExecuteSwap(context.Background(), validRequest())
	require.NoError(t, err)
	require.Equal(t, "12345", res.TxHash)
	require.Equal(t, "1", res.PayAmount)
	require.NotEmpty(t, res.ReceiveAmount)
	require.Equal(t, []string{"swap_initiated", "swap_completed"}, analytics.events)
	require.Equal(t, 1, ledger.executeCalls)
}

func TestExecuteSwapValidationShortCircuits(t *testing.T) {
	ledger := &fakeLedger{balance: dec("100"), executeResult: "1"}
	o, analytics := newTestOrchestrator(ledger)

	req := validRequest()
	req.ReceiveAsset = req.PayAsset

	_, err := o.ExecuteSwap(context.Background(), req)
	require.Error(t, err)
	require.Empty(t, analytics.events, "validation failure must have no side effects")
	require.Zero(t, ledger.executeCalls)
}

func TestExecuteSwapRequiresWallet(t *testing.T) {
	ledger := &fakeLedger{balance: dec("100")}
	o, _ := newTestOrchestrator(ledger)

	req := validRequest()
	req.UserAddress = ""

	_, err := o.ExecuteSwap(context.Background(), req)
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestExecuteSwapInsufficientBalance(t *testing.T) {
	ledger := &fakeLedger{balance: dec("0.5")}
	o, analytics := newTestOrchestrator(ledger)

	_, err := o.ExecuteSwap(context.Background(), validRequest())
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)
	require.Equal(t, []string{"swap_failed"}, analytics.events)
}

func TestExecuteSwapSlippageGate(t *testing.T) {
	ledger := &fakeLedger{balance: dec("10000"), executeResult: "1"}
	o, _ := newTestOrchestrator(ledger)

	// A trade this large against a 10000-deep pool realizes ~9% impact.
	req := validRequest()
	req.PayAmount = "1000"

	_, err := o.ExecuteSwap(context.Background(), req)
	require.ErrorIs(t, err, errs.ErrSlippageExceeded)
}

func TestExecuteSwapNonNumericResultIsExecutionError(t *testing.T) {
	ledger := &fakeLedger{balance: dec("100"), executeResult: "Err: pool drained"}
	o, _ := newTestOrchestrator(ledger)

	_, err := o.ExecuteSwap(context.Background(), validRequest())
	require.Error(t, err)

	var exhausted *errs.ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	var execErr *errs.ExecutionError
	require.ErrorAs(t, exhausted.Last, &execErr)
	require.Equal(t, 2, ledger.executeCalls, "execution errors are retried")
}

func TestExecuteSwapApprovesAllowanceWhenShort(t *testing.T) {
	ledger := &fakeLedger{balance: dec("100"), allowance: dec("0"), executeResult: "7"}
	o, _ := newTestOrchestrator(ledger)

	req := validRequest()
	req.PayAsset.UsesAllowance = true

	_, err := o.ExecuteSwap(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, ledger.approvals, 1)
	require.Equal(t, "swap-backend", ledger.approvals[0].spender)
	// Approval covers amount plus one transfer fee.
	require.True(t, ledger.approvals[0].amount.Equal(dec("1.0001")),
		"approved %s", ledger.approvals[0].amount)
}

func TestExecuteSwapSkipsApprovalWhenCovered(t *testing.T) {
	ledger := &fakeLedger{balance: dec("100"), allowance: dec("50"), executeResult: "7"}
	o, _ := newTestOrchestrator(ledger)

	req := validRequest()
	req.PayAsset.UsesAllowance = true

	_, err := o.ExecuteSwap(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, ledger.approvals)
}
