package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"ledger-swap/pkg/types"
)

// scriptedLedger replays a fixed sequence of job states; nil entries mean
// the job is not visible yet. The last entry repeats forever.
type scriptedLedger struct {
	mu    sync.Mutex
	steps []*types.SwapJob
	i     int
	err   error
	calls int
}

func (s *scriptedLedger) JobStatus(ctx context.Context, jobID string) (*types.SwapJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.steps) == 0 {
		return nil, nil
	}
	step := s.steps[s.i]
	if s.i < len(s.steps)-1 {
		s.i++
	}
	return step, nil
}

func (s *scriptedLedger) BalanceOf(ctx context.Context, owner string, asset types.Asset) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *scriptedLedger) Allowance(ctx context.Context, owner, spender string, asset types.Asset) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (s *scriptedLedger) Approve(ctx context.Context, spender string, amount decimal.Decimal, asset types.Asset) error {
	return nil
}

func (s *scriptedLedger) Quote(ctx context.Context, pay types.Asset, amount decimal.Decimal, receive types.Asset) (*types.LedgerQuote, error) {
	return nil, errors.New("not implemented")
}

func (s *scriptedLedger) Execute(ctx context.Context, params types.ExecuteParams) (string, error) {
	return "", errors.New("not implemented")
}

func (s *scriptedLedger) LookupForeignTransaction(ctx context.Context, signature string) (*types.ForeignTxRecord, error) {
	return nil, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	next      types.NotifyHandle
	infos     []string
	successes []string
	failures  []string
	dismissed int
}

func (n *recordingNotifier) Info(message string, d time.Duration) types.NotifyHandle {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.infos = append(n.infos, message)
	n.next++
	return n.next
}

func (n *recordingNotifier) Success(message string, d time.Duration) types.NotifyHandle {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
	n.next++
	return n.next
}

func (n *recordingNotifier) Error(message string, d time.Duration) types.NotifyHandle {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, message)
	n.next++
	return n.next
}

func (n *recordingNotifier) Dismiss(handle types.NotifyHandle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dismissed++
}

func (n *recordingNotifier) counts() (infos, successes, failures int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.infos), len(n.successes), len(n.failures)
}

func (n *recordingNotifier) dismissCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dismissed
}

type countingRefresher struct {
	mu      sync.Mutex
	all     int
	foreign int
}

func (r *countingRefresher) RefreshAll() {
	r.mu.Lock()
	r.all++
	r.mu.Unlock()
}

func (r *countingRefresher) RefreshForeign() {
	r.mu.Lock()
	r.foreign++
	r.mu.Unlock()
}

func (r *countingRefresher) allCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.all
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func monitorAssets() (icp, sol types.Asset) {
	icp = types.Asset{Symbol: "ICP", Decimals: 8, Origin: types.OriginHome}
	sol = types.Asset{Symbol: "SOL", Decimals: 9, Origin: types.OriginForeignNative}
	return
}

func newTestMonitor(ledger *scriptedLedger, notify *recordingNotifier, balances *countingRefresher) *Monitor {
	m := New(ledger, notify, balances)
	m.pollInterval = 2 * time.Millisecond
	m.gcGrace = 20 * time.Millisecond
	return m
}

func TestMonitorHappyPath(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{
		{ID: "1", Status: types.JobPending},
		{ID: "1", Status: types.JobProcessing},
		{ID: "1", Status: types.JobConfirmed, ReceiveTxSig: "settle-sig"},
	}}
	notify := &recordingNotifier{}
	balances := &countingRefresher{}
	m := newTestMonitor(ledger, notify, balances)
	defer m.StopAllMonitoring()

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1.5"), dec("30"))

	require.Eventually(t, func() bool {
		view, ok := m.Job("1")
		return ok && view.Status == types.JobConfirmed
	}, time.Second, time.Millisecond)

	view, _ := m.Job("1")
	require.Equal(t, "settle-sig", view.SettlementSig)

	_, successes, failures := notify.counts()
	require.Equal(t, 1, successes, "exactly one success notification")
	require.Zero(t, failures)
	require.Contains(t, notify.successes[0], "settle-sig")

	require.GreaterOrEqual(t, balances.allCount(), 1, "balances refresh at settlement")
}

func TestMonitorRemovesRecordAfterGrace(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{
		{ID: "1", Status: types.JobConfirmed},
	}}
	m := newTestMonitor(ledger, &recordingNotifier{}, &countingRefresher{})
	defer m.StopAllMonitoring()

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1"), dec("20"))

	require.Eventually(t, func() bool {
		_, ok := m.Job("1")
		return !ok
	}, time.Second, time.Millisecond, "finished record must be dropped after the grace period")
}

func TestMonitorFailedJob(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{
		{ID: "1", Status: types.JobProcessing},
		{ID: "1", Status: types.JobFailed, FailReason: "pool drained"},
	}}
	notify := &recordingNotifier{}
	balances := &countingRefresher{}
	m := newTestMonitor(ledger, notify, balances)
	defer m.StopAllMonitoring()

	icp, sol := monitorAssets()
	m.StartMonitoring("1", icp, sol, dec("2"), dec("0.1"))

	require.Eventually(t, func() bool {
		view, ok := m.Job("1")
		return ok && view.Status == types.JobFailed
	}, time.Second, time.Millisecond)

	_, successes, failures := notify.counts()
	require.Zero(t, successes)
	require.Equal(t, 1, failures)
	require.Contains(t, notify.failures[0], "pool drained")
	require.Zero(t, balances.allCount(), "no balance refresh on failure")
}

func TestMonitorWaitsForJobVisibility(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{
		nil,
		nil,
		{ID: "1", Status: types.JobSubmitted},
	}}
	m := newTestMonitor(ledger, &recordingNotifier{}, &countingRefresher{})
	defer m.StopAllMonitoring()

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1"), dec("20"))

	require.Eventually(t, func() bool {
		view, ok := m.Job("1")
		return ok && view.Status == types.JobSubmitted
	}, time.Second, time.Millisecond)
}

func TestMonitorPollErrorsAreRecordedNotFatal(t *testing.T) {
	ledger := &scriptedLedger{err: errors.New("canister unreachable")}
	m := newTestMonitor(ledger, &recordingNotifier{}, &countingRefresher{})
	defer m.StopAllMonitoring()

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1"), dec("20"))

	require.Eventually(t, func() bool {
		view, ok := m.Job("1")
		return ok && view.LastError != ""
	}, time.Second, time.Millisecond)

	// Polling keeps going despite the errors.
	before := func() int { ledger.mu.Lock(); defer ledger.mu.Unlock(); return ledger.calls }()
	require.Eventually(t, func() bool {
		ledger.mu.Lock()
		defer ledger.mu.Unlock()
		return ledger.calls > before
	}, time.Second, time.Millisecond)
}

func TestMonitorStartIsIdempotent(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{{ID: "1", Status: types.JobPending}}}
	notify := &recordingNotifier{}
	m := newTestMonitor(ledger, notify, &countingRefresher{})
	defer m.StopAllMonitoring()

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1"), dec("20"))
	m.StartMonitoring("1", sol, icp, dec("1"), dec("20"))

	infos, _, _ := notify.counts()
	require.Equal(t, 1, infos, "duplicate start must not spawn a second watcher")
}

func TestMonitorStopDismissesLiveToast(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{{ID: "1", Status: types.JobPending}}}
	notify := &recordingNotifier{}
	m := newTestMonitor(ledger, notify, &countingRefresher{})

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1"), dec("20"))
	m.StopMonitoring("1")

	require.Equal(t, 1, notify.dismissCount(), "stopping must dismiss the live notification")

	m.StopMonitoring("1")
	require.Equal(t, 1, notify.dismissCount(), "a repeated stop must not dismiss again")
}

func TestMonitorOnSettledRunsOnSuccessOnly(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{
		{ID: "1", Status: types.JobProcessing},
		{ID: "1", Status: types.JobConfirmed, ReceiveTxSig: "settle-sig"},
	}}
	m := newTestMonitor(ledger, &recordingNotifier{}, &countingRefresher{})
	defer m.StopAllMonitoring()

	var mu sync.Mutex
	var settled []JobView
	m.OnSettled = func(v JobView) {
		mu.Lock()
		settled = append(settled, v)
		mu.Unlock()
	}

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1.5"), dec("30"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(settled) == 1
	}, time.Second, time.Millisecond)

	mu.Lock()
	require.Equal(t, "1", settled[0].ID)
	require.Equal(t, types.JobConfirmed, settled[0].Status)
	mu.Unlock()

	// A failed job must not fire the callback.
	failed := &scriptedLedger{steps: []*types.SwapJob{
		{ID: "2", Status: types.JobFailed, FailReason: "pool drained"},
	}}
	m2 := newTestMonitor(failed, &recordingNotifier{}, &countingRefresher{})
	defer m2.StopAllMonitoring()

	var failCalls int
	m2.OnSettled = func(JobView) {
		mu.Lock()
		failCalls++
		mu.Unlock()
	}
	m2.StartMonitoring("2", icp, sol, dec("2"), dec("0.1"))

	require.Eventually(t, func() bool {
		view, ok := m2.Job("2")
		return ok && view.Status == types.JobFailed
	}, time.Second, time.Millisecond)

	mu.Lock()
	require.Zero(t, failCalls, "failure must not clear pending session amounts")
	mu.Unlock()
}

func TestMonitorStopIsIdempotent(t *testing.T) {
	ledger := &scriptedLedger{steps: []*types.SwapJob{{ID: "1", Status: types.JobPending}}}
	m := newTestMonitor(ledger, &recordingNotifier{}, &countingRefresher{})

	icp, sol := monitorAssets()
	m.StartMonitoring("1", sol, icp, dec("1"), dec("20"))

	m.StopMonitoring("1")
	m.StopMonitoring("1")
	m.StopMonitoring("unknown")

	_, ok := m.Job("1")
	require.False(t, ok)
}
