// Package monitor polls in-flight cross-ledger swap jobs and turns status
// changes into user notifications and balance refreshes.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"ledger-swap/pkg/types"
)

const (
	// DefaultPollInterval is how often each monitored job is polled.
	DefaultPollInterval = 200 * time.Millisecond

	// DefaultGCGrace is how long a finished job stays visible before its
	// record is dropped.
	DefaultGCGrace = 30 * time.Second

	pollTimeout = 5 * time.Second
)

// refreshOffsets are the delays after settlement at which balances are
// refreshed again. Foreign-chain balances lag the home ledger's view, so a
// single refresh at settlement time often reads stale numbers.
var refreshOffsets = []time.Duration{
	0,
	1 * time.Second,
	2 * time.Second,
	3 * time.Second,
	5 * time.Second,
}

// JobView is a read-only snapshot of a monitored job.
type JobView struct {
	ID            string
	PaySymbol     string
	ReceiveSymbol string
	PayAmount     decimal.Decimal
	ReceiveAmount decimal.Decimal
	Status        types.JobStatus
	SettlementSig string
	FailReason    string
	LastError     string
	StartedAt     time.Time
}

type jobRecord struct {
	view    JobView
	foreign bool

	stop     chan struct{}
	stopped  bool
	handle   types.NotifyHandle
	hasToast bool
	timers   []*time.Timer
}

// Monitor tracks cross-ledger swap jobs until they settle or fail. Records
// live only in memory; a restart loses them and callers re-poll by id.
type Monitor struct {
	ledger   types.HomeLedger
	notify   types.Notifier
	balances types.BalanceRefresher
	log      *slog.Logger

	pollInterval time.Duration
	gcGrace      time.Duration
	now          func() time.Time

	// OnSettled, when set, runs once after a job settles successfully.
	// Callers that track pending swap amounts in a session clear them here.
	OnSettled func(JobView)

	mu   sync.RWMutex
	jobs map[string]*jobRecord
}

// New creates a monitor over the home ledger with the default poll cadence.
func New(ledger types.HomeLedger, notify types.Notifier, balances types.BalanceRefresher) *Monitor {
	return &Monitor{
		ledger:       ledger,
		notify:       notify,
		balances:     balances,
		log:          slog.Default(),
		pollInterval: DefaultPollInterval,
		gcGrace:      DefaultGCGrace,
		now:          time.Now,
		jobs:         make(map[string]*jobRecord),
	}
}

// StartMonitoring begins polling a job. Starting an already-monitored job
// is a no-op.
func (m *Monitor) StartMonitoring(jobID string, pay, receive types.Asset, payAmount, receiveAmount decimal.Decimal) {
	m.mu.Lock()
	if _, ok := m.jobs[jobID]; ok {
		m.mu.Unlock()
		return
	}
	r := &jobRecord{
		view: JobView{
			ID:            jobID,
			PaySymbol:     pay.Symbol,
			ReceiveSymbol: receive.Symbol,
			PayAmount:     payAmount,
			ReceiveAmount: receiveAmount,
			Status:        types.JobPending,
			StartedAt:     m.now(),
		},
		foreign: pay.IsForeign() || receive.IsForeign(),
		stop:    make(chan struct{}),
	}
	m.jobs[jobID] = r
	m.mu.Unlock()

	handle := m.notify.Info(fmt.Sprintf("Swapping %s %s for ~%s %s...",
		payAmount, pay.Symbol, receiveAmount, receive.Symbol), 0)
	m.mu.Lock()
	r.handle = handle
	r.hasToast = true
	m.mu.Unlock()

	go m.run(r)
}

// StopMonitoring stops polling a job, dismisses its live notification, and
// drops its record. Stopping an unknown or already-stopped job is a no-op.
func (m *Monitor) StopMonitoring(jobID string) {
	m.mu.Lock()
	r, ok := m.jobs[jobID]
	if ok {
		delete(m.jobs, jobID)
		if !r.stopped {
			r.stopped = true
			close(r.stop)
		}
		if r.hasToast {
			m.notify.Dismiss(r.handle)
			r.hasToast = false
		}
		for _, t := range r.timers {
			t.Stop()
		}
	}
	m.mu.Unlock()
}

// StopAllMonitoring stops every tracked job.
func (m *Monitor) StopAllMonitoring() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.jobs))
	for id := range m.jobs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.StopMonitoring(id)
	}
}

// Job returns a snapshot of one monitored job.
func (m *Monitor) Job(jobID string) (JobView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.jobs[jobID]
	if !ok {
		return JobView{}, false
	}
	return r.view, true
}

// Jobs returns snapshots of every tracked job, finished ones included
// until their grace period lapses.
func (m *Monitor) Jobs() []JobView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]JobView, 0, len(m.jobs))
	for _, r := range m.jobs {
		out = append(out, r.view)
	}
	return out
}

func (m *Monitor) run(r *jobRecord) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	if m.poll(r) {
		return
	}
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if m.poll(r) {
				return
			}
		}
	}
}

// poll reads the job once and reacts to what changed. It returns true when
// the job reached a terminal status and polling must stop.
func (m *Monitor) poll(r *jobRecord) bool {
	ctx, cancel := context.WithTimeout(context.Background(), pollTimeout)
	job, err := m.ledger.JobStatus(ctx, r.view.ID)
	cancel()

	if err != nil {
		// Transient poll failures are recorded and retried, never fatal.
		m.mu.Lock()
		r.view.LastError = err.Error()
		m.mu.Unlock()
		m.log.Debug("job status poll failed", "job_id", r.view.ID, "error", err)
		return false
	}
	if job == nil {
		// The ledger has not surfaced the job yet.
		return false
	}

	m.mu.Lock()
	changed := job.Status != r.view.Status
	r.view.Status = job.Status
	r.view.LastError = ""
	if job.ReceiveTxSig != "" {
		r.view.SettlementSig = job.ReceiveTxSig
	}
	if job.FailReason != "" {
		r.view.FailReason = job.FailReason
	}
	view := r.view
	m.mu.Unlock()

	if job.Status.Terminal() {
		m.finish(r, view)
		return true
	}
	if changed {
		m.swapToast(r, m.notify.Info(progressMessage(view), 0))
	}
	return false
}

// finish handles a terminal status: final notification, balance refreshes
// on success, and delayed garbage collection of the record.
func (m *Monitor) finish(r *jobRecord, view JobView) {
	switch view.Status {
	case types.JobFailed:
		reason := view.FailReason
		if reason == "" {
			reason = "the swap could not be completed"
		}
		m.swapToast(r, m.notify.Error(fmt.Sprintf("Swap failed: %s", reason), 10*time.Second))

	default:
		msg := fmt.Sprintf("Swap complete: received %s %s", view.ReceiveAmount, view.ReceiveSymbol)
		if view.SettlementSig != "" {
			msg += fmt.Sprintf(" (tx %s)", view.SettlementSig)
		}
		m.swapToast(r, m.notify.Success(msg, 10*time.Second))
		m.scheduleRefreshes(r)
		if m.OnSettled != nil {
			m.OnSettled(view)
		}
	}

	m.log.Info("swap job finished", "job_id", view.ID, "status", view.Status)

	gc := time.AfterFunc(m.gcGrace, func() {
		m.mu.Lock()
		delete(m.jobs, view.ID)
		m.mu.Unlock()
	})
	m.mu.Lock()
	r.timers = append(r.timers, gc)
	if !r.stopped {
		r.stopped = true
		close(r.stop)
	}
	m.mu.Unlock()
}

// scheduleRefreshes re-reads balances several times after settlement.
func (m *Monitor) scheduleRefreshes(r *jobRecord) {
	foreign := r.foreign
	for _, offset := range refreshOffsets {
		if offset == 0 {
			m.balances.RefreshAll()
			continue
		}
		t := time.AfterFunc(offset, func() {
			if foreign {
				m.balances.RefreshForeign()
			} else {
				m.balances.RefreshAll()
			}
		})
		m.mu.Lock()
		r.timers = append(r.timers, t)
		m.mu.Unlock()
	}
}

// swapToast replaces the job's live notification with a new one.
func (m *Monitor) swapToast(r *jobRecord, next types.NotifyHandle) {
	m.mu.Lock()
	if r.hasToast {
		m.notify.Dismiss(r.handle)
	}
	r.handle = next
	r.hasToast = true
	m.mu.Unlock()
}

func progressMessage(view JobView) string {
	switch view.Status {
	case types.JobProcessing:
		return "Processing swap..."
	case types.JobWaitingForSignature:
		return "Waiting for signature..."
	case types.JobSendingToForeign:
		return fmt.Sprintf("Sending %s to the foreign ledger...", view.ReceiveSymbol)
	default:
		return "Swap queued..."
	}
}
