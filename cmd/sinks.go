package cmd

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fatih/color"

	"ledger-swap/pkg/types"
)

// terminalNotifier prints notifications to the terminal. Dismissal is a
// no-op because printed lines cannot be withdrawn; handles are still
// issued so callers can treat all notifiers uniformly.
type terminalNotifier struct {
	last atomic.Int64
}

func (n *terminalNotifier) Info(message string, _ time.Duration) types.NotifyHandle {
	color.Cyan("  %s", message)
	return types.NotifyHandle(n.last.Add(1))
}

func (n *terminalNotifier) Success(message string, _ time.Duration) types.NotifyHandle {
	color.Green("  %s", message)
	return types.NotifyHandle(n.last.Add(1))
}

func (n *terminalNotifier) Error(message string, _ time.Duration) types.NotifyHandle {
	color.Red("  %s", message)
	return types.NotifyHandle(n.last.Add(1))
}

func (n *terminalNotifier) Dismiss(types.NotifyHandle) {}

// logAnalytics writes engine events to the structured log instead of an
// external analytics backend.
type logAnalytics struct {
	log *slog.Logger
}

func newLogAnalytics() *logAnalytics {
	return &logAnalytics{log: slog.Default()}
}

func (a *logAnalytics) Track(event string, payload map[string]any) {
	attrs := make([]any, 0, len(payload)*2)
	for k, v := range payload {
		attrs = append(attrs, k, v)
	}
	a.log.Info("event: "+event, attrs...)
}

// noopRefresher satisfies BalanceRefresher for one-shot CLI runs, where
// balances are re-read on the next invocation anyway.
type noopRefresher struct{}

func (noopRefresher) RefreshAll()     {}
func (noopRefresher) RefreshForeign() {}
