// Package errs defines the engine's error taxonomy and the mapping from
// raw failure causes to user-presentable messages.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, matched with errors.Is.
var (
	// ErrCancelled marks an explicit caller cancellation. It is never
	// logged as a failure and never tracked as a failure event.
	ErrCancelled = errors.New("cancelled")

	// ErrUnauthorized means no wallet/session is connected.
	ErrUnauthorized = errors.New("wallet not connected")

	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrQuoteExpired        = errors.New("quote expired")
	ErrSlippageExceeded    = errors.New("slippage exceeded")
	ErrNoRoute             = errors.New("no route found")
)

// NetworkError wraps a transient transport failure. Retryable.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ExecutionError means the ledger rejected the call outright.
type ExecutionError struct {
	Reason string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %s", e.Reason)
}

// ExhaustedRetriesError wraps the last cause after max attempts.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// userMessages maps known cause substrings to curated messages, checked in
// order. Unknown causes fall through to the raw message.
var userMessages = []struct {
	substr  string
	message string
}{
	{"insufficientfunds", "Insufficient funds to complete the swap."},
	{"insufficient balance", "Insufficient funds to complete the swap."},
	{"insufficient funds", "Insufficient funds to complete the swap."},
	{"user rejected", "The request was rejected in your wallet."},
	{"wallet not connected", "Connect a wallet before swapping."},
	{"quote expired", "The quote expired. Please fetch a new quote and try again."},
	{"slippage", "Price moved beyond your slippage tolerance. Adjust it or try again."},
	{"network", "A network error occurred. Please try again."},
	{"timeout", "A network error occurred. Please try again."},
}

// UserMessage normalizes any execution-path error into one user-facing
// string.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	lower := strings.ToLower(err.Error())
	for _, m := range userMessages {
		if strings.Contains(lower, m.substr) {
			return m.message
		}
	}
	return err.Error()
}
