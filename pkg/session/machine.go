// Package session models one swap session's lifecycle as a pure state
// machine. The machine performs no I/O: Transition returns the next state,
// the updated context, and the effects the caller should run.
package session

import "ledger-swap/pkg/types"

// State is the session's lifecycle phase.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateQuoting    State = "quoting"
	StateReady      State = "ready"
	StateConfirming State = "confirming"
	StateExecuting  State = "executing"
	StateComplete   State = "complete"
	StateError      State = "error"
)

// EventType names an input to the machine.
type EventType string

const (
	EventConnect      EventType = "CONNECT"
	EventConnected    EventType = "CONNECTED"
	EventUpdateAmount EventType = "UPDATE_AMOUNT"
	EventQuoteSuccess EventType = "QUOTE_SUCCESS"
	EventQuoteError   EventType = "QUOTE_ERROR"
	EventInitiateSwap EventType = "INITIATE_SWAP"
	EventConfirm      EventType = "CONFIRM"
	EventCancel       EventType = "CANCEL"
	EventSuccess      EventType = "SUCCESS"
	EventFailure      EventType = "FAILURE"
	EventRetry        EventType = "RETRY"
	EventReset        EventType = "RESET"
)

// Event carries an input and its payload.
type Event struct {
	Type   EventType
	Amount string
	Quote  *types.Quote
	Err    string
	TxHash string
}

// Context is the session's accumulated data. It is copied, never mutated
// in place.
type Context struct {
	Form   types.SwapRequest
	Quote  *types.Quote
	Err    string
	TxHash string
}

// Effect asks the caller to run a side effect after a transition.
type Effect string

const (
	EffectFetchQuote  Effect = "fetch_quote"
	EffectExecuteSwap Effect = "execute_swap"
	EffectClearForm   Effect = "clear_form"
)

// Initial returns the machine's starting state and a default context.
func Initial() (State, Context) {
	return StateIdle, Context{}
}

// Transition applies one event. Unknown (state, event) pairs are ignored:
// the same state and context come back with no effects.
//
// complete is absorbing until RESET; error additionally accepts RETRY.
// Execution is only reachable through confirming.
func Transition(s State, ev Event, c Context) (State, Context, []Effect) {
	switch s {
	case StateIdle:
		switch ev.Type {
		case EventConnect:
			return StateConnecting, c, nil
		case EventUpdateAmount:
			c.Form.PayAmount = ev.Amount
			return StateQuoting, c, []Effect{EffectFetchQuote}
		}

	case StateConnecting:
		switch ev.Type {
		case EventConnected:
			return StateIdle, c, nil
		case EventFailure:
			c.Err = ev.Err
			return StateError, c, nil
		}

	case StateQuoting:
		switch ev.Type {
		case EventUpdateAmount:
			// Always re-quote on an amount change.
			c.Form.PayAmount = ev.Amount
			return StateQuoting, c, []Effect{EffectFetchQuote}
		case EventQuoteSuccess:
			c.Quote = ev.Quote
			c.Err = ""
			return StateReady, c, nil
		case EventQuoteError:
			c.Err = ev.Err
			return StateError, c, nil
		}

	case StateReady:
		switch ev.Type {
		case EventUpdateAmount:
			c.Form.PayAmount = ev.Amount
			c.Quote = nil
			return StateQuoting, c, []Effect{EffectFetchQuote}
		case EventInitiateSwap:
			return StateConfirming, c, nil
		}

	case StateConfirming:
		switch ev.Type {
		case EventConfirm:
			return StateExecuting, c, []Effect{EffectExecuteSwap}
		case EventCancel:
			return StateReady, c, nil
		}

	case StateExecuting:
		switch ev.Type {
		case EventSuccess:
			c.TxHash = ev.TxHash
			c.Err = ""
			return StateComplete, c, nil
		case EventFailure:
			c.Err = ev.Err
			return StateError, c, nil
		}

	case StateComplete:
		if ev.Type == EventReset {
			_, fresh := Initial()
			return StateIdle, fresh, []Effect{EffectClearForm}
		}

	case StateError:
		switch ev.Type {
		case EventRetry:
			c.Err = ""
			return StateIdle, c, nil
		case EventReset:
			_, fresh := Initial()
			return StateIdle, fresh, []Effect{EffectClearForm}
		}
	}

	return s, c, nil
}
