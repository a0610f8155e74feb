package types

// JobStatus is the server-tracked state of an in-flight cross-ledger swap.
type JobStatus string

const (
	JobPending             JobStatus = "pending"
	JobProcessing          JobStatus = "processing"
	JobWaitingForSignature JobStatus = "waiting_for_signature"
	JobSendingToForeign    JobStatus = "sending_to_foreign_ledger"
	JobConfirmed           JobStatus = "confirmed"
	JobSubmitted           JobStatus = "submitted"
	JobFailed              JobStatus = "failed"
)

// Terminal reports whether the status is final. A terminal job is never
// polled again.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobConfirmed, JobSubmitted, JobFailed:
		return true
	default:
		return false
	}
}

// SwapJob is the home ledger's record of a cross-ledger swap in flight.
// Jobs live only in memory on the client side: a process restart loses
// local monitoring state, and callers must re-poll by id.
type SwapJob struct {
	ID           string    `json:"id"`
	Status       JobStatus `json:"status"`
	PayTxSig     string    `json:"pay_tx_sig,omitempty"`
	ReceiveTxSig string    `json:"receive_tx_sig,omitempty"`
	FailReason   string    `json:"fail_reason,omitempty"`
}

// ForeignTxRecord is the home ledger's view of a registered foreign-chain
// transaction, looked up by signature.
type ForeignTxRecord struct {
	Signature string `json:"signature"`
	Slot      uint64 `json:"slot"`
	Amount    string `json:"amount"`
	Sender    string `json:"sender"`
}
