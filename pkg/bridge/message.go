package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// CanonicalMessage is the fixed-field record a foreign wallet signs to
// authorize a cross-ledger swap. The serialized field order below is a wire
// contract: reordering or changing a type breaks signature verification on
// the receiving side and must be introduced as a new message version.
type CanonicalMessage struct {
	PayAsset            string
	PayAmountAtomic     uint64
	PayAddress          string
	ReceiveAsset        string
	ReceiveAmountAtomic uint64
	ReceiveAddress      string
	MaxSlippage         float64
	Timestamp           uint64 // milliseconds since epoch
	ReferredBy          string // empty means none
}

// Bytes serializes the message deterministically: a single JSON object
// whose keys appear in the canonical field order, with no extra whitespace.
func (m CanonicalMessage) Bytes() []byte {
	var buf bytes.Buffer
	buf.WriteByte('{')

	writeField(&buf, "pay_asset", strconv.Quote(m.PayAsset), true)
	writeField(&buf, "pay_amount", strconv.FormatUint(m.PayAmountAtomic, 10), false)
	writeField(&buf, "pay_address", strconv.Quote(m.PayAddress), false)
	writeField(&buf, "receive_asset", strconv.Quote(m.ReceiveAsset), false)
	writeField(&buf, "receive_amount", strconv.FormatUint(m.ReceiveAmountAtomic, 10), false)
	writeField(&buf, "receive_address", strconv.Quote(m.ReceiveAddress), false)
	writeField(&buf, "max_slippage", strconv.FormatFloat(m.MaxSlippage, 'f', -1, 64), false)
	writeField(&buf, "timestamp", strconv.FormatUint(m.Timestamp, 10), false)
	if m.ReferredBy == "" {
		writeField(&buf, "referred_by", "null", false)
	} else {
		writeField(&buf, "referred_by", strconv.Quote(m.ReferredBy), false)
	}

	buf.WriteByte('}')
	return buf.Bytes()
}

func writeField(buf *bytes.Buffer, key, value string, first bool) {
	if !first {
		buf.WriteByte(',')
	}
	fmt.Fprintf(buf, "%q:%s", key, value)
}

// Decode parses serialized canonical-message bytes, for verification and
// tests. Decoding is not order-sensitive; only encoding is.
func Decode(data []byte) (CanonicalMessage, error) {
	var raw struct {
		PayAsset       string  `json:"pay_asset"`
		PayAmount      uint64  `json:"pay_amount"`
		PayAddress     string  `json:"pay_address"`
		ReceiveAsset   string  `json:"receive_asset"`
		ReceiveAmount  uint64  `json:"receive_amount"`
		ReceiveAddress string  `json:"receive_address"`
		MaxSlippage    float64 `json:"max_slippage"`
		Timestamp      uint64  `json:"timestamp"`
		ReferredBy     *string `json:"referred_by"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return CanonicalMessage{}, fmt.Errorf("malformed canonical message: %w", err)
	}

	m := CanonicalMessage{
		PayAsset:            raw.PayAsset,
		PayAmountAtomic:     raw.PayAmount,
		PayAddress:          raw.PayAddress,
		ReceiveAsset:        raw.ReceiveAsset,
		ReceiveAmountAtomic: raw.ReceiveAmount,
		ReceiveAddress:      raw.ReceiveAddress,
		MaxSlippage:         raw.MaxSlippage,
		Timestamp:           raw.Timestamp,
	}
	if raw.ReferredBy != nil {
		m.ReferredBy = *raw.ReferredBy
	}
	return m, nil
}
