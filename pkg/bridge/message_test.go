package bridge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleMessage() CanonicalMessage {
	return CanonicalMessage{
		PayAsset:            "SOL",
		PayAmountAtomic:     1500000000,
		PayAddress:          "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		ReceiveAsset:        "ICP",
		ReceiveAmountAtomic: 4200000000,
		ReceiveAddress:      "aaaaa-aa",
		MaxSlippage:         0.5,
		Timestamp:           1717171717000,
	}
}

func TestCanonicalMessageBytesFieldOrder(t *testing.T) {
	got := string(sampleMessage().Bytes())
	want := `{"pay_asset":"SOL","pay_amount":1500000000,` +
		`"pay_address":"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",` +
		`"receive_asset":"ICP","receive_amount":4200000000,` +
		`"receive_address":"aaaaa-aa","max_slippage":0.5,` +
		`"timestamp":1717171717000,"referred_by":null}`
	require.Equal(t, want, got)
}

func TestCanonicalMessageBytesDeterministic(t *testing.T) {
	m := sampleMessage()
	m.ReferredBy = "ref-123"
	require.Equal(t, m.Bytes(), m.Bytes())
	require.Contains(t, string(m.Bytes()), `"referred_by":"ref-123"`)
}

func TestDecodeRoundTrip(t *testing.T) {
	m := sampleMessage()
	m.ReferredBy = "ref-123"

	got, err := Decode(m.Bytes())
	require.NoError(t, err)
	require.Equal(t, m, got)
}

func TestDecodeIsOrderInsensitive(t *testing.T) {
	shuffled := []byte(`{"timestamp":1717171717000,"pay_asset":"SOL",` +
		`"receive_amount":4200000000,"pay_amount":1500000000,` +
		`"receive_address":"aaaaa-aa","max_slippage":0.5,` +
		`"pay_address":"9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",` +
		`"receive_asset":"ICP","referred_by":null}`)

	got, err := Decode(shuffled)
	require.NoError(t, err)
	require.Equal(t, sampleMessage(), got)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := Decode([]byte(`{"pay_asset":`))
	require.Error(t, err)
}
