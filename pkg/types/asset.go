package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetOrigin identifies which ledger an asset is native to.
type AssetOrigin string

const (
	OriginHome          AssetOrigin = "home"           // asset lives on the home smart-contract ledger
	OriginForeignNative AssetOrigin = "foreign_native" // the foreign chain's gas asset
	OriginForeignToken  AssetOrigin = "foreign_token"  // a token minted on the foreign chain
)

// Asset describes one swappable asset and how it behaves on its ledger.
type Asset struct {
	Symbol   string      `json:"symbol"`
	LedgerID string      `json:"ledger_id"`         // contract/canister id on the home ledger
	MintID   string      `json:"mint_id,omitempty"` // mint/contract address on the foreign chain
	Decimals int32       `json:"decimals"`
	Origin   AssetOrigin `json:"origin"`

	// Fee is the home-ledger transfer fee, charged once per transfer and
	// twice for assets that use the allowance (approve-then-transfer) flow.
	Fee decimal.Decimal `json:"fee"`

	// MinAmount is the smallest swap amount accepted for this asset.
	// Zero means the validator's default minimum applies.
	MinAmount decimal.Decimal `json:"min_amount"`

	// UsesAllowance marks assets that require a pre-approval step before
	// funds can be moved by the swap contract.
	UsesAllowance bool `json:"uses_allowance"`

	Blocked bool `json:"blocked,omitempty"`
}

// IsForeign returns true for assets not native to the home ledger.
func (a Asset) IsForeign() bool {
	return a.Origin == OriginForeignNative || a.Origin == OriginForeignToken
}

// AtomicUnits converts a human amount to the asset's smallest unit.
// Amounts whose atomic value falls outside the uint64 range are rejected
// rather than silently truncated.
func (a Asset) AtomicUnits(amount decimal.Decimal) (uint64, error) {
	atomic := amount.Shift(a.Decimals).BigInt()
	if atomic.Sign() < 0 || !atomic.IsUint64() {
		return 0, fmt.Errorf("amount %s %s does not fit in atomic units", amount, a.Symbol)
	}
	return atomic.Uint64(), nil
}
