// Package wallet defines the foreign-chain wallet adapter contract and its
// chain-specific implementations.
package wallet

import (
	"context"

	"github.com/shopspring/decimal"
)

// Capabilities describes what a connected foreign wallet can do. Wallets
// that cannot send directly force a manual-transfer flow; wallets that
// cannot sign messages submit swaps without a canonical-message signature.
type Capabilities struct {
	CanSendNativeAsset bool
	CanSignMessage     bool
}

// Wallet is a foreign-chain wallet adapter.
type Wallet interface {
	// Address returns the wallet's receive/refund address on the foreign
	// chain.
	Address() string

	Capabilities() Capabilities

	// SendNativeAsset transfers the chain's native asset and returns the
	// transaction signature.
	SendNativeAsset(ctx context.Context, to string, amount decimal.Decimal) (string, error)

	// SendToken transfers a token identified by its mint/contract id.
	SendToken(ctx context.Context, mintID, to string, amount decimal.Decimal) (string, error)

	// SignMessage signs raw canonical-message bytes.
	SignMessage(message []byte) ([]byte, error)
}
