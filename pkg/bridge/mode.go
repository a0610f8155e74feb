// Package bridge coordinates swaps that span the home ledger and the
// foreign chain: mode detection, pay-side submission, canonical message
// signing, and confirmation polling.
package bridge

import "ledger-swap/pkg/types"

// Mode classifies a cross-ledger swap by the direction value moves.
type Mode string

const (
	ModeForeignToHome               Mode = "foreign_to_home"
	ModeHomeToForeign               Mode = "home_to_foreign"
	ModeForeignNativeToForeignToken Mode = "foreign_native_to_foreign_token"
	ModeForeignTokenToForeignNative Mode = "foreign_token_to_foreign_native"
	ModeForeignTokenToForeignToken  Mode = "foreign_token_to_foreign_token"
)

// SwapModeFor maps the two assets' origins to a swap mode. The second
// return is false when both assets are native to the home ledger, i.e. the
// swap is not a cross-ledger case at all.
func SwapModeFor(pay, receive types.Asset) (Mode, bool) {
	switch pay.Origin {
	case types.OriginHome:
		if receive.Origin == types.OriginHome {
			return "", false
		}
		return ModeHomeToForeign, true

	case types.OriginForeignNative:
		if receive.Origin == types.OriginHome {
			return ModeForeignToHome, true
		}
		return ModeForeignNativeToForeignToken, true

	case types.OriginForeignToken:
		switch receive.Origin {
		case types.OriginHome:
			return ModeForeignToHome, true
		case types.OriginForeignNative:
			return ModeForeignTokenToForeignNative, true
		}
		return ModeForeignTokenToForeignToken, true
	}

	return "", false
}
