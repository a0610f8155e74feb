package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// ParsedSwap is the raw result of parsing a swap command, before asset
// symbols are resolved against the home ledger's asset list.
type ParsedSwap struct {
	Amount        string
	PaySymbol     string
	ReceiveSymbol string
}

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 ICP to SOL"
//   - "1.5 SOL to USDT"
//   - "100 USDT to ICP"
func ParseSwapCommand(command string) (*ParsedSwap, error) {
	// Normalize the command
	command = strings.TrimSpace(strings.ToUpper(command))

	// Remove the word "SWAP" if present at the beginning
	command = strings.TrimPrefix(command, "SWAP ")

	// Pattern: <amount> <pay_symbol> TO <receive_symbol>
	// Matches: "1 ICP TO SOL", "1.5 SOL TO USDT", "100.25 USDT TO ICP"
	pattern := regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9.]+)\s+TO\s+([A-Z0-9.]+)$`)

	matches := pattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 ICP to SOL')")
	}

	return &ParsedSwap{
		Amount:        matches[1],
		PaySymbol:     matches[2],
		ReceiveSymbol: matches[3],
	}, nil
}

// ValidateParsedSwap validates that a parsed swap has all required fields
func ValidateParsedSwap(p *ParsedSwap) error {
	if p.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if p.PaySymbol == "" {
		return fmt.Errorf("pay token is required")
	}
	if p.ReceiveSymbol == "" {
		return fmt.Errorf("receive token is required")
	}
	return nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	// Convert to uppercase for consistency
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Handle common aliases
	aliases := map[string]string{
		"WSOL":   "SOL",
		"CKUSDT": "USDT",
		"CKUSDC": "USDC",
		"CKBTC":  "BTC",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
