// Package validate implements schema and business-rule checks on swap
// requests. Validation failures are returned as structured results, never
// as errors, so callers can render field-level messages.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledger-swap/pkg/types"
)

const (
	// HighImpactThresholdPct flags a swap as high impact even when it is
	// within the user's tolerance.
	HighImpactThresholdPct = 5.0

	// DefaultMaxQuoteAge matches the quote cache TTL.
	DefaultMaxQuoteAge = types.QuoteTTL
)

// Result is the outcome of a validation pass.
type Result struct {
	IsValid  bool
	Errors   []string
	Warnings []string
}

func valid() Result {
	return Result{IsValid: true}
}

func invalid(errs ...string) Result {
	return Result{IsValid: false, Errors: errs}
}

// ErrorText joins the result's errors into one message.
func (r Result) ErrorText() string {
	return strings.Join(r.Errors, "; ")
}

// Validator holds the configured limits for request validation.
type Validator struct {
	// DefaultMinimum applies to assets that declare no minimum of their own.
	DefaultMinimum decimal.Decimal

	// Ceiling is a generous overflow guard; amounts above it are rejected.
	Ceiling decimal.Decimal

	// Blocked lists asset symbols that may not be swapped.
	Blocked map[string]bool

	// CheckRoute, when set, runs as a deeper consistency check once the
	// basic checks pass.
	CheckRoute func(paySymbol, receiveSymbol string) bool
}

// New returns a Validator with the default limits.
func New() *Validator {
	return &Validator{
		DefaultMinimum: decimal.Zero,
		Ceiling:        decimal.New(1, 15), // 10^15
		Blocked:        map[string]bool{},
	}
}

// Validate runs the format layer and then the business-rule layer on a
// request, collecting every failure rather than stopping at the first.
func (v *Validator) Validate(req types.SwapRequest) Result {
	var errs []string

	// Format layer.
	if req.PayAsset.Symbol == "" {
		errs = append(errs, "pay token is required")
	}
	if req.ReceiveAsset.Symbol == "" {
		errs = append(errs, "receive token is required")
	}
	if req.PayAmount == "" {
		errs = append(errs, "amount is required")
	} else if amountErrs := v.checkAmount(req.PayAsset, req.PayAmount); len(amountErrs) > 0 {
		errs = append(errs, amountErrs...)
	}

	// Business rules.
	if req.PayAsset.Symbol != "" && req.PayAsset.Symbol == req.ReceiveAsset.Symbol {
		errs = append(errs, fmt.Sprintf("cannot swap %s for the same token", req.PayAsset.Symbol))
	}
	if v.Blocked[req.PayAsset.Symbol] {
		errs = append(errs, fmt.Sprintf("token %s is not available for swaps", req.PayAsset.Symbol))
	}
	if v.Blocked[req.ReceiveAsset.Symbol] {
		errs = append(errs, fmt.Sprintf("token %s is not available for swaps", req.ReceiveAsset.Symbol))
	}

	if len(errs) > 0 {
		return invalid(errs...)
	}

	// Deeper consistency check, only when everything basic passed.
	if v.CheckRoute != nil && !v.CheckRoute(req.PayAsset.Symbol, req.ReceiveAsset.Symbol) {
		return invalid(fmt.Sprintf("no route from %s to %s", req.PayAsset.Symbol, req.ReceiveAsset.Symbol))
	}

	return valid()
}

// checkAmount validates the amount string against the asset's limits.
func (v *Validator) checkAmount(asset types.Asset, amount string) []string {
	var errs []string

	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return []string{fmt.Sprintf("invalid amount: %s", amount)}
	}

	if !amt.IsPositive() {
		errs = append(errs, "amount must be greater than 0")
	}

	if places := -amt.Exponent(); places > asset.Decimals {
		errs = append(errs, fmt.Sprintf("amount has %d decimal places but %s supports at most %d",
			places, asset.Symbol, asset.Decimals))
	}

	minimum := asset.MinAmount
	if minimum.IsZero() {
		minimum = v.DefaultMinimum
	}
	if minimum.IsPositive() && amt.IsPositive() && amt.LessThan(minimum) {
		errs = append(errs, fmt.Sprintf("amount is below the minimum of %s %s", minimum.String(), asset.Symbol))
	}

	if amt.GreaterThan(v.Ceiling) {
		errs = append(errs, fmt.Sprintf("amount exceeds the maximum of %s", v.Ceiling.String()))
	}

	return errs
}

// ValidateBalance checks that the user's balance covers the pay amount,
// plus one extra transfer fee when the pay asset needs a pre-approval step.
func (v *Validator) ValidateBalance(req types.SwapRequest, balance decimal.Decimal, includeApprovalFee bool) Result {
	amt, err := decimal.NewFromString(req.PayAmount)
	if err != nil {
		return invalid(fmt.Sprintf("invalid amount: %s", req.PayAmount))
	}

	need := amt
	if includeApprovalFee && req.PayAsset.UsesAllowance {
		need = need.Add(req.PayAsset.Fee)
	}

	if balance.LessThan(need) {
		return invalid(fmt.Sprintf("insufficient balance: have %s %s, need %s",
			balance.String(), req.PayAsset.Symbol, need.String()))
	}

	return valid()
}

// ValidateSlippage compares the realized price impact against the user's
// tolerance. An impact above the fixed high-impact threshold is flagged as
// a warning even when it is within tolerance.
func ValidateSlippage(tolerancePct, impactPct float64) Result {
	if impactPct > tolerancePct {
		return invalid(fmt.Sprintf("price impact of %.2f%% exceeds your slippage tolerance of %.2f%%",
			impactPct, tolerancePct))
	}

	res := valid()
	if impactPct > HighImpactThresholdPct {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("price impact of %.2f%% is unusually high", impactPct))
	}
	return res
}

// ValidateQuoteFreshness rejects quotes older than maxAge at the given
// instant.
func ValidateQuoteFreshness(createdAt time.Time, maxAge time.Duration, now time.Time) Result {
	if maxAge <= 0 {
		maxAge = DefaultMaxQuoteAge
	}
	if now.Sub(createdAt) > maxAge {
		return invalid("quote expired: please fetch a new quote")
	}
	return valid()
}
