// Package payment defines the sellable plans, the accepted payment
// methods, and the price table the rest of tollgate works against.
package payment

import (
	"fmt"
	"strings"
)

// Plan identifies what the buyer unlocks.
type Plan string

const (
	PlanVIP  Plan = "vip"
	PlanDark Plan = "dark"
	PlanBoth Plan = "both"
)

// Plans lists every sellable plan.
var Plans = []Plan{PlanVIP, PlanDark, PlanBoth}

// ParsePlan normalizes user/admin input into a Plan.
func ParsePlan(s string) (Plan, error) {
	switch Plan(strings.ToLower(strings.TrimSpace(s))) {
	case PlanVIP:
		return PlanVIP, nil
	case PlanDark:
		return PlanDark, nil
	case PlanBoth:
		return PlanBoth, nil
	}
	return "", fmt.Errorf("unknown plan: %q", s)
}

// Valid reports whether the plan is one of the sellable plans.
func (p Plan) Valid() bool {
	return p == PlanVIP || p == PlanDark || p == PlanBoth
}

// Label returns the buyer-facing name of the plan.
func (p Plan) Label() string {
	switch p {
	case PlanVIP:
		return "VIP Channel"
	case PlanDark:
		return "Dark Channel"
	case PlanBoth:
		return "VIP + Dark (Combo 30% OFF)"
	}
	return strings.ToUpper(string(p))
}

// CoversVIP reports whether the plan grants access to the VIP channel.
func (p Plan) CoversVIP() bool { return p == PlanVIP || p == PlanBoth }

// CoversDark reports whether the plan grants access to the Dark channel.
func (p Plan) CoversDark() bool { return p == PlanDark || p == PlanBoth }

// Method identifies how the buyer pays.
type Method string

const (
	MethodUPI     Method = "upi"
	MethodCrypto  Method = "crypto"
	MethodRemitly Method = "remitly"
)

// Methods lists every accepted payment method.
var Methods = []Method{MethodUPI, MethodCrypto, MethodRemitly}

// ParseMethod normalizes user/admin input into a Method.
func ParseMethod(s string) (Method, error) {
	switch Method(strings.ToLower(strings.TrimSpace(s))) {
	case MethodUPI:
		return MethodUPI, nil
	case MethodCrypto:
		return MethodCrypto, nil
	case MethodRemitly:
		return MethodRemitly, nil
	}
	return "", fmt.Errorf("unknown payment method: %q", s)
}

// Valid reports whether the method is accepted.
func (m Method) Valid() bool {
	return m == MethodUPI || m == MethodCrypto || m == MethodRemitly
}

// Currency returns the settlement currency for the method. UPI and
// Remitly collect INR, crypto collects USD.
func (m Method) Currency() string {
	if m == MethodCrypto {
		return "USD"
	}
	return "INR"
}

// PlanPrice holds the per-method amounts for one plan. The JSON field
// names match the persisted price_config overrides of the original
// deployment, so existing state files keep working.
type PlanPrice struct {
	UPIINR    float64 `json:"upi_inr"`
	CryptoUSD float64 `json:"crypto_usd"`
	RemitINR  float64 `json:"remit_inr"`
}

// amount returns the amount for the given method.
func (pp PlanPrice) amount(m Method) float64 {
	switch m {
	case MethodUPI:
		return pp.UPIINR
	case MethodCrypto:
		return pp.CryptoUSD
	case MethodRemitly:
		return pp.RemitINR
	}
	return 0
}

// PriceTable maps plans to their per-method prices.
type PriceTable map[Plan]PlanPrice

// DefaultPrices returns the stock price table.
func DefaultPrices() PriceTable {
	return PriceTable{
		PlanVIP:  {UPIINR: 499, CryptoUSD: 6, RemitINR: 499},
		PlanDark: {UPIINR: 1999, CryptoUSD: 24, RemitINR: 1999},
		PlanBoth: {UPIINR: 1749, CryptoUSD: 21, RemitINR: 1749},
	}
}

// Quote resolves the amount and currency for a plan/method pair,
// preferring the override table (admin /set_price) and falling back to
// the defaults for plans the overrides don't mention.
func Quote(overrides PriceTable, plan Plan, method Method) (float64, string) {
	if !plan.Valid() || !method.Valid() {
		return 0, ""
	}
	if pp, ok := overrides[plan]; ok {
		return pp.amount(method), method.Currency()
	}
	return DefaultPrices()[plan].amount(method), method.Currency()
}

// SetAmount returns a copy of the plan's price row with the given
// method's amount replaced. Unset rows start from the defaults, so a
// single /set_price never zeroes the other methods.
func SetAmount(overrides PriceTable, plan Plan, method Method, amount float64) PlanPrice {
	row, ok := overrides[plan]
	if !ok {
		row = DefaultPrices()[plan]
	}
	switch method {
	case MethodUPI:
		row.UPIINR = amount
	case MethodCrypto:
		row.CryptoUSD = amount
	case MethodRemitly:
		row.RemitINR = amount
	}
	return row
}
