package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan("  VIP ")
	require.NoError(t, err)
	assert.Equal(t, PlanVIP, p)

	_, err = ParsePlan("gold")
	assert.Error(t, err)
}

func TestPlanCoverage(t *testing.T) {
	assert.True(t, PlanVIP.CoversVIP())
	assert.False(t, PlanVIP.CoversDark())
	assert.True(t, PlanDark.CoversDark())
	assert.False(t, PlanDark.CoversVIP())
	assert.True(t, PlanBoth.CoversVIP())
	assert.True(t, PlanBoth.CoversDark())
}

func TestMethodCurrency(t *testing.T) {
	assert.Equal(t, "INR", MethodUPI.Currency())
	assert.Equal(t, "USD", MethodCrypto.Currency())
	assert.Equal(t, "INR", MethodRemitly.Currency())
}

func TestQuoteDefaults(t *testing.T) {
	amount, currency := Quote(nil, PlanDark, MethodCrypto)
	assert.Equal(t, 24.0, amount)
	assert.Equal(t, "USD", currency)

	amount, currency = Quote(nil, PlanBoth, MethodUPI)
	assert.Equal(t, 1749.0, amount)
	assert.Equal(t, "INR", currency)
}

func TestQuoteOverrides(t *testing.T) {
	overrides := PriceTable{
		PlanVIP: SetAmount(nil, PlanVIP, MethodUPI, 599),
	}

	amount, _ := Quote(overrides, PlanVIP, MethodUPI)
	assert.Equal(t, 599.0, amount)

	// Untouched methods on the same plan keep the stock amount.
	amount, _ = Quote(overrides, PlanVIP, MethodCrypto)
	assert.Equal(t, 6.0, amount)

	// Other plans fall back to defaults entirely.
	amount, _ = Quote(overrides, PlanDark, MethodUPI)
	assert.Equal(t, 1999.0, amount)
}

func TestQuoteInvalid(t *testing.T) {
	amount, currency := Quote(nil, Plan("gold"), MethodUPI)
	assert.Zero(t, amount)
	assert.Empty(t, currency)
}

func TestSetAmountPreservesRow(t *testing.T) {
	overrides := PriceTable{}
	overrides[PlanDark] = SetAmount(overrides, PlanDark, MethodRemitly, 1499)
	overrides[PlanDark] = SetAmount(overrides, PlanDark, MethodCrypto, 18)

	row := overrides[PlanDark]
	assert.Equal(t, 1999.0, row.UPIINR)
	assert.Equal(t, 18.0, row.CryptoUSD)
	assert.Equal(t, 1499.0, row.RemitINR)
}
