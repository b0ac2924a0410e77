package tax

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newItem(t *testing.T, price string, qty int, rules ...checkout.TaxRule) checkout.LineItem {
	t.Helper()
	item, err := checkout.NewLineItem("SKU", "Item", qty, dec(price), rules...)
	require.NoError(t, err)
	return item
}

func newContext(t *testing.T, currency string, state checkout.TaxState, capability strategy.Capability) checkout.SalesChannelContext {
	t.Helper()
	sc, err := checkout.NewSalesChannelContext("storefront", currency, "de-DE", "DE", state, capability)
	require.NoError(t, err)
	return sc
}

func TestNewRuleBasedCalculator_InvalidMode(t *testing.T) {
	_, err := NewRuleBasedCalculator("core", "", checkout.TaxStateFree, "gross")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRuleBasedCalculator_Gross(t *testing.T) {
	calc, err := NewRuleBasedCalculator("core-gross", "", checkout.TaxStateGross, strategy.CapabilityGross)
	require.NoError(t, err)
	assert.True(t, calc.Supports(strategy.CapabilityGross))
	assert.False(t, calc.Supports(strategy.CapabilityNet))

	items := []checkout.LineItem{
		newItem(t, "119.00", 1, checkout.NewTaxRule(dec("19"))),
		newItem(t, "5.00", 2, checkout.NewTaxRule(dec("19"))),
	}
	sc := newContext(t, "EUR", checkout.TaxStateGross, strategy.CapabilityGross)

	out, err := calc.Calculate(context.Background(), items, sc, checkout.NewCart("t", items))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, dec("19.00").Equal(out[0].CalculatedTaxes.Amount()))
	assert.True(t, dec("1.60").Equal(out[1].CalculatedTaxes.Amount()))
	assert.Equal(t, "core-gross", out[1].TaxProvider.Provider)

	assert.Empty(t, items[0].CalculatedTaxes)
	assert.Nil(t, items[0].TaxProvider)
}

func TestRuleBasedCalculator_Net(t *testing.T) {
	calc, err := NewRuleBasedCalculator("core-net", "", checkout.TaxStateNet, strategy.CapabilityNet)
	require.NoError(t, err)

	items := []checkout.LineItem{newItem(t, "100.00", 1, checkout.NewTaxRule(dec("19")))}
	sc := newContext(t, "EUR", checkout.TaxStateNet, strategy.CapabilityNet)

	out, err := calc.Calculate(context.Background(), items, sc, nil)
	require.NoError(t, err)
	assert.True(t, dec("19").Equal(out[0].CalculatedTaxes.Amount()))
	assert.True(t, dec("100").Equal(out[0].CalculatedTaxes[0].Price))
}

func TestRuleBasedCalculator_SplitRules(t *testing.T) {
	calc, err := NewRuleBasedCalculator("core-gross", "", checkout.TaxStateGross, strategy.CapabilityGross)
	require.NoError(t, err)

	rules := []checkout.TaxRule{
		{TaxRate: dec("19"), Percentage: dec("50")},
		{TaxRate: dec("7"), Percentage: dec("50")},
	}
	items := []checkout.LineItem{newItem(t, "119.00", 1, rules...)}
	sc := newContext(t, "EUR", checkout.TaxStateGross, strategy.CapabilityGross)

	out, err := calc.Calculate(context.Background(), items, sc, nil)
	require.NoError(t, err)
	require.Len(t, out[0].CalculatedTaxes, 2)
	assert.True(t, dec("9.50").Equal(out[0].CalculatedTaxes[0].Tax))
	assert.True(t, dec("3.89").Equal(out[0].CalculatedTaxes[1].Tax))
	assert.True(t, dec("59.50").Equal(out[0].CalculatedTaxes[1].Price))
}

func TestRuleBasedCalculator_ZeroDecimalCurrency(t *testing.T) {
	calc, err := NewRuleBasedCalculator("core-gross", "", checkout.TaxStateGross, strategy.CapabilityGross)
	require.NoError(t, err)

	items := []checkout.LineItem{newItem(t, "1000", 1, checkout.NewTaxRule(dec("10")))}
	sc := newContext(t, "JPY", checkout.TaxStateGross, strategy.CapabilityGross)

	out, err := calc.Calculate(context.Background(), items, sc, nil)
	require.NoError(t, err)
	assert.True(t, dec("91").Equal(out[0].CalculatedTaxes[0].Tax))
}

func TestRuleBasedCalculator_Errors(t *testing.T) {
	calc, err := NewRuleBasedCalculator("core-gross", "", checkout.TaxStateGross, strategy.CapabilityGross)
	require.NoError(t, err)
	sc := newContext(t, "EUR", checkout.TaxStateGross, strategy.CapabilityGross)

	t.Run("missing tax rules on priced item", func(t *testing.T) {
		items := []checkout.LineItem{newItem(t, "10.00", 1)}

		out, err := calc.Calculate(context.Background(), items, sc, nil)
		assert.Nil(t, out)
		calcErr, ok := strategy.AsCalculationError(err)
		require.True(t, ok)
		assert.Equal(t, "core-gross", calcErr.Calculator)
		assert.Contains(t, calcErr.Reason, "no tax rules")
	})

	t.Run("negative price", func(t *testing.T) {
		item := newItem(t, "10.00", 1, checkout.NewTaxRule(dec("19")))
		item.TotalPrice = dec("-1")

		_, err := calc.Calculate(context.Background(), []checkout.LineItem{item}, sc, nil)
		assert.ErrorIs(t, err, shared.ErrCalculationFailed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := calc.Calculate(ctx, []checkout.LineItem{newItem(t, "1", 1, checkout.NewTaxRule(dec("19")))}, sc, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.ErrorIs(t, err, shared.ErrCalculationFailed)
	})

	t.Run("free item without rules", func(t *testing.T) {
		out, err := calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "0", 1)}, sc, nil)
		require.NoError(t, err)
		assert.Empty(t, out[0].CalculatedTaxes)
	})
}

func TestRuleBasedCalculator_Deterministic(t *testing.T) {
	calc, err := NewRuleBasedCalculator("core-gross", "", checkout.TaxStateGross, strategy.CapabilityGross)
	require.NoError(t, err)
	items := []checkout.LineItem{newItem(t, "33.33", 3, checkout.NewTaxRule(dec("19")))}
	sc := newContext(t, "EUR", checkout.TaxStateGross, strategy.CapabilityGross)

	first, err := calc.Calculate(context.Background(), items, sc, nil)
	require.NoError(t, err)
	second, err := calc.Calculate(context.Background(), items, sc, nil)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
		assert.Equal(t, first[i].TaxProvider, second[i].TaxProvider)
		assert.True(t, first[i].CalculatedTaxes.Amount().Equal(second[i].CalculatedTaxes.Amount()))
	}
}

func TestTaxFreeCalculator(t *testing.T) {
	calc := NewTaxFreeCalculator("core-tax-free", "")
	assert.True(t, calc.Supports(strategy.CapabilityTaxFree))
	assert.Equal(t, []strategy.Capability{strategy.CapabilityTaxFree}, calc.Capabilities())

	items := []checkout.LineItem{
		newItem(t, "10.00", 1, checkout.NewTaxRule(dec("19"))),
		newItem(t, "4.00", 1),
	}
	sc := newContext(t, "EUR", checkout.TaxStateFree, strategy.CapabilityTaxFree)

	out, err := calc.Calculate(context.Background(), items, sc, nil)
	require.NoError(t, err)
	require.Len(t, out[0].CalculatedTaxes, 1)
	assert.True(t, out[0].CalculatedTaxes[0].Tax.IsZero())
	assert.True(t, dec("19").Equal(out[0].CalculatedTaxes[0].TaxRate))
	assert.Empty(t, out[1].CalculatedTaxes)
	assert.Equal(t, "core-tax-free", out[1].TaxProvider.Provider)
}

func TestTaxFreeCalculator_CustomCapabilities(t *testing.T) {
	calc := NewTaxFreeCalculator("export", "Export sales", "EXPORT", "B2B-EU")
	assert.True(t, calc.Supports("EXPORT"))
	assert.False(t, calc.Supports(strategy.CapabilityTaxFree))
	assert.Equal(t, "Export sales", calc.Description())
}
