package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxbridge/backend/internal/domain/shared"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewLineItem(t *testing.T) {
	item, err := NewLineItem("SKU-1", "Coffee", 3, dec("4.20"), NewTaxRule(dec("19")))
	require.NoError(t, err)

	assert.NotEqual(t, [16]byte{}, [16]byte(item.ID))
	assert.True(t, dec("12.60").Equal(item.TotalPrice))
	require.Len(t, item.TaxRules, 1)
	assert.True(t, dec("100").Equal(item.TaxRules[0].Percentage))
}

func TestNewLineItem_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		price    string
		rate     string
	}{
		{"zero quantity", 0, "1.00", "19"},
		{"negative price", 1, "-1.00", "19"},
		{"negative rate", 1, "1.00", "-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLineItem("SKU", "x", tt.quantity, dec(tt.price), NewTaxRule(dec(tt.rate)))
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestLineItem_Clone(t *testing.T) {
	item, err := NewLineItem("SKU-1", "Tea", 1, dec("10"), NewTaxRule(dec("7")))
	require.NoError(t, err)
	item.CalculatedTaxes = CalculatedTaxCollection{{Tax: dec("0.65"), TaxRate: dec("7"), Price: dec("10")}}
	item.TaxProvider = &TaxProviderInfo{Provider: "core"}

	clone := item.Clone()
	clone.TaxRules[0].TaxRate = dec("19")
	clone.CalculatedTaxes[0].Tax = dec("9")
	clone.TaxProvider.Provider = "other"

	assert.True(t, dec("7").Equal(item.TaxRules[0].TaxRate))
	assert.True(t, dec("0.65").Equal(item.CalculatedTaxes[0].Tax))
	assert.Equal(t, "core", item.TaxProvider.Provider)
	assert.Nil(t, CloneLineItems(nil))
}

func TestCalculatedTaxCollection_Merge(t *testing.T) {
	a := CalculatedTaxCollection{
		{Tax: dec("1.90"), TaxRate: dec("19"), Price: dec("11.90")},
		{Tax: dec("0.70"), TaxRate: dec("7"), Price: dec("10.70")},
	}
	b := CalculatedTaxCollection{
		{Tax: dec("3.80"), TaxRate: dec("19"), Price: dec("23.80")},
	}

	merged := a.Merge(b)
	require.Len(t, merged, 2)
	assert.True(t, dec("7").Equal(merged[0].TaxRate))
	assert.True(t, dec("19").Equal(merged[1].TaxRate))
	assert.True(t, dec("5.70").Equal(merged[1].Tax))
	assert.True(t, dec("35.70").Equal(merged[1].Price))
	assert.True(t, dec("6.40").Equal(merged.Amount()))
}

func TestNewSalesChannelContext(t *testing.T) {
	sc, err := NewSalesChannelContext("storefront", "EUR", "de-DE", "de", TaxStateGross, "EU")
	require.NoError(t, err)

	assert.Equal(t, "EUR", sc.Currency.String())
	assert.Equal(t, "de-DE", sc.Locale.String())
	assert.Equal(t, "DE", sc.Country)
	assert.Equal(t, Capability("EU"), sc.Capability)
	assert.Equal(t, int32(2), sc.CurrencyScale())
	assert.True(t, dec("1.24").Equal(sc.Round(dec("1.2351"))))
}

func TestNewSalesChannelContext_ZeroDecimalCurrency(t *testing.T) {
	sc, err := NewSalesChannelContext("jp", "JPY", "ja-JP", "JP", TaxStateNet, "")
	require.NoError(t, err)
	assert.Equal(t, int32(0), sc.CurrencyScale())
	assert.True(t, dec("101").Equal(sc.Round(dec("100.5"))))
}

func TestNewSalesChannelContext_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		channel    string
		currency   string
		locale     string
		country    string
		state      TaxState
		capability Capability
	}{
		{"missing channel", "", "EUR", "", "DE", TaxStateGross, ""},
		{"unknown currency", "c", "XYZW", "", "DE", TaxStateGross, ""},
		{"bad locale", "c", "EUR", "not a locale!", "DE", TaxStateGross, ""},
		{"bad state", "c", "EUR", "", "DE", TaxState("mixed"), ""},
		{"bad capability", "c", "EUR", "", "DE", TaxStateGross, "has space"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSalesChannelContext(tt.channel, tt.currency, tt.locale, tt.country, tt.state, tt.capability)
			assert.ErrorIs(t, err, shared.ErrInvalidInput)
		})
	}
}

func TestCart_Totals(t *testing.T) {
	item, err := NewLineItem("SKU-1", "Coffee", 1, dec("119"), NewTaxRule(dec("19")))
	require.NoError(t, err)
	item.CalculatedTaxes = CalculatedTaxCollection{{Tax: dec("19"), TaxRate: dec("19"), Price: dec("119")}}

	cart := NewCart("token", []LineItem{item})

	gross := cart.Totals(TaxStateGross)
	assert.True(t, dec("119").Equal(gross.TotalPrice))
	assert.True(t, dec("100").Equal(gross.NetPrice))

	net := cart.Totals(TaxStateNet)
	assert.True(t, dec("119").Equal(net.NetPrice))
	assert.True(t, dec("138").Equal(net.TotalPrice))

	free := cart.Totals(TaxStateFree)
	assert.True(t, dec("119").Equal(free.TotalPrice))
	assert.Empty(t, free.CalculatedTaxes)
}

func TestCart_OwnsItsItems(t *testing.T) {
	item, err := NewLineItem("SKU-1", "Coffee", 1, dec("10"))
	require.NoError(t, err)
	items := []LineItem{item}

	cart := NewCart("token", items)
	items[0].Label = "changed"

	assert.Equal(t, "Coffee", cart.LineItems[0].Label)
	other := cart.WithLineItems(nil)
	assert.Equal(t, "token", other.Token)
	assert.Empty(t, other.LineItems)
}
