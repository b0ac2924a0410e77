package tax

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
)

// TaxFreeCalculator reports every tax rule with a zero amount
type TaxFreeCalculator struct {
	strategy.BaseStrategy
	strategy.CapabilitySet
}

// NewTaxFreeCalculator creates a tax free calculator. Without explicit
// capabilities it claims the tax-free capability.
func NewTaxFreeCalculator(name, description string, caps ...strategy.Capability) *TaxFreeCalculator {
	if len(caps) == 0 {
		caps = []strategy.Capability{strategy.CapabilityTaxFree}
	}
	if description == "" {
		description = "Zero taxes for tax exempt sales channels"
	}
	return &TaxFreeCalculator{
		BaseStrategy:  strategy.NewBaseStrategy(name, description),
		CapabilitySet: strategy.NewCapabilitySet(caps...),
	}
}

// Calculate zeroes the taxes of every line item
func (c *TaxFreeCalculator) Calculate(ctx context.Context, items []checkout.LineItem, sc checkout.SalesChannelContext, original *checkout.Cart) ([]checkout.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, strategy.NewCalculationError(c.Name(), "calculation cancelled", err)
	}

	out := make([]checkout.LineItem, len(items))
	for i, item := range items {
		if item.TotalPrice.IsNegative() {
			return nil, strategy.NewCalculationError(c.Name(), fmt.Sprintf("line item %s has a negative price", item.ID), nil)
		}

		processed := item.Clone()
		taxes := make(checkout.CalculatedTaxCollection, 0, len(item.TaxRules))
		for _, rule := range item.TaxRules {
			taxes = append(taxes, checkout.CalculatedTax{
				Tax:     decimal.Zero,
				TaxRate: rule.TaxRate,
				Price:   sc.Round(item.TotalPrice.Mul(rule.Percentage).Div(hundred)),
			})
		}
		processed.CalculatedTaxes = taxes
		processed.TaxProvider = &checkout.TaxProviderInfo{Provider: c.Name()}
		out[i] = processed
	}
	return out, nil
}

var _ strategy.TaxCalculator = (*TaxFreeCalculator)(nil)
