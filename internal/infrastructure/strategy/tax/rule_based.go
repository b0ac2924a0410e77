// Package tax holds the built-in tax calculators and the external provider calculator.
package tax

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
)

var hundred = decimal.NewFromInt(100)

// RuleBasedCalculator computes taxes from the tax rules attached to each line item.
// In gross mode prices include tax, in net mode tax is added on top.
type RuleBasedCalculator struct {
	strategy.BaseStrategy
	strategy.CapabilitySet
	mode checkout.TaxState
}

// NewRuleBasedCalculator creates a rule based calculator for gross or net prices
func NewRuleBasedCalculator(name, description string, mode checkout.TaxState, caps ...strategy.Capability) (*RuleBasedCalculator, error) {
	if mode != checkout.TaxStateGross && mode != checkout.TaxStateNet {
		return nil, fmt.Errorf("%w: rule based calculator mode must be gross or net, got %q", shared.ErrInvalidInput, mode)
	}
	if description == "" {
		description = fmt.Sprintf("Tax rules applied to %s prices", mode)
	}
	return &RuleBasedCalculator{
		BaseStrategy:  strategy.NewBaseStrategy(name, description),
		CapabilitySet: strategy.NewCapabilitySet(caps...),
		mode:          mode,
	}, nil
}

// Mode returns whether the calculator treats prices as gross or net
func (c *RuleBasedCalculator) Mode() checkout.TaxState {
	return c.mode
}

// Calculate computes the taxes of every line item
func (c *RuleBasedCalculator) Calculate(ctx context.Context, items []checkout.LineItem, sc checkout.SalesChannelContext, original *checkout.Cart) ([]checkout.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, strategy.NewCalculationError(c.Name(), "calculation cancelled", err)
	}

	out := make([]checkout.LineItem, len(items))
	for i, item := range items {
		if item.TotalPrice.IsNegative() {
			return nil, strategy.NewCalculationError(c.Name(), fmt.Sprintf("line item %s has a negative price", item.ID), nil)
		}
		if len(item.TaxRules) == 0 && !item.TotalPrice.IsZero() {
			return nil, strategy.NewCalculationError(c.Name(), fmt.Sprintf("line item %s has no tax rules", item.ID), nil)
		}

		processed := item.Clone()
		taxes := make(checkout.CalculatedTaxCollection, 0, len(item.TaxRules))
		for _, rule := range item.TaxRules {
			taxes = append(taxes, c.calculateRule(item.TotalPrice, rule, sc))
		}
		processed.CalculatedTaxes = taxes
		processed.TaxProvider = &checkout.TaxProviderInfo{Provider: c.Name()}
		out[i] = processed
	}
	return out, nil
}

func (c *RuleBasedCalculator) calculateRule(price decimal.Decimal, rule checkout.TaxRule, sc checkout.SalesChannelContext) checkout.CalculatedTax {
	share := price.Mul(rule.Percentage).Div(hundred)

	var tax decimal.Decimal
	if c.mode == checkout.TaxStateGross {
		tax = share.Mul(rule.TaxRate).Div(hundred.Add(rule.TaxRate))
	} else {
		tax = share.Mul(rule.TaxRate).Div(hundred)
	}

	return checkout.CalculatedTax{
		Tax:     sc.Round(tax),
		TaxRate: rule.TaxRate,
		Price:   sc.Round(share),
	}
}

var _ strategy.TaxCalculator = (*RuleBasedCalculator)(nil)
