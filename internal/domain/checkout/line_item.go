// Package checkout holds the cart-side data a tax calculator works on: line items,
// the sales channel context and the original cart.
package checkout

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taxbridge/backend/internal/domain/shared"
)

var hundred = decimal.NewFromInt(100)

// TaxRule is the rate placeholder attached to a line item before calculation.
// Percentage is the share of the item price the rate applies to (100 for a plain rate).
type TaxRule struct {
	TaxRate    decimal.Decimal
	Percentage decimal.Decimal
}

// NewTaxRule creates a rule applying rate to the full price
func NewTaxRule(rate decimal.Decimal) TaxRule {
	return TaxRule{TaxRate: rate, Percentage: hundred}
}

// TaxProviderInfo records which calculator produced the taxes of a line item
type TaxProviderInfo struct {
	Provider       string
	TransactionRef string
}

// LineItem is one priced entry of a cart
type LineItem struct {
	ID              uuid.UUID
	ReferencedID    string
	Label           string
	Quantity        int
	UnitPrice       decimal.Decimal
	TotalPrice      decimal.Decimal
	TaxRules        []TaxRule
	CalculatedTaxes CalculatedTaxCollection
	TaxProvider     *TaxProviderInfo
}

// NewLineItem creates a line item whose total price is unitPrice * quantity
func NewLineItem(referencedID, label string, quantity int, unitPrice decimal.Decimal, rules ...TaxRule) (LineItem, error) {
	item := LineItem{
		ID:           uuid.New(),
		ReferencedID: referencedID,
		Label:        label,
		Quantity:     quantity,
		UnitPrice:    unitPrice,
		TotalPrice:   unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		TaxRules:     rules,
	}
	if err := item.Validate(); err != nil {
		return LineItem{}, err
	}
	return item, nil
}

// Validate checks the invariants of a line item
func (li LineItem) Validate() error {
	if li.Quantity <= 0 {
		return fmt.Errorf("%w: line item %s quantity must be positive", shared.ErrInvalidInput, li.ID)
	}
	if li.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: line item %s unit price cannot be negative", shared.ErrInvalidInput, li.ID)
	}
	for _, rule := range li.TaxRules {
		if rule.TaxRate.IsNegative() {
			return fmt.Errorf("%w: line item %s has a negative tax rate", shared.ErrInvalidInput, li.ID)
		}
	}
	return nil
}

// Clone returns a deep copy of the line item
func (li LineItem) Clone() LineItem {
	out := li
	if li.TaxRules != nil {
		out.TaxRules = make([]TaxRule, len(li.TaxRules))
		copy(out.TaxRules, li.TaxRules)
	}
	out.CalculatedTaxes = li.CalculatedTaxes.Clone()
	if li.TaxProvider != nil {
		info := *li.TaxProvider
		out.TaxProvider = &info
	}
	return out
}

// CloneLineItems deep-copies a slice of line items
func CloneLineItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}
