package checkout

import "github.com/shopspring/decimal"

// CartPrice is the aggregated price of a cart
type CartPrice struct {
	NetPrice        decimal.Decimal
	TotalPrice      decimal.Decimal
	PositionPrice   decimal.Decimal
	CalculatedTaxes CalculatedTaxCollection
	TaxState        TaxState
}

// Cart is the aggregate holding the line items before recalculation
type Cart struct {
	Token     string
	LineItems []LineItem
}

// NewCart creates a cart owning a copy of the given line items
func NewCart(token string, items []LineItem) *Cart {
	return &Cart{
		Token:     token,
		LineItems: CloneLineItems(items),
	}
}

// WithLineItems returns a new cart with the same token and the given items
func (c *Cart) WithLineItems(items []LineItem) *Cart {
	return NewCart(c.Token, items)
}

// Totals aggregates the line item prices and taxes for the given tax state
func (c *Cart) Totals(state TaxState) CartPrice {
	positions := decimal.Zero
	var taxes CalculatedTaxCollection
	for _, item := range c.LineItems {
		positions = positions.Add(item.TotalPrice)
		taxes = taxes.Merge(item.CalculatedTaxes)
	}
	if taxes == nil {
		taxes = CalculatedTaxCollection{}
	}

	price := CartPrice{
		PositionPrice:   positions,
		CalculatedTaxes: taxes,
		TaxState:        state,
	}
	switch state {
	case TaxStateNet:
		price.NetPrice = positions
		price.TotalPrice = positions.Add(taxes.Amount())
	case TaxStateFree:
		price.NetPrice = positions
		price.TotalPrice = positions
		price.CalculatedTaxes = CalculatedTaxCollection{}
	default:
		price.TotalPrice = positions
		price.NetPrice = positions.Sub(taxes.Amount())
	}
	return price
}
