package checkout

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CalculatedTax is the tax amount computed for a price at a given rate
type CalculatedTax struct {
	Tax     decimal.Decimal
	TaxRate decimal.Decimal
	Price   decimal.Decimal
}

// CalculatedTaxCollection is a set of calculated taxes
type CalculatedTaxCollection []CalculatedTax

// Amount returns the sum of all tax amounts
func (c CalculatedTaxCollection) Amount() decimal.Decimal {
	total := decimal.Zero
	for _, t := range c {
		total = total.Add(t.Tax)
	}
	return total
}

// Clone returns a copy of the collection
func (c CalculatedTaxCollection) Clone() CalculatedTaxCollection {
	if c == nil {
		return nil
	}
	out := make(CalculatedTaxCollection, len(c))
	copy(out, c)
	return out
}

// Merge sums both collections by tax rate. The result is ordered by rate.
func (c CalculatedTaxCollection) Merge(other CalculatedTaxCollection) CalculatedTaxCollection {
	byRate := make(map[string]CalculatedTax, len(c)+len(other))
	add := func(t CalculatedTax) {
		key := t.TaxRate.String()
		existing, ok := byRate[key]
		if !ok {
			byRate[key] = t
			return
		}
		existing.Tax = existing.Tax.Add(t.Tax)
		existing.Price = existing.Price.Add(t.Price)
		byRate[key] = existing
	}
	for _, t := range c {
		add(t)
	}
	for _, t := range other {
		add(t)
	}

	out := make(CalculatedTaxCollection, 0, len(byRate))
	for _, t := range byRate {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TaxRate.LessThan(out[j].TaxRate)
	})
	return out
}
