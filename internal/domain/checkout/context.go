package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/taxbridge/backend/internal/domain/shared"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
)

// TaxState describes how prices of a sales channel are expressed
type TaxState string

const (
	TaxStateGross TaxState = "gross"
	TaxStateNet   TaxState = "net"
	TaxStateFree  TaxState = "tax-free"
)

// IsValid returns true if the tax state is known
func (s TaxState) IsValid() bool {
	switch s {
	case TaxStateGross, TaxStateNet, TaxStateFree:
		return true
	default:
		return false
	}
}

// Capability tags what kind of context a tax calculator can handle
type Capability string

var capabilityPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

// String returns the string representation of the capability
func (c Capability) String() string {
	return string(c)
}

// IsValid returns true if the capability is a well-formed tag
func (c Capability) IsValid() bool {
	return capabilityPattern.MatchString(string(c))
}

// SalesChannelContext is the environment a calculation runs under.
// It is passed by value and never modified by calculators.
type SalesChannelContext struct {
	SalesChannelID string
	Currency       currency.Unit
	Locale         language.Tag
	Country        string
	TaxState       TaxState
	Capability     Capability
}

// NewSalesChannelContext parses and validates the channel environment
func NewSalesChannelContext(salesChannelID, currencyCode, locale, country string, state TaxState, capability Capability) (SalesChannelContext, error) {
	if salesChannelID == "" {
		return SalesChannelContext{}, fmt.Errorf("%w: sales channel id is required", shared.ErrInvalidInput)
	}
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return SalesChannelContext{}, fmt.Errorf("%w: unknown currency %q", shared.ErrInvalidInput, currencyCode)
	}
	tag := language.Und
	if locale != "" {
		tag, err = language.Parse(locale)
		if err != nil {
			return SalesChannelContext{}, fmt.Errorf("%w: invalid locale %q", shared.ErrInvalidInput, locale)
		}
	}
	country = strings.ToUpper(country)
	if country != "" {
		if _, err := language.ParseRegion(country); err != nil {
			return SalesChannelContext{}, fmt.Errorf("%w: invalid country %q", shared.ErrInvalidInput, country)
		}
	}
	if !state.IsValid() {
		return SalesChannelContext{}, fmt.Errorf("%w: invalid tax state %q", shared.ErrInvalidInput, state)
	}
	if capability != "" && !capability.IsValid() {
		return SalesChannelContext{}, fmt.Errorf("%w: invalid capability %q", shared.ErrInvalidInput, capability)
	}

	return SalesChannelContext{
		SalesChannelID: salesChannelID,
		Currency:       unit,
		Locale:         tag,
		Country:        country,
		TaxState:       state,
		Capability:     capability,
	}, nil
}

// CurrencyScale returns the number of decimal places money is rounded to
func (sc SalesChannelContext) CurrencyScale() int32 {
	if sc.Currency == (currency.Unit{}) {
		return 2
	}
	scale, _ := currency.Standard.Rounding(sc.Currency)
	return int32(scale)
}

// Round rounds an amount to the channel currency
func (sc SalesChannelContext) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(sc.CurrencyScale())
}
