// Package taxprovider holds the per-sales-channel tax configuration that
// decides which calculator capability a cart is dispatched to.
package taxprovider

import (
	"fmt"
	"strings"
	"time"

	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
)

const maxSalesChannelIDLength = 64

// SettingValues are the editable fields of a ChannelSetting
type SettingValues struct {
	Capability checkout.Capability
	TaxState   checkout.TaxState
	Currency   string
	Country    string
	Locale     string
	Active     bool
}

// ChannelSetting is the tax configuration of one sales channel
type ChannelSetting struct {
	shared.BaseAggregateRoot
	SalesChannelID string
	Capability     checkout.Capability
	TaxState       checkout.TaxState
	Currency       string
	Country        string
	Locale         string
	Active         bool
}

// NewChannelSetting validates values and creates a version 1 setting
func NewChannelSetting(salesChannelID string, values SettingValues) (*ChannelSetting, error) {
	salesChannelID = strings.TrimSpace(salesChannelID)
	if salesChannelID == "" {
		return nil, fmt.Errorf("%w: sales channel id is required", shared.ErrInvalidInput)
	}
	if len(salesChannelID) > maxSalesChannelIDLength {
		return nil, fmt.Errorf("%w: sales channel id exceeds %d characters", shared.ErrInvalidInput, maxSalesChannelIDLength)
	}

	normalized, err := normalizeValues(salesChannelID, values)
	if err != nil {
		return nil, err
	}

	s := &ChannelSetting{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(time.Now()),
		SalesChannelID:    salesChannelID,
	}
	s.apply(normalized)
	return s, nil
}

// Update replaces the editable fields and bumps the version. An invalid
// update leaves the setting untouched.
func (s *ChannelSetting) Update(values SettingValues) error {
	normalized, err := normalizeValues(s.SalesChannelID, values)
	if err != nil {
		return err
	}
	s.apply(normalized)
	s.Touch(time.Now())
	s.IncrementVersion()
	return nil
}

// Context builds the SalesChannelContext carts of this channel are
// calculated in. A non-empty capability overrides the stored one.
func (s *ChannelSetting) Context(capability checkout.Capability) (checkout.SalesChannelContext, error) {
	if capability == "" {
		capability = s.Capability
	}
	return checkout.NewSalesChannelContext(s.SalesChannelID, s.Currency, s.Locale, s.Country, s.TaxState, capability)
}

func (s *ChannelSetting) apply(v SettingValues) {
	s.Capability = v.Capability
	s.TaxState = v.TaxState
	s.Currency = v.Currency
	s.Country = v.Country
	s.Locale = v.Locale
	s.Active = v.Active
}

func normalizeValues(salesChannelID string, v SettingValues) (SettingValues, error) {
	if v.Capability == "" {
		return v, fmt.Errorf("%w: capability is required", shared.ErrInvalidInput)
	}
	if v.TaxState == "" {
		v.TaxState = checkout.TaxStateGross
	}
	sc, err := checkout.NewSalesChannelContext(salesChannelID, v.Currency, v.Locale, v.Country, v.TaxState, v.Capability)
	if err != nil {
		return v, err
	}
	v.Currency = sc.Currency.String()
	v.Country = sc.Country
	if v.Locale != "" {
		v.Locale = sc.Locale.String()
	}
	return v, nil
}
