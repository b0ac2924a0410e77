package strategy

import (
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/infrastructure/strategy/tax"
)

// Names of the default calculators
const (
	DefaultGrossCalculator   = "core-gross"
	DefaultNetCalculator     = "core-net"
	DefaultTaxFreeCalculator = "core-tax-free"
)

// DefaultCalculators returns the built-in calculators for the gross, net and
// tax-free capabilities, in that priority order.
func DefaultCalculators() ([]strategy.TaxCalculator, error) {
	gross, err := tax.NewRuleBasedCalculator(DefaultGrossCalculator, "", checkout.TaxStateGross, strategy.CapabilityGross)
	if err != nil {
		return nil, err
	}
	net, err := tax.NewRuleBasedCalculator(DefaultNetCalculator, "", checkout.TaxStateNet, strategy.CapabilityNet)
	if err != nil {
		return nil, err
	}
	taxFree := tax.NewTaxFreeCalculator(DefaultTaxFreeCalculator, "")

	return []strategy.TaxCalculator{gross, net, taxFree}, nil
}

// NewRegistryWithDefaults creates a new registry with the default calculators registered
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	calculators, err := DefaultCalculators()
	if err != nil {
		return nil, err
	}
	return NewStrategyRegistry(calculators...)
}
