package plugin

import "github.com/taxbridge/backend/internal/domain/shared/strategy"

// TaxProviderPlugin defines the interface for tax provider plugins.
// A plugin contributes one or more tax calculators to the registry.
type TaxProviderPlugin interface {
	// Name returns the unique identifier for the plugin
	Name() string
	// DisplayName returns the human-readable name for the plugin
	DisplayName() string
	// RegisterCalculators registers the plugin's calculators with the registrar.
	// Calculators registered first take priority.
	RegisterCalculators(registrar StrategyRegistrar) error
}

// StrategyRegistrar is the interface for registering tax calculators
// This is implemented by the infrastructure RegistryBuilder
type StrategyRegistrar interface {
	// RegisterCalculator registers a tax calculator
	RegisterCalculator(calculator strategy.TaxCalculator) error
}
