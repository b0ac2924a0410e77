package plugin

import (
	"fmt"

	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/infrastructure/config"
	"github.com/taxbridge/backend/internal/infrastructure/strategy/tax"
)

// CorePlugin registers the configured rule based and tax free calculators
type CorePlugin struct {
	calculators []config.BuiltinCalculatorConfig
}

// NewCorePlugin creates the core plugin from tax.builtin
func NewCorePlugin(calculators []config.BuiltinCalculatorConfig) *CorePlugin {
	return &CorePlugin{calculators: calculators}
}

// Name returns the unique identifier for the plugin
func (p *CorePlugin) Name() string {
	return config.PluginCore
}

// DisplayName returns the human-readable name for the plugin
func (p *CorePlugin) DisplayName() string {
	return "Core tax rules"
}

// RegisterCalculators registers one calculator per configured built-in entry
func (p *CorePlugin) RegisterCalculators(registrar StrategyRegistrar) error {
	for _, c := range p.calculators {
		calculator, err := newBuiltinCalculator(c)
		if err != nil {
			return err
		}
		if err := registrar.RegisterCalculator(calculator); err != nil {
			return err
		}
	}
	return nil
}

func newBuiltinCalculator(c config.BuiltinCalculatorConfig) (strategy.TaxCalculator, error) {
	caps := toCapabilities(c.Capabilities)
	switch c.Mode {
	case config.ModeGross:
		return tax.NewRuleBasedCalculator(c.Name, c.Description, checkout.TaxStateGross, caps...)
	case config.ModeNet:
		return tax.NewRuleBasedCalculator(c.Name, c.Description, checkout.TaxStateNet, caps...)
	case config.ModeTaxFree:
		return tax.NewTaxFreeCalculator(c.Name, c.Description, caps...), nil
	default:
		return nil, fmt.Errorf("built-in calculator %q: unknown mode %q", c.Name, c.Mode)
	}
}

func toCapabilities(values []string) []strategy.Capability {
	caps := make([]strategy.Capability, len(values))
	for i, v := range values {
		caps[i] = strategy.Capability(v)
	}
	return caps
}

var _ TaxProviderPlugin = (*CorePlugin)(nil)
