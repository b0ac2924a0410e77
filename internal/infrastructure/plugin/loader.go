package plugin

import (
	"fmt"

	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/infrastructure/config"
	infraStrategy "github.com/taxbridge/backend/internal/infrastructure/strategy"
	"github.com/taxbridge/backend/internal/infrastructure/strategy/tax"
	"go.uber.org/zap"
)

// LoadRegistry registers the core and providers plugins in tax.plugin_order
// and freezes their calculators into a registry. Plugins left out of the
// order are not loaded. providerOpts are passed to every provider calculator.
func LoadRegistry(cfg config.TaxConfig, quotes shared.QuoteCache, logger *zap.Logger, providerOpts ...tax.ProviderOption) (*infraStrategy.StrategyRegistry, *PluginManager, error) {
	available := map[string]TaxProviderPlugin{
		config.PluginCore:      NewCorePlugin(cfg.Builtin),
		config.PluginProviders: NewProvidersPlugin(cfg.Providers, quotes, providerOpts...),
	}

	builder := infraStrategy.NewRegistryBuilder()
	manager := NewPluginManager(builder)

	for _, name := range cfg.PluginOrder {
		p, ok := available[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: unknown tax plugin %q", shared.ErrInvalidInput, name)
		}
		if err := manager.Register(p); err != nil {
			return nil, nil, err
		}
		logger.Info("tax plugin registered", zap.String("plugin", name))
	}

	registry, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}

	logger.Info("tax calculator registry ready",
		zap.Strings("calculators", registry.List()),
		zap.Strings("plugins", manager.ListPlugins()),
	)
	return registry, manager, nil
}
