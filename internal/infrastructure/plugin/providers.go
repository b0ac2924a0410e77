package plugin

import (
	"fmt"

	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/infrastructure/config"
	"github.com/taxbridge/backend/internal/infrastructure/strategy/tax"
)

// ProvidersPlugin registers one calculator per configured external tax provider
type ProvidersPlugin struct {
	providers []config.TaxProviderConfig
	quotes    shared.QuoteCache
	options   []tax.ProviderOption
}

// NewProvidersPlugin creates the providers plugin from tax.providers.
// quotes may be nil, which disables quote caching. opts are applied to
// every provider calculator.
func NewProvidersPlugin(providers []config.TaxProviderConfig, quotes shared.QuoteCache, opts ...tax.ProviderOption) *ProvidersPlugin {
	return &ProvidersPlugin{
		providers: providers,
		quotes:    quotes,
		options:   opts,
	}
}

// Name returns the unique identifier for the plugin
func (p *ProvidersPlugin) Name() string {
	return config.PluginProviders
}

// DisplayName returns the human-readable name for the plugin
func (p *ProvidersPlugin) DisplayName() string {
	return "External tax providers"
}

// RegisterCalculators registers a ProviderCalculator for each provider in config order
func (p *ProvidersPlugin) RegisterCalculators(registrar StrategyRegistrar) error {
	for _, pc := range p.providers {
		opts := append([]tax.ProviderOption(nil), p.options...)
		if p.quotes != nil {
			opts = append(opts, tax.WithQuoteCache(p.quotes))
		}

		calculator, err := tax.NewProviderCalculator(tax.ProviderConfig{
			Name:         pc.Name,
			BaseURL:      pc.BaseURL,
			APIKey:       pc.APIKey,
			Capabilities: toCapabilities(pc.Capabilities),
			Timeout:      pc.Timeout,
			MaxRetries:   pc.MaxRetries,
			CacheTTL:     pc.CacheTTL,
		}, opts...)
		if err != nil {
			return fmt.Errorf("provider %q: %w", pc.Name, err)
		}
		if err := registrar.RegisterCalculator(calculator); err != nil {
			return err
		}
	}
	return nil
}

var _ TaxProviderPlugin = (*ProvidersPlugin)(nil)
