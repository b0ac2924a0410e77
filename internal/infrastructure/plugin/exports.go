package plugin

import (
	domainPlugin "github.com/taxbridge/backend/internal/domain/shared/plugin"
)

// Re-export domain plugin types for easier access from infrastructure
type (
	// TaxProviderPlugin is a re-export of the domain TaxProviderPlugin interface
	TaxProviderPlugin = domainPlugin.TaxProviderPlugin
	// PluginManager is a re-export of the domain PluginManager type
	PluginManager = domainPlugin.PluginManager
	// StrategyRegistrar is a re-export of the domain StrategyRegistrar interface
	StrategyRegistrar = domainPlugin.StrategyRegistrar
)

// NewPluginManager creates a new plugin manager (re-export from domain)
func NewPluginManager(registrar StrategyRegistrar) *PluginManager {
	return domainPlugin.NewPluginManager(registrar)
}
