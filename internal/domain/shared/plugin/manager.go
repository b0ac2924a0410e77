package plugin

import (
	"fmt"
	"sync"

	"github.com/taxbridge/backend/internal/domain/shared"
)

// PluginManager manages tax provider plugin registrations
type PluginManager struct {
	mu        sync.RWMutex
	plugins   map[string]TaxProviderPlugin
	order     []string
	registrar StrategyRegistrar
}

// NewPluginManager creates a new plugin manager
func NewPluginManager(registrar StrategyRegistrar) *PluginManager {
	return &PluginManager{
		plugins:   make(map[string]TaxProviderPlugin),
		registrar: registrar,
	}
}

// Register registers a tax provider plugin
// This also triggers the plugin's calculator registration
func (m *PluginManager) Register(plugin TaxProviderPlugin) error {
	if plugin == nil {
		return fmt.Errorf("%w: plugin cannot be nil", shared.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	name := plugin.Name()
	if name == "" {
		return fmt.Errorf("%w: plugin name cannot be empty", shared.ErrInvalidInput)
	}

	if _, exists := m.plugins[name]; exists {
		return fmt.Errorf("%w: plugin '%s' already registered", shared.ErrAlreadyExists, name)
	}

	if err := plugin.RegisterCalculators(m.registrar); err != nil {
		return fmt.Errorf("plugin '%s': %w", name, err)
	}

	m.plugins[name] = plugin
	m.order = append(m.order, name)
	return nil
}

// GetPlugin returns a plugin by name
func (m *PluginManager) GetPlugin(name string) (TaxProviderPlugin, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugin, exists := m.plugins[name]
	return plugin, exists
}

// ListPlugins returns all registered plugin names in registration order
func (m *PluginManager) ListPlugins() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.order))
	copy(names, m.order)
	return names
}

// Count returns the number of registered plugins
func (m *PluginManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}
