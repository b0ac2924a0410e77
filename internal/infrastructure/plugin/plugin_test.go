package plugin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/infrastructure/cache"
	"github.com/taxbridge/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// recordingRegistrar collects registered calculators in order
type recordingRegistrar struct {
	calculators []strategy.TaxCalculator
}

func (r *recordingRegistrar) RegisterCalculator(c strategy.TaxCalculator) error {
	r.calculators = append(r.calculators, c)
	return nil
}

func (r *recordingRegistrar) names() []string {
	names := make([]string, len(r.calculators))
	for i, c := range r.calculators {
		names[i] = c.Name()
	}
	return names
}

func defaultBuiltin() []config.BuiltinCalculatorConfig {
	return []config.BuiltinCalculatorConfig{
		{Name: "core-gross", Mode: config.ModeGross, Capabilities: []string{"gross", "EU"}},
		{Name: "core-net", Mode: config.ModeNet, Capabilities: []string{"net"}},
		{Name: "core-tax-free", Mode: config.ModeTaxFree, Capabilities: []string{"tax-free"}},
	}
}

func TestCorePlugin_RegisterCalculators(t *testing.T) {
	registrar := &recordingRegistrar{}
	p := NewCorePlugin(defaultBuiltin())

	assert.Equal(t, "core", p.Name())
	require.NoError(t, p.RegisterCalculators(registrar))
	assert.Equal(t, []string{"core-gross", "core-net", "core-tax-free"}, registrar.names())

	assert.True(t, registrar.calculators[0].Supports("EU"))
	assert.True(t, registrar.calculators[2].Supports(strategy.CapabilityTaxFree))
}

func TestCorePlugin_UnknownMode(t *testing.T) {
	p := NewCorePlugin([]config.BuiltinCalculatorConfig{{Name: "odd", Mode: "mixed", Capabilities: []string{"x"}}})

	err := p.RegisterCalculators(&recordingRegistrar{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestProvidersPlugin_RegisterCalculators(t *testing.T) {
	registrar := &recordingRegistrar{}
	p := NewProvidersPlugin([]config.TaxProviderConfig{
		{Name: "us-provider", BaseURL: "https://us.example.com", Capabilities: []string{"US"}, Timeout: time.Second},
		{Name: "eu-provider", BaseURL: "https://eu.example.com", Capabilities: []string{"EU"}},
	}, nil)

	assert.Equal(t, "providers", p.Name())
	require.NoError(t, p.RegisterCalculators(registrar))
	assert.Equal(t, []string{"us-provider", "eu-provider"}, registrar.names())
	assert.True(t, registrar.calculators[1].Supports("EU"))
}

func TestProvidersPlugin_InvalidProvider(t *testing.T) {
	p := NewProvidersPlugin([]config.TaxProviderConfig{{Name: "broken", Capabilities: []string{"US"}}}, nil)

	err := p.RegisterCalculators(&recordingRegistrar{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `provider "broken"`)
}

func TestLoadRegistry_PluginOrder(t *testing.T) {
	quotes := cache.NewInMemoryQuoteCache()
	defer quotes.Close()

	cfg := config.TaxConfig{
		PluginOrder: []string{config.PluginProviders, config.PluginCore},
		Builtin:     defaultBuiltin(),
		Providers: []config.TaxProviderConfig{
			{Name: "eu-provider", BaseURL: "https://eu.example.com", Capabilities: []string{"EU"}},
		},
	}

	registry, manager, err := LoadRegistry(cfg, quotes, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{"eu-provider", "core-gross", "core-net", "core-tax-free"}, registry.List())
	assert.Equal(t, []string{"providers", "core"}, manager.ListPlugins())

	// both eu-provider and core-gross claim EU; the earlier plugin wins
	c, found := registry.Resolve("EU")
	require.True(t, found)
	assert.Equal(t, "eu-provider", c.Name())

	cfg.PluginOrder = []string{config.PluginCore, config.PluginProviders}
	registry, _, err = LoadRegistry(cfg, quotes, zap.NewNop())
	require.NoError(t, err)
	c, found = registry.Resolve("EU")
	require.True(t, found)
	assert.Equal(t, "core-gross", c.Name())
}

func TestLoadRegistry_SkipsPluginsOutsideOrder(t *testing.T) {
	cfg := config.TaxConfig{
		PluginOrder: []string{config.PluginCore},
		Builtin:     defaultBuiltin(),
		Providers: []config.TaxProviderConfig{
			{Name: "eu-provider", BaseURL: "https://eu.example.com", Capabilities: []string{"EU"}},
		},
	}

	registry, _, err := LoadRegistry(cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 3, registry.Len())
}

func TestLoadRegistry_Errors(t *testing.T) {
	t.Run("unknown plugin", func(t *testing.T) {
		_, _, err := LoadRegistry(config.TaxConfig{PluginOrder: []string{"vendor"}}, nil, zap.NewNop())
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("duplicate calculator across plugins", func(t *testing.T) {
		cfg := config.TaxConfig{
			PluginOrder: []string{config.PluginCore, config.PluginProviders},
			Builtin:     defaultBuiltin(),
			Providers: []config.TaxProviderConfig{
				{Name: "core-gross", BaseURL: "https://eu.example.com", Capabilities: []string{"EU"}},
			},
		}
		_, _, err := LoadRegistry(cfg, nil, zap.NewNop())
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})
}
