package strategy

import (
	"fmt"

	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
)

// StrategyRegistry holds the tax calculators in priority order.
// The list is fixed at construction and never modified, so concurrent reads need no lock.
type StrategyRegistry struct {
	calculators []strategy.TaxCalculator
	byName      map[string]strategy.TaxCalculator
}

// NewStrategyRegistry creates a registry from calculators in priority order
func NewStrategyRegistry(calculators ...strategy.TaxCalculator) (*StrategyRegistry, error) {
	r := &StrategyRegistry{
		calculators: make([]strategy.TaxCalculator, 0, len(calculators)),
		byName:      make(map[string]strategy.TaxCalculator, len(calculators)),
	}

	for i, c := range calculators {
		if c == nil {
			return nil, fmt.Errorf("%w: tax calculator at position %d is nil", shared.ErrInvalidInput, i)
		}
		name := c.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: tax calculator at position %d has no name", shared.ErrInvalidInput, i)
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: tax calculator '%s' already registered", shared.ErrAlreadyExists, name)
		}
		r.byName[name] = c
		r.calculators = append(r.calculators, c)
	}

	return r, nil
}

// Resolve returns the first calculator, in registration order, that supports target.
// The boolean is false when no calculator claims the capability.
func (r *StrategyRegistry) Resolve(target strategy.Capability) (strategy.TaxCalculator, bool) {
	for _, c := range r.calculators {
		if c.Supports(target) {
			return c, true
		}
	}
	return nil, false
}

// Get returns a calculator by name
func (r *StrategyRegistry) Get(name string) (strategy.TaxCalculator, error) {
	c, exists := r.byName[name]
	if !exists {
		return nil, fmt.Errorf("%w: tax calculator '%s' not found", shared.ErrNotFound, name)
	}
	return c, nil
}

// List returns the registered calculator names in priority order
func (r *StrategyRegistry) List() []string {
	names := make([]string, len(r.calculators))
	for i, c := range r.calculators {
		names[i] = c.Name()
	}
	return names
}

// Calculators returns the registered calculators in priority order
func (r *StrategyRegistry) Calculators() []strategy.TaxCalculator {
	out := make([]strategy.TaxCalculator, len(r.calculators))
	copy(out, r.calculators)
	return out
}

// Len returns the number of registered calculators
func (r *StrategyRegistry) Len() int {
	return len(r.calculators)
}

// Capabilities returns every capability claimed by at least one calculator
// that can enumerate its capabilities, in first-claim order
func (r *StrategyRegistry) Capabilities() []strategy.Capability {
	seen := make(map[strategy.Capability]struct{})
	var caps []strategy.Capability
	for _, c := range r.calculators {
		lister, ok := c.(strategy.CapabilityLister)
		if !ok {
			continue
		}
		for _, capability := range lister.Capabilities() {
			if _, dup := seen[capability]; dup {
				continue
			}
			seen[capability] = struct{}{}
			caps = append(caps, capability)
		}
	}
	return caps
}

// RegistryBuilder collects calculators from plugins before the registry is frozen
type RegistryBuilder struct {
	calculators []strategy.TaxCalculator
}

// NewRegistryBuilder creates an empty builder
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{}
}

// RegisterCalculator appends a calculator at the lowest priority so far
func (b *RegistryBuilder) RegisterCalculator(c strategy.TaxCalculator) error {
	if c == nil {
		return fmt.Errorf("%w: tax calculator cannot be nil", shared.ErrInvalidInput)
	}
	b.calculators = append(b.calculators, c)
	return nil
}

// Build freezes the collected calculators into a registry
func (b *RegistryBuilder) Build() (*StrategyRegistry, error) {
	return NewStrategyRegistry(b.calculators...)
}
