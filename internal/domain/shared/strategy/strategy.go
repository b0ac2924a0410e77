package strategy

import "github.com/taxbridge/backend/internal/domain/checkout"

// Capability is the tag a calculator declares it can handle
type Capability = checkout.Capability

// Well-known capabilities provided by the core plugin
const (
	CapabilityGross   Capability = "gross"
	CapabilityNet     Capability = "net"
	CapabilityTaxFree Capability = "tax-free"
)

// Strategy is the base interface for all strategies
type Strategy interface {
	// Name returns the unique name of the strategy
	Name() string
	// Description returns a human-readable description
	Description() string
}

// BaseStrategy provides common implementation for strategies
type BaseStrategy struct {
	name        string
	description string
}

// NewBaseStrategy creates a new BaseStrategy
func NewBaseStrategy(name, description string) BaseStrategy {
	return BaseStrategy{
		name:        name,
		description: description,
	}
}

// Name returns the strategy name
func (s BaseStrategy) Name() string {
	return s.name
}

// Description returns the strategy description
func (s BaseStrategy) Description() string {
	return s.description
}

// CapabilitySet is an immutable set of capabilities a calculator claims.
// It gives calculators a ready-made Supports implementation.
type CapabilitySet struct {
	ordered []Capability
	lookup  map[Capability]struct{}
}

// NewCapabilitySet creates a set from the given capabilities, dropping duplicates
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := CapabilitySet{lookup: make(map[Capability]struct{}, len(caps))}
	for _, c := range caps {
		if _, ok := set.lookup[c]; ok {
			continue
		}
		set.lookup[c] = struct{}{}
		set.ordered = append(set.ordered, c)
	}
	return set
}

// Supports returns true if the set contains capability
func (s CapabilitySet) Supports(capability Capability) bool {
	_, ok := s.lookup[capability]
	return ok
}

// Capabilities returns the capabilities in declaration order
func (s CapabilitySet) Capabilities() []Capability {
	out := make([]Capability, len(s.ordered))
	copy(out, s.ordered)
	return out
}
