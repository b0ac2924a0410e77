package strategy

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
)

// Mock tax calculator for testing
type mockCalculator struct {
	strategy.BaseStrategy
	strategy.CapabilitySet
	calls int
}

func newMockCalculator(name string, caps ...strategy.Capability) *mockCalculator {
	return &mockCalculator{
		BaseStrategy:  strategy.NewBaseStrategy(name, "Mock tax calculator"),
		CapabilitySet: strategy.NewCapabilitySet(caps...),
	}
}

func (c *mockCalculator) Calculate(_ context.Context, items []checkout.LineItem, _ checkout.SalesChannelContext, _ *checkout.Cart) ([]checkout.LineItem, error) {
	c.calls++
	return checkout.CloneLineItems(items), nil
}

// supportsAll claims every capability and does not enumerate them
type supportsAll struct {
	strategy.BaseStrategy
}

func (c *supportsAll) Supports(strategy.Capability) bool { return true }

func (c *supportsAll) Calculate(_ context.Context, items []checkout.LineItem, _ checkout.SalesChannelContext, _ *checkout.Cart) ([]checkout.LineItem, error) {
	return items, nil
}

func TestNewStrategyRegistry(t *testing.T) {
	r, err := NewStrategyRegistry()
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
	assert.Empty(t, r.List())

	_, found := r.Resolve("EU")
	assert.False(t, found)
}

func TestNewStrategyRegistry_RejectsNil(t *testing.T) {
	_, err := NewStrategyRegistry(newMockCalculator("a", "EU"), nil)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNewStrategyRegistry_RejectsEmptyName(t *testing.T) {
	_, err := NewStrategyRegistry(newMockCalculator("", "EU"))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestNewStrategyRegistry_RejectsDuplicateName(t *testing.T) {
	_, err := NewStrategyRegistry(newMockCalculator("avalara", "US"), newMockCalculator("avalara", "EU"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestStrategyRegistry_Resolve(t *testing.T) {
	us := newMockCalculator("us-provider", "US")
	eu := newMockCalculator("eu-provider", "EU")
	r, err := NewStrategyRegistry(us, eu)
	require.NoError(t, err)

	got, found := r.Resolve("EU")
	require.True(t, found)
	assert.Same(t, eu, got)

	got, found = r.Resolve("US")
	require.True(t, found)
	assert.Same(t, us, got)

	_, found = r.Resolve("APAC")
	assert.False(t, found)
}

func TestStrategyRegistry_Resolve_FirstRegisteredWins(t *testing.T) {
	first := newMockCalculator("first", "EU")
	second := newMockCalculator("second", "EU", "US")
	r, err := NewStrategyRegistry(first, second)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, found := r.Resolve("EU")
		require.True(t, found)
		assert.Same(t, first, got)
	}

	got, found := r.Resolve("US")
	require.True(t, found)
	assert.Same(t, second, got)
}

func TestStrategyRegistry_Resolve_DoesNotCalculate(t *testing.T) {
	c := newMockCalculator("a", "EU")
	r, err := NewStrategyRegistry(c)
	require.NoError(t, err)

	_, _ = r.Resolve("EU")
	assert.Equal(t, 0, c.calls)
}

func TestStrategyRegistry_Get(t *testing.T) {
	c := newMockCalculator("a", "EU")
	r, err := NewStrategyRegistry(c)
	require.NoError(t, err)

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, c, got)

	_, err = r.Get("missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStrategyRegistry_ListAndCapabilities(t *testing.T) {
	r, err := NewStrategyRegistry(
		newMockCalculator("z-provider", "US", "CA"),
		&supportsAll{BaseStrategy: strategy.NewBaseStrategy("catch-all", "")},
		newMockCalculator("a-provider", "EU", "US"),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"z-provider", "catch-all", "a-provider"}, r.List())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []strategy.Capability{"US", "CA", "EU"}, r.Capabilities())

	calcs := r.Calculators()
	calcs[0] = nil
	assert.Equal(t, "z-provider", r.List()[0])
}

func TestStrategyRegistry_ConcurrentResolve(t *testing.T) {
	r, err := NewStrategyRegistry(newMockCalculator("us", "US"), newMockCalculator("eu", "EU"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := strategy.Capability("US")
			want := "us"
			if i%2 == 0 {
				target, want = "EU", "eu"
			}
			got, found := r.Resolve(target)
			assert.True(t, found)
			assert.Equal(t, want, got.Name())
		}(i)
	}
	wg.Wait()
}

func TestRegistryBuilder(t *testing.T) {
	b := NewRegistryBuilder()
	require.NoError(t, b.RegisterCalculator(newMockCalculator("a", "EU")))
	require.NoError(t, b.RegisterCalculator(newMockCalculator("b", "EU")))
	assert.ErrorIs(t, b.RegisterCalculator(nil), shared.ErrInvalidInput)

	r, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.List())

	require.NoError(t, b.RegisterCalculator(newMockCalculator("a", "US")))
	_, err = b.Build()
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}
