package strategy

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxbridge/backend/internal/domain/shared"
)

func TestCalculationError_Error(t *testing.T) {
	err := NewCalculationError("avalara", "provider unavailable", errors.New("connection refused"))
	assert.Equal(t, `tax calculator "avalara": provider unavailable: connection refused`, err.Error())

	noCause := NewCalculationError("core", "missing tax rule", nil)
	assert.Equal(t, `tax calculator "core": missing tax rule`, noCause.Error())
}

func TestCalculationError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewCalculationError("avalara", "provider unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, shared.ErrCalculationFailed)

	wrapped := fmt.Errorf("dispatch: %w", err)
	calcErr, ok := AsCalculationError(wrapped)
	require.True(t, ok)
	assert.Same(t, err, calcErr)

	_, ok = AsCalculationError(errors.New("other"))
	assert.False(t, ok)
}

func TestCapabilitySet(t *testing.T) {
	set := NewCapabilitySet("EU", "US", "EU")

	assert.True(t, set.Supports("EU"))
	assert.True(t, set.Supports("US"))
	assert.False(t, set.Supports("eu"))
	assert.False(t, set.Supports(""))
	assert.Equal(t, []Capability{"EU", "US"}, set.Capabilities())

	var empty CapabilitySet
	assert.False(t, empty.Supports("EU"))
	assert.Empty(t, empty.Capabilities())
}

func TestBaseStrategy(t *testing.T) {
	s := NewBaseStrategy("core", "Rule based calculator")
	assert.Equal(t, "core", s.Name())
	assert.Equal(t, "Rule based calculator", s.Description())
}
