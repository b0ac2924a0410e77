package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
)

// TaxCalculator computes taxes for the line items of a cart.
//
// Supports must be pure and fast: it is called for every registered calculator
// on every dispatch until one matches.
//
// Calculate returns a new sequence of line items carrying calculated taxes. It
// must not modify items, sc or original. Any failure is reported as a
// *CalculationError.
type TaxCalculator interface {
	Strategy

	// Supports reports whether the calculator handles the given capability
	Supports(capability Capability) bool

	// Calculate computes taxes for items
	Calculate(ctx context.Context, items []checkout.LineItem, sc checkout.SalesChannelContext, original *checkout.Cart) ([]checkout.LineItem, error)
}

// CapabilityLister is implemented by calculators that can enumerate their capabilities
type CapabilityLister interface {
	Capabilities() []Capability
}

// CalculationError is the failure signal of a tax calculator
type CalculationError struct {
	Calculator string
	Reason     string
	Err        error
}

// NewCalculationError creates a calculation error for the named calculator
func NewCalculationError(calculator, reason string, cause error) *CalculationError {
	return &CalculationError{
		Calculator: calculator,
		Reason:     reason,
		Err:        cause,
	}
}

// Error implements the error interface
func (e *CalculationError) Error() string {
	msg := fmt.Sprintf("tax calculator %q: %s", e.Calculator, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the cause and the domain sentinel
func (e *CalculationError) Unwrap() []error {
	if e.Err == nil {
		return []error{shared.ErrCalculationFailed}
	}
	return []error{e.Err, shared.ErrCalculationFailed}
}

// AsCalculationError extracts a *CalculationError from err
func AsCalculationError(err error) (*CalculationError, bool) {
	var calcErr *CalculationError
	if errors.As(err, &calcErr) {
		return calcErr, true
	}
	return nil, false
}
