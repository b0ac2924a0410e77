// Package tax holds the application services of the tax service: dispatching
// carts to the calculator registered for their capability, and managing the
// per-channel settings that pick that capability.
package tax

import (
	"context"
	"time"

	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"github.com/taxbridge/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CalculatorResolver finds the calculator handling a capability
type CalculatorResolver interface {
	Resolve(target strategy.Capability) (strategy.TaxCalculator, bool)
}

// DispatchMetrics records dispatch outcomes
type DispatchMetrics interface {
	RecordDispatch(ctx context.Context, capability, calculator, outcome string, elapsed time.Duration)
}

// DispatchResult is the outcome of one dispatch
type DispatchResult struct {
	Items []checkout.LineItem
	// Calculator is the name of the calculator that ran, empty on pass-through
	Calculator string
}

// Matched reports whether a calculator handled the items
func (r DispatchResult) Matched() bool {
	return r.Calculator != ""
}

// Dispatcher hands line items to the calculator resolved for the sales
// channel capability. It holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	resolver CalculatorResolver
	metrics  DispatchMetrics
	now      func() time.Time
}

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatchMetrics records every dispatch on m
func WithDispatchMetrics(m DispatchMetrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// NewDispatcher creates a dispatcher over resolver
func NewDispatcher(resolver CalculatorResolver, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		resolver: resolver,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Process returns the line items computed by the calculator for
// sc.Capability. Without a matching calculator items is returned as is.
// Calculator errors are returned unmodified and no other calculator is tried.
func (d *Dispatcher) Process(ctx context.Context, items []checkout.LineItem, sc checkout.SalesChannelContext, original *checkout.Cart) ([]checkout.LineItem, error) {
	result, err := d.Dispatch(ctx, items, sc, original)
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Dispatch is Process that also reports which calculator ran
func (d *Dispatcher) Dispatch(ctx context.Context, items []checkout.LineItem, sc checkout.SalesChannelContext, original *checkout.Cart) (DispatchResult, error) {
	capability := sc.Capability.String()
	ctx, span := telemetry.StartSpan(ctx, "tax.dispatch",
		telemetry.WithAttribute(telemetry.SpanAttrCapability, capability),
		telemetry.WithAttribute(telemetry.SpanAttrSalesChannelID, sc.SalesChannelID),
		telemetry.WithAttribute(telemetry.SpanAttrLineItems, len(items)),
	)
	defer span.End()

	start := d.now()
	log := logger.L(ctx).With(zap.String("capability", capability))

	calculator, found := d.resolver.Resolve(sc.Capability)
	if !found {
		d.record(ctx, capability, "", telemetry.OutcomePassthrough, start)
		telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, telemetry.OutcomePassthrough)
		telemetry.SetOK(span)
		log.Debug("No tax calculator supports capability, passing line items through",
			zap.Int("line_items", len(items)))
		return DispatchResult{Items: items}, nil
	}

	name := calculator.Name()
	telemetry.SetAttributes(span, telemetry.SpanAttrCalculator, name)

	out, err := calculator.Calculate(ctx, items, sc, original)
	if err != nil {
		d.record(ctx, capability, name, telemetry.OutcomeFailed, start)
		telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, telemetry.OutcomeFailed)
		telemetry.RecordError(span, err)
		log.Warn("Tax calculation failed", zap.String("calculator", name), zap.Error(err))
		return DispatchResult{}, err
	}

	d.record(ctx, capability, name, telemetry.OutcomeMatched, start)
	telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, telemetry.OutcomeMatched)
	telemetry.SetOK(span)
	log.Debug("Tax calculated",
		zap.String("calculator", name),
		zap.Int("line_items", len(out)),
	)
	return DispatchResult{Items: out, Calculator: name}, nil
}

func (d *Dispatcher) record(ctx context.Context, capability, calculator, outcome string, start time.Time) {
	if d.metrics == nil {
		return
	}
	d.metrics.RecordDispatch(ctx, capability, calculator, outcome, d.now().Sub(start))
}
