package telemetry

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the tax metrics.
const MeterName = "github.com/taxbridge/backend/tax"

// Dispatch outcomes.
const (
	OutcomeMatched     = "matched"
	OutcomePassthrough = "passthrough"
	OutcomeFailed      = "failed"
)

// TaxMetrics records dispatch and provider activity.
type TaxMetrics struct {
	dispatchTotal    *Counter
	dispatchDuration *Histogram
	providerRequests *Counter
	quoteCacheTotal  *Counter
}

// NewTaxMetrics creates the tax instruments on meter.
func NewTaxMetrics(meter metric.Meter) (*TaxMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	dispatchTotal, err := NewCounter(meter, "tax_dispatch_total",
		"Tax dispatches by outcome and calculator", "{dispatch}")
	if err != nil {
		return nil, err
	}
	dispatchDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "tax_dispatch_duration_seconds",
		Description: "Time spent resolving and running a tax calculator",
		Unit:        "s",
		Boundaries:  DispatchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	providerRequests, err := NewCounter(meter, "tax_provider_requests_total",
		"HTTP requests sent to external tax providers", "{request}")
	if err != nil {
		return nil, err
	}
	quoteCacheTotal, err := NewCounter(meter, "tax_quote_cache_total",
		"Provider quote cache lookups by outcome", "{lookup}")
	if err != nil {
		return nil, err
	}

	return &TaxMetrics{
		dispatchTotal:    dispatchTotal,
		dispatchDuration: dispatchDuration,
		providerRequests: providerRequests,
		quoteCacheTotal:  quoteCacheTotal,
	}, nil
}

// RecordDispatch counts one dispatch. calculator is empty on pass-through.
func (m *TaxMetrics) RecordDispatch(ctx context.Context, capability, calculator, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatchTotal.Inc(ctx,
		AttrOutcome.String(outcome),
		AttrCalculator.String(calculator),
		AttrCapability.String(capability),
	)
	m.dispatchDuration.RecordDuration(ctx, elapsed,
		AttrOutcome.String(outcome),
		AttrCalculator.String(calculator),
	)
}

// RecordProviderRequest counts one provider HTTP attempt. status is 0 when
// no response was received.
func (m *TaxMetrics) RecordProviderRequest(ctx context.Context, provider string, status int) {
	if m == nil {
		return
	}
	m.providerRequests.Inc(ctx,
		AttrProvider.String(provider),
		AttrHTTPStatusCode.String(strconv.Itoa(status)),
	)
}

// RecordQuoteCache counts a quote cache lookup.
func (m *TaxMetrics) RecordQuoteCache(ctx context.Context, provider string, hit bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.quoteCacheTotal.Inc(ctx, AttrProvider.String(provider), AttrOutcome.String(outcome))
}
