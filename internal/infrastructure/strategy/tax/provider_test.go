package tax

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/infrastructure/cache"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestProviderConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ProviderConfig
		wantErr error
	}{
		{
			name:   "valid config",
			config: ProviderConfig{Name: "avalara", BaseURL: "https://api.example.com", Capabilities: []strategy.Capability{"US"}},
		},
		{
			name:    "missing name",
			config:  ProviderConfig{BaseURL: "https://api.example.com", Capabilities: []strategy.Capability{"US"}},
			wantErr: ErrProviderConfigMissingName,
		},
		{
			name:    "missing base url",
			config:  ProviderConfig{Name: "avalara", Capabilities: []strategy.Capability{"US"}},
			wantErr: ErrProviderConfigMissingBaseURL,
		},
		{
			name:    "relative base url",
			config:  ProviderConfig{Name: "avalara", BaseURL: "/taxes", Capabilities: []strategy.Capability{"US"}},
			wantErr: ErrProviderConfigInvalidBaseURL,
		},
		{
			name:    "missing capabilities",
			config:  ProviderConfig{Name: "avalara", BaseURL: "https://api.example.com"},
			wantErr: ErrProviderConfigMissingCapabilities,
		},
		{
			name:    "invalid capability",
			config:  ProviderConfig{Name: "avalara", BaseURL: "https://api.example.com", Capabilities: []strategy.Capability{"U S"}},
			wantErr: ErrProviderConfigInvalidCapability,
		},
		{
			name:    "negative retries",
			config:  ProviderConfig{Name: "avalara", BaseURL: "https://api.example.com", Capabilities: []strategy.Capability{"US"}, MaxRetries: -1},
			wantErr: ErrProviderConfigNegativeRetries,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, defaultProviderTimeout, tt.config.Timeout)
			assert.Equal(t, defaultRetryInterval, tt.config.RetryInterval)
		})
	}
}

func TestProviderConfig_Endpoint(t *testing.T) {
	c := ProviderConfig{BaseURL: "https://api.example.com/tax/"}
	assert.Equal(t, "https://api.example.com/tax/v1/taxes", c.Endpoint())
}

// ---------------------------------------------------------------------------
// Calculator Tests
// ---------------------------------------------------------------------------

type fakeProvider struct {
	server   *httptest.Server
	calls    atomic.Int32
	failures int32
	status   int
	rate     string
	mutate   func(*providerResponse)

	mu       sync.Mutex
	lastReq  providerRequest
	lastAuth string
}

func (fp *fakeProvider) last() (providerRequest, string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.lastReq, fp.lastAuth
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{status: http.StatusServiceUnavailable, rate: "8.875"}
	fp.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := fp.calls.Add(1)
		assert.Equal(t, "/v1/taxes", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		fp.mu.Lock()
		fp.lastAuth = r.Header.Get("Authorization")
		fp.mu.Unlock()

		if n <= fp.failures {
			w.WriteHeader(fp.status)
			_, _ = w.Write([]byte(`{"error":{"code":"unavailable","message":"try later"}}`))
			return
		}

		var req providerRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fp.mu.Lock()
		fp.lastReq = req
		fp.mu.Unlock()

		rate := decimal.RequireFromString(fp.rate)
		resp := providerResponse{TransactionID: "txn-1"}
		for _, item := range req.LineItems {
			resp.LineItems = append(resp.LineItems, providerResponseItem{
				ID:      item.ID,
				TaxRate: rate,
				Tax:     item.TotalPrice.Mul(rate).Div(decimal.NewFromInt(100)),
			})
		}
		if fp.mutate != nil {
			fp.mutate(&resp)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(fp.server.Close)
	return fp
}

func newProviderCalculator(t *testing.T, fp *fakeProvider, mutate func(*ProviderConfig), opts ...ProviderOption) *ProviderCalculator {
	t.Helper()
	cfg := ProviderConfig{
		Name:          "us-provider",
		BaseURL:       fp.server.URL,
		APIKey:        "secret",
		Capabilities:  []strategy.Capability{"US"},
		Timeout:       time.Second,
		MaxRetries:    2,
		RetryInterval: time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	calc, err := NewProviderCalculator(cfg, opts...)
	require.NoError(t, err)
	return calc
}

func usContext(t *testing.T) checkout.SalesChannelContext {
	t.Helper()
	sc, err := checkout.NewSalesChannelContext("us-store", "USD", "en-US", "US", checkout.TaxStateNet, "US")
	require.NoError(t, err)
	return sc
}

func TestProviderCalculator_Calculate(t *testing.T) {
	fp := newFakeProvider(t)
	calc := newProviderCalculator(t, fp, nil)

	items := []checkout.LineItem{
		newItem(t, "100.00", 1),
		newItem(t, "10.00", 3),
	}
	out, err := calc.Calculate(context.Background(), items, usContext(t), checkout.NewCart("t", items))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.True(t, dec("8.88").Equal(out[0].CalculatedTaxes.Amount()))
	assert.True(t, dec("2.66").Equal(out[1].CalculatedTaxes.Amount()))
	assert.Equal(t, &checkout.TaxProviderInfo{Provider: "us-provider", TransactionRef: "txn-1"}, out[0].TaxProvider)

	req, auth := fp.last()
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "US", req.Country)
	assert.Equal(t, "net", req.TaxState)
	require.Len(t, req.LineItems, 2)
	assert.Equal(t, items[1].ID.String(), req.LineItems[1].ID)
	assert.Equal(t, 3, req.LineItems[1].Quantity)

	assert.Nil(t, items[0].TaxProvider)
}

func TestProviderCalculator_EmptyItems(t *testing.T) {
	fp := newFakeProvider(t)
	calc := newProviderCalculator(t, fp, nil)

	out, err := calc.Calculate(context.Background(), nil, usContext(t), nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, int32(0), fp.calls.Load())
}

func TestProviderCalculator_RetriesTransientFailures(t *testing.T) {
	fp := newFakeProvider(t)
	fp.failures = 2
	calc := newProviderCalculator(t, fp, nil)

	out, err := calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "100.00", 1)}, usContext(t), nil)
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, int32(3), fp.calls.Load())
}

func TestProviderCalculator_RetriesRateLimit(t *testing.T) {
	fp := newFakeProvider(t)
	fp.failures = 1
	fp.status = http.StatusTooManyRequests
	calc := newProviderCalculator(t, fp, nil)

	_, err := calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "1.00", 1)}, usContext(t), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fp.calls.Load())
}

func TestProviderCalculator_GivesUpAfterMaxRetries(t *testing.T) {
	fp := newFakeProvider(t)
	fp.failures = 10
	calc := newProviderCalculator(t, fp, nil)

	out, err := calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "100.00", 1)}, usContext(t), nil)
	assert.Nil(t, out)
	calcErr, ok := strategy.AsCalculationError(err)
	require.True(t, ok)
	assert.Equal(t, "us-provider", calcErr.Calculator)
	assert.Equal(t, "provider returned status 503", calcErr.Reason)
	assert.Contains(t, err.Error(), "try later")
	assert.Equal(t, int32(3), fp.calls.Load())
}

func TestProviderCalculator_DoesNotRetryClientErrors(t *testing.T) {
	fp := newFakeProvider(t)
	fp.failures = 10
	fp.status = http.StatusBadRequest
	calc := newProviderCalculator(t, fp, nil)

	_, err := calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "100.00", 1)}, usContext(t), nil)
	assert.ErrorIs(t, err, shared.ErrCalculationFailed)
	assert.Equal(t, int32(1), fp.calls.Load())
}

func TestProviderCalculator_TransportFailure(t *testing.T) {
	fp := newFakeProvider(t)
	calc := newProviderCalculator(t, fp, func(c *ProviderConfig) { c.MaxRetries = 0 })
	fp.server.Close()

	_, err := calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "100.00", 1)}, usContext(t), nil)
	calcErr, ok := strategy.AsCalculationError(err)
	require.True(t, ok)
	assert.Equal(t, "provider request failed", calcErr.Reason)
}

func TestProviderCalculator_InvalidResponses(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*providerResponse)
		reason string
	}{
		{
			name:   "missing line item",
			mutate: func(r *providerResponse) { r.LineItems = r.LineItems[:1] },
			reason: "provider quoted 1 line items, cart has 2",
		},
		{
			name:   "unknown line item",
			mutate: func(r *providerResponse) { r.LineItems[1].ID = "other" },
			reason: "provider response is missing line item",
		},
		{
			name:   "duplicate line item",
			mutate: func(r *providerResponse) { r.LineItems[1].ID = r.LineItems[0].ID },
			reason: "provider response repeats line item",
		},
		{
			name:   "negative tax",
			mutate: func(r *providerResponse) { r.LineItems[0].Tax = dec("-1") },
			reason: "negative tax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fp := newFakeProvider(t)
			fp.mutate = tt.mutate
			calc := newProviderCalculator(t, fp, nil)

			items := []checkout.LineItem{newItem(t, "1.00", 1), newItem(t, "2.00", 1)}
			_, err := calc.Calculate(context.Background(), items, usContext(t), nil)
			calcErr, ok := strategy.AsCalculationError(err)
			require.True(t, ok)
			assert.Contains(t, calcErr.Reason, tt.reason)
		})
	}
}

func TestProviderCalculator_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	calc, err := NewProviderCalculator(ProviderConfig{
		Name:         "broken",
		BaseURL:      server.URL,
		Capabilities: []strategy.Capability{"US"},
	})
	require.NoError(t, err)

	_, err = calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "1.00", 1)}, usContext(t), nil)
	calcErr, ok := strategy.AsCalculationError(err)
	require.True(t, ok)
	assert.Equal(t, "invalid provider response", calcErr.Reason)
}

func TestProviderCalculator_CachesQuotes(t *testing.T) {
	fp := newFakeProvider(t)
	quotes := cache.NewInMemoryQuoteCache()
	defer quotes.Close()

	calc := newProviderCalculator(t, fp, func(c *ProviderConfig) { c.CacheTTL = time.Minute }, WithQuoteCache(quotes))

	items := []checkout.LineItem{newItem(t, "100.00", 1)}
	first, err := calc.Calculate(context.Background(), items, usContext(t), nil)
	require.NoError(t, err)
	second, err := calc.Calculate(context.Background(), items, usContext(t), nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fp.calls.Load())
	assert.Equal(t, 1, quotes.Size())
	assert.True(t, first[0].CalculatedTaxes.Amount().Equal(second[0].CalculatedTaxes.Amount()))
	assert.Equal(t, first[0].TaxProvider, second[0].TaxProvider)

	other := []checkout.LineItem{newItem(t, "50.00", 1)}
	_, err = calc.Calculate(context.Background(), other, usContext(t), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fp.calls.Load())
}

func TestProviderCalculator_CachedQuotesFollowLineItemPositions(t *testing.T) {
	fp := newFakeProvider(t)
	quotes := cache.NewInMemoryQuoteCache()
	defer quotes.Close()

	calc := newProviderCalculator(t, fp, func(c *ProviderConfig) { c.CacheTTL = time.Minute }, WithQuoteCache(quotes))
	cart := func() []checkout.LineItem {
		return []checkout.LineItem{newItem(t, "100.00", 1), newItem(t, "50.00", 1)}
	}

	_, err := calc.Calculate(context.Background(), cart(), usContext(t), nil)
	require.NoError(t, err)

	// Same prices, freshly generated ids
	items := cart()
	out, err := calc.Calculate(context.Background(), items, usContext(t), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fp.calls.Load())
	require.Len(t, out, 2)
	assert.Equal(t, items[0].ID, out[0].ID)
	assert.Equal(t, items[1].ID, out[1].ID)
	assert.Equal(t, "8.88", out[0].CalculatedTaxes.Amount().StringFixed(2))
	assert.Equal(t, "4.44", out[1].CalculatedTaxes.Amount().StringFixed(2))

	reversed := []checkout.LineItem{items[1], items[0]}
	_, err = calc.Calculate(context.Background(), reversed, usContext(t), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fp.calls.Load())
}

func TestProviderCalculator_RefetchesUnreadableCachedQuote(t *testing.T) {
	fp := newFakeProvider(t)
	quotes := cache.NewInMemoryQuoteCache()
	defer quotes.Close()

	calc := newProviderCalculator(t, fp, func(c *ProviderConfig) { c.CacheTTL = time.Minute }, WithQuoteCache(quotes))
	items := []checkout.LineItem{newItem(t, "10.00", 1)}

	key, err := calc.fingerprint(calc.buildRequest(items, usContext(t)))
	require.NoError(t, err)
	require.NoError(t, quotes.Set(context.Background(), key, []byte(`{"line_items":[{"id":"7"}]}`), time.Minute))

	out, err := calc.Calculate(context.Background(), items, usContext(t), nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fp.calls.Load())
	assert.Equal(t, "0.89", out[0].CalculatedTaxes.Amount().StringFixed(2))
}

func TestProviderCalculator_DoesNotCacheInvalidQuotes(t *testing.T) {
	fp := newFakeProvider(t)
	fp.mutate = func(r *providerResponse) { r.LineItems = nil }
	quotes := cache.NewInMemoryQuoteCache()
	defer quotes.Close()

	calc := newProviderCalculator(t, fp, func(c *ProviderConfig) { c.CacheTTL = time.Minute }, WithQuoteCache(quotes))

	_, err := calc.Calculate(context.Background(), []checkout.LineItem{newItem(t, "1.00", 1)}, usContext(t), nil)
	require.Error(t, err)
	assert.Equal(t, 0, quotes.Size())
}

type recordingMetrics struct {
	mu       sync.Mutex
	statuses []int
	lookups  []bool
}

func (m *recordingMetrics) RecordProviderRequest(_ context.Context, _ string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
}

func (m *recordingMetrics) RecordQuoteCache(_ context.Context, _ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, hit)
}

func TestProviderCalculator_RecordsMetrics(t *testing.T) {
	fp := newFakeProvider(t)
	fp.failures = 1
	quotes := cache.NewInMemoryQuoteCache()
	defer quotes.Close()
	metrics := &recordingMetrics{}

	calc := newProviderCalculator(t, fp, func(c *ProviderConfig) { c.CacheTTL = time.Minute },
		WithQuoteCache(quotes), WithMetrics(metrics))

	items := []checkout.LineItem{newItem(t, "20.00", 2)}
	_, err := calc.Calculate(context.Background(), items, usContext(t), nil)
	require.NoError(t, err)
	_, err = calc.Calculate(context.Background(), items, usContext(t), nil)
	require.NoError(t, err)

	assert.Equal(t, []int{http.StatusServiceUnavailable, http.StatusOK}, metrics.statuses)
	assert.Equal(t, []bool{false, true}, metrics.lookups)
}
