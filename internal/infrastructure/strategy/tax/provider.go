package tax

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/taxbridge/backend/internal/domain/checkout"
	"github.com/taxbridge/backend/internal/domain/shared"
	"github.com/taxbridge/backend/internal/domain/shared/strategy"
	"github.com/taxbridge/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from a provider (1MB)
const maxResponseSize = 1 << 20

// ProviderCalculator delegates tax calculation to an external HTTP provider
type ProviderCalculator struct {
	strategy.BaseStrategy
	strategy.CapabilitySet
	config     ProviderConfig
	httpClient *http.Client
	cache      shared.QuoteCache
	metrics    ProviderMetrics
}

// ProviderMetrics receives provider request and quote cache observations
type ProviderMetrics interface {
	RecordProviderRequest(ctx context.Context, provider string, status int)
	RecordQuoteCache(ctx context.Context, provider string, hit bool)
}

// ProviderOption configures a ProviderCalculator
type ProviderOption func(*ProviderCalculator)

// WithHTTPClient replaces the HTTP client; its timeout is kept as is
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *ProviderCalculator) {
		p.httpClient = client
	}
}

// WithQuoteCache enables quote caching
func WithQuoteCache(cache shared.QuoteCache) ProviderOption {
	return func(p *ProviderCalculator) {
		p.cache = cache
	}
}

// WithMetrics records provider requests and cache lookups
func WithMetrics(metrics ProviderMetrics) ProviderOption {
	return func(p *ProviderCalculator) {
		p.metrics = metrics
	}
}

// NewProviderCalculator creates a calculator for the configured provider
func NewProviderCalculator(config ProviderConfig, opts ...ProviderOption) (*ProviderCalculator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &ProviderCalculator{
		BaseStrategy:  strategy.NewBaseStrategy(config.Name, fmt.Sprintf("External tax provider at %s", config.BaseURL)),
		CapabilitySet: strategy.NewCapabilitySet(config.Capabilities...),
		config:        config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Calculate requests a quote from the provider and applies it to the line items
func (p *ProviderCalculator) Calculate(ctx context.Context, items []checkout.LineItem, sc checkout.SalesChannelContext, original *checkout.Cart) ([]checkout.LineItem, error) {
	if len(items) == 0 {
		return []checkout.LineItem{}, nil
	}

	req := p.buildRequest(items, sc)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, strategy.NewCalculationError(p.Name(), "failed to encode provider request", err)
	}
	key, err := p.fingerprint(req)
	if err != nil {
		return nil, strategy.NewCalculationError(p.Name(), "failed to encode provider request", err)
	}

	quote, cached := p.cachedQuote(ctx, key, items)
	if !cached {
		respBody, err := p.fetchQuote(ctx, body)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(respBody, &quote); err != nil {
			return nil, strategy.NewCalculationError(p.Name(), "invalid provider response", err)
		}
	}

	out, err := p.applyQuote(items, quote, sc)
	if err != nil {
		return nil, err
	}

	if !cached {
		p.storeQuote(ctx, key, items, quote)
	}
	return out, nil
}

func (p *ProviderCalculator) buildRequest(items []checkout.LineItem, sc checkout.SalesChannelContext) providerRequest {
	req := providerRequest{
		Currency:  sc.Currency.String(),
		Country:   sc.Country,
		TaxState:  string(sc.TaxState),
		LineItems: make([]providerRequestItem, len(items)),
	}
	for i, item := range items {
		req.LineItems[i] = providerRequestItem{
			ID:         item.ID.String(),
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
			TotalPrice: item.TotalPrice,
		}
	}
	return req
}

// fingerprint hashes the request with line item ids replaced by their
// position, so carts differing only in generated ids share a quote
func (p *ProviderCalculator) fingerprint(req providerRequest) (string, error) {
	positional := req
	positional.LineItems = make([]providerRequestItem, len(req.LineItems))
	for i, item := range req.LineItems {
		item.ID = strconv.Itoa(i)
		positional.LineItems[i] = item
	}
	body, err := json.Marshal(positional)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	h.Write([]byte(p.Name()))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// cachedQuote loads a quote stored by position and binds it to the ids of items
func (p *ProviderCalculator) cachedQuote(ctx context.Context, key string, items []checkout.LineItem) (providerResponse, bool) {
	if p.cache == nil || p.config.CacheTTL <= 0 {
		return providerResponse{}, false
	}
	value, found, err := p.cache.Get(ctx, key)
	if err != nil {
		logger.L(ctx).Warn("tax quote cache read failed",
			zap.String("calculator", p.Name()),
			zap.Error(err),
		)
		return providerResponse{}, false
	}

	var quote providerResponse
	if found {
		if err := json.Unmarshal(value, &quote); err != nil || len(quote.LineItems) != len(items) {
			logger.L(ctx).Warn("discarding unreadable cached tax quote",
				zap.String("calculator", p.Name()),
				zap.Error(err),
			)
			found = false
		}
	}
	if found {
		for i := range quote.LineItems {
			pos, err := strconv.Atoi(quote.LineItems[i].ID)
			if err != nil || pos < 0 || pos >= len(items) {
				found = false
				break
			}
			quote.LineItems[i].ID = items[pos].ID.String()
		}
	}

	if p.metrics != nil {
		p.metrics.RecordQuoteCache(ctx, p.Name(), found)
	}
	if !found {
		return providerResponse{}, false
	}
	return quote, true
}

// storeQuote caches quote with its line item ids replaced by their position
// in items. The quote has already been matched to items.
func (p *ProviderCalculator) storeQuote(ctx context.Context, key string, items []checkout.LineItem, quote providerResponse) {
	if p.cache == nil || p.config.CacheTTL <= 0 {
		return
	}

	positions := make(map[string]string, len(items))
	for i, item := range items {
		positions[item.ID.String()] = strconv.Itoa(i)
	}
	positional := providerResponse{
		TransactionID: quote.TransactionID,
		LineItems:     make([]providerResponseItem, len(quote.LineItems)),
	}
	for i, quoted := range quote.LineItems {
		quoted.ID = positions[quoted.ID]
		positional.LineItems[i] = quoted
	}

	body, err := json.Marshal(positional)
	if err == nil {
		err = p.cache.Set(ctx, key, body, p.config.CacheTTL)
	}
	if err != nil {
		logger.L(ctx).Warn("tax quote cache write failed",
			zap.String("calculator", p.Name()),
			zap.Error(err),
		)
	}
}

// statusError is a non-2xx provider response
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	if e.message == "" {
		return fmt.Sprintf("HTTP %d", e.status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.status, e.message)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// fetchQuote posts the request, retrying transport failures, 429 and 5xx responses
func (p *ProviderCalculator) fetchQuote(ctx context.Context, body []byte) ([]byte, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.config.RetryInterval
	policy.MaxElapsedTime = 0

	attempt := 0
	var respBody []byte
	operation := func() error {
		attempt++
		b, err := p.doRequest(ctx, body)
		if err == nil {
			respBody = b
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var se *statusError
		if errors.As(err, &se) && !retryableStatus(se.status) {
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(p.config.MaxRetries)), ctx),
		func(err error, next time.Duration) {
			logger.L(ctx).Warn("tax provider request failed, retrying",
				zap.String("calculator", p.Name()),
				zap.Int("attempt", attempt),
				zap.Duration("next_retry", next),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			return nil, strategy.NewCalculationError(p.Name(), fmt.Sprintf("provider returned status %d", se.status), err)
		}
		return nil, strategy.NewCalculationError(p.Name(), "provider request failed", err)
	}
	return respBody, nil
}

// doRequest performs a single HTTP request to the provider
func (p *ProviderCalculator) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.recordRequest(ctx, 0)
		return nil, err
	}
	defer resp.Body.Close()
	p.recordRequest(ctx, resp.StatusCode)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &statusError{status: resp.StatusCode}
		var errResp providerErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			se.message = errResp.Error.Message
		}
		return nil, se
	}
	return respBody, nil
}

func (p *ProviderCalculator) recordRequest(ctx context.Context, status int) {
	if p.metrics != nil {
		p.metrics.RecordProviderRequest(ctx, p.Name(), status)
	}
}

// applyQuote matches the quote to the line items by id
func (p *ProviderCalculator) applyQuote(items []checkout.LineItem, quote providerResponse, sc checkout.SalesChannelContext) ([]checkout.LineItem, error) {
	byID := make(map[string]providerResponseItem, len(quote.LineItems))
	for _, quoted := range quote.LineItems {
		if _, dup := byID[quoted.ID]; dup {
			return nil, strategy.NewCalculationError(p.Name(), fmt.Sprintf("provider response repeats line item %s", quoted.ID), nil)
		}
		byID[quoted.ID] = quoted
	}
	if len(byID) != len(items) {
		return nil, strategy.NewCalculationError(p.Name(),
			fmt.Sprintf("provider quoted %d line items, cart has %d", len(byID), len(items)), nil)
	}

	out := make([]checkout.LineItem, len(items))
	for i, item := range items {
		quoted, ok := byID[item.ID.String()]
		if !ok {
			return nil, strategy.NewCalculationError(p.Name(), fmt.Sprintf("provider response is missing line item %s", item.ID), nil)
		}
		if quoted.Tax.IsNegative() || quoted.TaxRate.IsNegative() {
			return nil, strategy.NewCalculationError(p.Name(), fmt.Sprintf("provider returned a negative tax for line item %s", item.ID), nil)
		}

		processed := item.Clone()
		processed.CalculatedTaxes = checkout.CalculatedTaxCollection{{
			Tax:     sc.Round(quoted.Tax),
			TaxRate: quoted.TaxRate,
			Price:   item.TotalPrice,
		}}
		processed.TaxProvider = &checkout.TaxProviderInfo{
			Provider:       p.Name(),
			TransactionRef: quote.TransactionID,
		}
		out[i] = processed
	}
	return out, nil
}

var _ strategy.TaxCalculator = (*ProviderCalculator)(nil)
