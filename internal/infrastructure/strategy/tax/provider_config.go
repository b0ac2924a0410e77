package tax

import (
	"errors"
	"net/url"
	"time"

	"github.com/taxbridge/backend/internal/domain/shared/strategy"
)

// ProviderConfig holds configuration for an external tax provider
type ProviderConfig struct {
	// Name identifies the provider and the calculator registered for it
	Name string
	// BaseURL is the provider API root, e.g. https://api.provider.example
	BaseURL string
	// APIKey is sent as a bearer token
	APIKey string
	// Capabilities are the tags this provider handles
	Capabilities []strategy.Capability
	// Timeout bounds a single HTTP request
	Timeout time.Duration
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int
	// RetryInterval is the initial backoff interval
	RetryInterval time.Duration
	// CacheTTL is how long a quote is reused for an identical request; zero disables caching
	CacheTTL time.Duration
}

const (
	defaultProviderTimeout = 5 * time.Second
	defaultRetryInterval   = 200 * time.Millisecond
	taxesPath              = "/v1/taxes"
)

// Errors for provider configuration
var (
	ErrProviderConfigMissingName         = errors.New("tax provider: name is required")
	ErrProviderConfigMissingBaseURL      = errors.New("tax provider: base url is required")
	ErrProviderConfigInvalidBaseURL      = errors.New("tax provider: base url must be an absolute http(s) url")
	ErrProviderConfigMissingCapabilities = errors.New("tax provider: at least one capability is required")
	ErrProviderConfigInvalidCapability   = errors.New("tax provider: invalid capability")
	ErrProviderConfigNegativeRetries     = errors.New("tax provider: max retries cannot be negative")
)

// Validate validates the provider configuration and fills defaults
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return ErrProviderConfigMissingName
	}
	if c.BaseURL == "" {
		return ErrProviderConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrProviderConfigInvalidBaseURL
	}
	if len(c.Capabilities) == 0 {
		return ErrProviderConfigMissingCapabilities
	}
	for _, capability := range c.Capabilities {
		if !capability.IsValid() {
			return ErrProviderConfigInvalidCapability
		}
	}
	if c.MaxRetries < 0 {
		return ErrProviderConfigNegativeRetries
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultProviderTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	return nil
}

// Endpoint returns the URL of the tax calculation endpoint
func (c *ProviderConfig) Endpoint() string {
	u, _ := url.Parse(c.BaseURL)
	return u.JoinPath(taxesPath).String()
}
