package planhat

import (
	"errors"
	"strings"
	"time"

	"github.com/hull-connectors/planhat/internal/domain/integration"
)

const (
	// DefaultBaseURLTemplate is the production API root; {api_prefix} is
	// replaced with the connector's api prefix.
	DefaultBaseURLTemplate = "https://{api_prefix}.planhat.com"
	// DefaultAnalyticsURL is the event tracking root
	DefaultAnalyticsURL = "https://analytics.planhat.com"

	apiPrefixPlaceholder = "{api_prefix}"

	// maxResponseSize caps how much of a response body is read (10MB)
	maxResponseSize = 10 * 1024 * 1024
)

// Errors for client configuration
var (
	ErrConfigMissingBaseURL   = errors.New("planhat: base url template is required")
	ErrConfigInvalidRateLimit = errors.New("planhat: rate limit requires a positive burst")
)

// ClientConfig holds the settings shared by every connector's client
type ClientConfig struct {
	// BaseURLTemplate is the API root, optionally containing {api_prefix}
	BaseURLTemplate string
	// AnalyticsURL is the root of the event tracking endpoint
	AnalyticsURL string
	// Timeout is the per-request HTTP timeout
	Timeout time.Duration
	// RateLimit is the allowed requests per second per access token, 0 disables it
	RateLimit float64
	// RateBurst is the token bucket size
	RateBurst int
}

// DefaultClientConfig returns the production configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURLTemplate: DefaultBaseURLTemplate,
		AnalyticsURL:    DefaultAnalyticsURL,
		Timeout:         30 * time.Second,
		RateLimit:       10,
		RateBurst:       5,
	}
}

// Validate checks the configuration and fills optional defaults
func (c *ClientConfig) Validate() error {
	if c.BaseURLTemplate == "" {
		return ErrConfigMissingBaseURL
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return ErrConfigInvalidRateLimit
	}
	if c.AnalyticsURL == "" {
		c.AnalyticsURL = DefaultAnalyticsURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// BaseURL resolves the API root for the given connector settings
func (c *ClientConfig) BaseURL(settings *integration.ConnectorSettings) string {
	url := strings.ReplaceAll(c.BaseURLTemplate, apiPrefixPlaceholder, settings.ResolvedAPIPrefix())
	return strings.TrimRight(url, "/")
}
