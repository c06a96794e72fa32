package planhat

import (
	"net/http"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/infrastructure/telemetry"
)

// Factory builds per-connector clients. Clients created for the same access
// token share one rate limiter, so concurrent notifications of a connector
// draw from a single budget.
type Factory struct {
	config     ClientConfig
	httpClient *http.Client
	metrics    *telemetry.SyncMetrics
	logger     *zap.Logger

	limiters map[string]*rate.Limiter
	mu       sync.Mutex // Protects limiters
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithHTTPClient replaces the default instrumented HTTP client
func WithHTTPClient(client *http.Client) FactoryOption {
	return func(f *Factory) {
		f.httpClient = client
	}
}

// WithMetrics records latency and outcome of every remote call
func WithMetrics(metrics *telemetry.SyncMetrics) FactoryOption {
	return func(f *Factory) {
		f.metrics = metrics
	}
}

// NewFactory creates a client factory with the given configuration
func NewFactory(config ClientConfig, logger *zap.Logger, opts ...FactoryOption) (*Factory, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	f := &Factory{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:   logger.Named("planhat"),
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewServiceClient returns a client for the connector settings. It fails with
// integration.ErrMissingAccessToken when no token is configured.
func (f *Factory) NewServiceClient(settings *integration.ConnectorSettings) (integration.ServiceClient, error) {
	return f.NewClient(settings)
}

// NewClient is NewServiceClient returning the concrete client
func (f *Factory) NewClient(settings *integration.ConnectorSettings) (*Client, error) {
	if !settings.CanCommunicateWithAPI() {
		return nil, integration.ErrMissingAccessToken
	}
	return &Client{
		baseURL:      f.config.BaseURL(settings),
		analyticsURL: f.config.AnalyticsURL,
		tenantID:     settings.TenantID,
		token:        settings.PersonalAccessToken,
		httpClient:   f.httpClient,
		limiter:      f.limiterFor(settings.PersonalAccessToken),
		metrics:      f.metrics,
		logger:       f.logger,
	}, nil
}

func (f *Factory) limiterFor(token string) *rate.Limiter {
	if f.config.RateLimit <= 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.limiters[token]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(f.config.RateLimit), f.config.RateBurst)
	f.limiters[token] = l
	return l
}
