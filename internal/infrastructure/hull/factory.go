package hull

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/hull-connectors/planhat/internal/domain/integration"
)

// FactoryConfig holds the process-wide platform defaults
type FactoryConfig struct {
	// Organization is used for connectors that do not name one
	Organization string
	// Secret is used for connectors that do not carry one
	Secret  string
	Timeout time.Duration
}

// Factory builds platform clients per connector instance. All clients share
// one instrumented HTTP client.
type Factory struct {
	config     FactoryConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFactory creates a Factory
func NewFactory(config FactoryConfig, logger *zap.Logger) *Factory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Factory{
		config: config,
		httpClient: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// NewPlatformClient implements integration.PlatformClientFactory
func (f *Factory) NewPlatformClient(connector *integration.Connector) (integration.PlatformClient, error) {
	credentials := Credentials{
		Organization: connector.Organization,
		ConnectorID:  connector.ID,
		Secret:       connector.Secret,
	}
	if credentials.Organization == "" {
		credentials.Organization = f.config.Organization
	}
	if credentials.Secret == "" {
		credentials.Secret = f.config.Secret
	}
	return NewClient(credentials, f.httpClient, f.config.Timeout, f.logger)
}

var _ integration.PlatformClientFactory = (*Factory)(nil)
