// Package hull implements the platform port: scoped connector logs written
// through zap and trait write-backs sent to the platform firehose.
package hull

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	domain "github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
)

const (
	firehosePath = "/api/v1/firehose"

	headerConnectorID = "Hull-App-Id"
	headerAccessToken = "Hull-Access-Token"

	entityUser    = "user"
	entityAccount = "account"
)

// Errors returned by the firehose client
var (
	ErrMissingOrganization = errors.New("hull: organization is required")
	ErrMissingCredentials  = errors.New("hull: connector id and secret are required")
	ErrFirehoseRejected    = errors.New("hull: firehose rejected traits")
)

// Credentials identify the connector instance on its organization
type Credentials struct {
	Organization string
	ConnectorID  string
	Secret       string
}

// Validate checks that all credentials are present
func (c Credentials) Validate() error {
	if c.Organization == "" {
		return ErrMissingOrganization
	}
	if c.ConnectorID == "" || c.Secret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// firehoseURL returns the firehose endpoint; bare organization hosts get https.
func (c Credentials) firehoseURL() string {
	base := strings.TrimRight(c.Organization, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "https://" + base
	}
	return base + firehosePath
}

// Client is the platform client of one connector instance
type Client struct {
	credentials Credentials
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewClient creates a platform client. A nil httpClient uses a client with
// the given timeout.
func NewClient(credentials Credentials, httpClient *http.Client, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	if err := credentials.Validate(); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		credentials: credentials,
		httpClient:  httpClient,
		logger:      logger.With(zap.String("connector_id", credentials.ConnectorID)),
	}, nil
}

// AsUser scopes the client to a user identity
func (c *Client) AsUser(claims domain.UserClaims) integration.ScopedClient {
	return &scopedClient{client: c, entity: entityUser, claims: claims}
}

// AsAccount scopes the client to an account identity
func (c *Client) AsAccount(claims domain.AccountClaims) integration.ScopedClient {
	return &scopedClient{client: c, entity: entityAccount, claims: claims}
}

// ---------------------------------------------------------------------------
// Scoped client
// ---------------------------------------------------------------------------

type scopedClient struct {
	client *Client
	entity string
	claims any
}

func (s *scopedClient) Logger() integration.ScopedLogger {
	return NewScopedLogger(s.client.logger, s.entity, s.claims)
}

// firehoseBody is one trait write-back
type firehoseBody struct {
	Type       string            `json:"type"`
	Entity     string            `json:"entity"`
	Claims     any               `json:"claims"`
	Attributes domain.Attributes `json:"attributes"`
}

func (s *scopedClient) Traits(ctx context.Context, attributes domain.Attributes) error {
	data, err := json.Marshal(firehoseBody{
		Type:       "traits",
		Entity:     s.entity,
		Claims:     s.claims,
		Attributes: attributes,
	})
	if err != nil {
		return fmt.Errorf("hull: failed to encode traits: %w", err)
	}

	creds := s.client.credentials
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, creds.firehoseURL(), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("hull: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerConnectorID, creds.ConnectorID)
	req.Header.Set(headerAccessToken, creds.Secret)

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("hull: firehose request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrFirehoseRejected, resp.StatusCode)
	}
	return nil
}
