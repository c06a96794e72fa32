package planhat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	domain "github.com/hull-connectors/planhat/internal/domain/planhat"
	"github.com/hull-connectors/planhat/internal/domain/shared"
	"github.com/hull-connectors/planhat/internal/infrastructure/telemetry"
)

// Endpoint templates reported on results and metrics
const (
	EndpointEndusers   = "/endusers"
	EndpointEnduser    = "/endusers/:id"
	EndpointCompanies  = "/companies"
	EndpointCompany    = "/companies/:id"
	EndpointLicenses   = "/licenses"
	EndpointAnalytics  = "/analytics/:tenant_id"
	userAgent          = "hull-planhat-connector"
	contentTypeJSON    = "application/json"
	authorizationValue = "Bearer "
)

// Client calls the Planhat REST API on behalf of one connector. Remote
// failures come back as unsuccessful results; only network faults and
// cancellations are returned as errors.
type Client struct {
	baseURL      string
	analyticsURL string
	tenantID     string
	token        string
	httpClient   *http.Client
	limiter      *rate.Limiter
	metrics      *telemetry.SyncMetrics
	logger       *zap.Logger
}

// request describes one API call
type request struct {
	method   string
	url      string
	endpoint string
	body     any
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// FindContactByEmail looks up end users by email address
func (c *Client) FindContactByEmail(ctx context.Context, email string) (*domain.ApiResult[[]domain.Contact], error) {
	return do[[]domain.Contact](ctx, c, request{
		method:   http.MethodGet,
		url:      c.baseURL + EndpointEndusers + "?" + url.Values{"email": {email}}.Encode(),
		endpoint: EndpointEndusers,
	})
}

// CreateContact creates an end user
func (c *Client) CreateContact(ctx context.Context, contact domain.Contact) (*domain.ApiResult[domain.Contact], error) {
	return do[domain.Contact](ctx, c, request{
		method:   http.MethodPost,
		url:      c.baseURL + EndpointEndusers,
		endpoint: EndpointEndusers,
		body:     stripNil(contact),
	})
}

// UpdateContact updates the end user identified by the contact's id
func (c *Client) UpdateContact(ctx context.Context, contact domain.Contact) (*domain.ApiResult[domain.Contact], error) {
	return do[domain.Contact](ctx, c, request{
		method:   http.MethodPut,
		url:      c.baseURL + EndpointEndusers + "/" + url.PathEscape(objectID(contact)),
		endpoint: EndpointEnduser,
		body:     stripNil(contact),
	})
}

// ---------------------------------------------------------------------------
// Companies
// ---------------------------------------------------------------------------

// FindCompanyByExternalID looks up companies by external id. The API answers
// with either a single object or a list; both are returned as a list.
func (c *Client) FindCompanyByExternalID(ctx context.Context, externalID string) (*domain.ApiResult[[]domain.Company], error) {
	raw, err := do[json.RawMessage](ctx, c, request{
		method:   http.MethodGet,
		url:      c.baseURL + EndpointCompanies + "?" + url.Values{"externalId": {externalID}}.Encode(),
		endpoint: EndpointCompanies,
	})
	if err != nil {
		return nil, err
	}

	result := &domain.ApiResult[[]domain.Company]{
		Success:  raw.Success,
		Data:     []domain.Company{},
		Endpoint: raw.Endpoint,
		Method:   raw.Method,
		Record:   raw.Record,
		Error:    raw.Error,
	}
	if !raw.Success {
		return result, nil
	}

	companies, err := decodeCompanyList(raw.Data)
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("%s: %v", domain.ErrDecodeResponse, err)
		return result, nil
	}
	result.Data = companies
	return result, nil
}

// GetCompanyByID fetches one company by its remote id
func (c *Client) GetCompanyByID(ctx context.Context, id string) (*domain.ApiResult[domain.Company], error) {
	return do[domain.Company](ctx, c, request{
		method:   http.MethodGet,
		url:      c.baseURL + EndpointCompanies + "/" + url.PathEscape(id),
		endpoint: EndpointCompany,
	})
}

// CreateCompany creates a company
func (c *Client) CreateCompany(ctx context.Context, company domain.Company) (*domain.ApiResult[domain.Company], error) {
	return do[domain.Company](ctx, c, request{
		method:   http.MethodPost,
		url:      c.baseURL + EndpointCompanies,
		endpoint: EndpointCompanies,
		body:     stripNil(company),
	})
}

// UpdateCompany updates the company identified by the company's id
func (c *Client) UpdateCompany(ctx context.Context, company domain.Company) (*domain.ApiResult[domain.Company], error) {
	return do[domain.Company](ctx, c, request{
		method:   http.MethodPut,
		url:      c.baseURL + EndpointCompanies + "/" + url.PathEscape(objectID(company)),
		endpoint: EndpointCompany,
		body:     stripNil(company),
	})
}

// ---------------------------------------------------------------------------
// Events and licenses
// ---------------------------------------------------------------------------

// TrackEvent records a user activity on the analytics endpoint of the tenant
func (c *Client) TrackEvent(ctx context.Context, event domain.Event) (*domain.ApiResult[domain.Event], error) {
	result, err := do[json.RawMessage](ctx, c, request{
		method:   http.MethodPost,
		url:      c.analyticsURL + "/analytics/" + url.PathEscape(c.tenantID),
		endpoint: EndpointAnalytics,
		body:     event,
	})
	if err != nil {
		return nil, err
	}
	// The analytics endpoint does not echo the event back.
	return &domain.ApiResult[domain.Event]{
		Success:  result.Success,
		Data:     event,
		Endpoint: result.Endpoint,
		Method:   result.Method,
		Record:   result.Record,
		Error:    result.Error,
	}, nil
}

// UpsertLicenses bulk upserts license lines
func (c *Client) UpsertLicenses(ctx context.Context, licenses []domain.License) (*domain.ApiResult[domain.BulkUpsertResponse], error) {
	body := make([]map[string]any, 0, len(licenses))
	for _, l := range licenses {
		body = append(body, stripNil(l))
	}
	return do[domain.BulkUpsertResponse](ctx, c, request{
		method:   http.MethodPut,
		url:      c.baseURL + EndpointLicenses,
		endpoint: EndpointLicenses,
		body:     body,
	})
}

// ---------------------------------------------------------------------------
// Transport
// ---------------------------------------------------------------------------

// do performs req and decodes a 2xx body into T. Non-2xx responses yield an
// unsuccessful result carrying the decoded error body.
func do[T any](ctx context.Context, c *Client, req request) (*domain.ApiResult[T], error) {
	ctx, span := telemetry.StartSpan(ctx, "planhat "+req.method+" "+req.endpoint,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", req.method),
		telemetry.WithAttribute("planhat.endpoint", req.endpoint),
	)
	defer span.End()

	result := &domain.ApiResult[T]{Endpoint: req.endpoint, Method: req.method}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrTransport, err)
		}
	}

	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRemoteCall(ctx, req.endpoint, req.method, false, time.Since(start))
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, req.method, req.endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	elapsed := time.Since(start)
	if err != nil {
		c.metrics.RecordRemoteCall(ctx, req.endpoint, req.method, false, elapsed)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%w: reading %s %s: %v", domain.ErrTransport, req.method, req.endpoint, err)
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.metrics.RecordRemoteCall(ctx, req.endpoint, req.method, success, elapsed)
	telemetry.SetAttributes(span, "http.status_code", resp.StatusCode)

	if !success {
		result.Record = decodeErrorBody(payload)
		result.Error = errorMessage(resp.StatusCode, result.Record)
		c.logger.Debug("Planhat request failed",
			zap.String("method", req.method),
			zap.String("endpoint", req.endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed),
		)
		return result, nil
	}

	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &result.Data); err != nil {
			result.Error = fmt.Sprintf("%s: %v", domain.ErrDecodeResponse, err)
			return result, nil
		}
	}
	result.Success = true
	return result, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req request) (*http.Request, error) {
	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("planhat: failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return nil, fmt.Errorf("planhat: failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", authorizationValue+c.token)
	httpReq.Header.Set("Accept", contentTypeJSON)
	httpReq.Header.Set("User-Agent", userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", contentTypeJSON)
	}
	return httpReq, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// stripNil drops keys whose value is nil, recursively. Unknown values must
// not be sent as explicit nulls.
func stripNil[M ~map[string]any](object M) map[string]any {
	out := make(map[string]any, len(object))
	for k, v := range object {
		switch value := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = stripNil(value)
		default:
			out[k] = v
		}
	}
	return out
}

// objectID returns the id used in update paths
func objectID(object map[string]any) string {
	if id := shared.GetString(object, domain.FieldID); id != "" {
		return id
	}
	return shared.GetString(object, domain.FieldRemoteID)
}

func decodeCompanyList(data json.RawMessage) ([]domain.Company, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []domain.Company{}, nil
	}
	if trimmed[0] == '[' {
		var list []domain.Company
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		if list == nil {
			list = []domain.Company{}
		}
		return list, nil
	}
	var single domain.Company
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, err
	}
	return []domain.Company{single}, nil
}

func decodeErrorBody(payload []byte) any {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return string(payload)
	}
	return decoded
}

// errorMessage builds the result error from the status and the error body.
// Planhat reports errors as {"message": ...} or {"error": ...}.
func errorMessage(status int, body any) string {
	prefix := fmt.Sprintf("HTTP %d", status)
	switch b := body.(type) {
	case map[string]any:
		for _, key := range []string{"message", "error"} {
			if msg, ok := b[key].(string); ok && msg != "" {
				return prefix + ": " + msg
			}
		}
	case string:
		if b != "" {
			return prefix + ": " + b
		}
	}
	if text := http.StatusText(status); text != "" {
		return prefix + ": " + text
	}
	return prefix
}
