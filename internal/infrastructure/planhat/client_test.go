package planhat

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hull-connectors/planhat/internal/domain/integration"
	domain "github.com/hull-connectors/planhat/internal/domain/planhat"
)

// newTestClient returns a client whose API and analytics roots point at srv
func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	factory, err := NewFactory(ClientConfig{
		BaseURLTemplate: srv.URL,
		AnalyticsURL:    srv.URL,
		Timeout:         5 * time.Second,
	}, zaptest.NewLogger(t), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	client, err := factory.NewClient(&integration.ConnectorSettings{
		PersonalAccessToken: "secret-token",
		TenantID:            "tenant-1",
	})
	require.NoError(t, err)
	return client
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	var body map[string]any
	assert.NoError(t, json.Unmarshal(data, &body))
	return body
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

func TestClient_CreateContact(t *testing.T) {
	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/endusers", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		received = decodeBody(t, r)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"_id":"c-1","email":"jane@example.com","name":"Jane"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv)
	result, err := client.CreateContact(context.Background(), domain.Contact{
		"email":     "jane@example.com",
		"name":      "Jane",
		"companyId": nil,
		"custom":    map[string]any{"tier": "gold", "unset": nil},
	})
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "c-1", result.Data.RemoteID())
	assert.Equal(t, EndpointEndusers, result.Endpoint)
	assert.Equal(t, http.MethodPost, result.Method)

	assert.NotContains(t, received, "companyId")
	assert.Equal(t, map[string]any{"tier": "gold"}, received["custom"])
}

func TestClient_FindContactByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/endusers", r.URL.Path)
		assert.Equal(t, "jane+test@example.com", r.URL.Query().Get("email"))
		_, _ = w.Write([]byte(`[{"_id":"c-1","email":"jane+test@example.com"}]`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).FindContactByEmail(context.Background(), "jane+test@example.com")
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Data, 1)
	assert.Equal(t, "c-1", result.Data[0].RemoteID())
}

func TestClient_UpdateContact_UsesIDInPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/endusers/c-42", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id":"c-42"}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).UpdateContact(context.Background(), domain.Contact{"id": "c-42", "name": "Jane"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, EndpointEnduser, result.Endpoint)
}

// ---------------------------------------------------------------------------
// Companies
// ---------------------------------------------------------------------------

func TestClient_FindCompanyByExternalID_Normalizes(t *testing.T) {
	tests := []struct {
		name     string
		response string
		wantIDs  []string
	}{
		{name: "list", response: `[{"_id":"a"},{"_id":"b"}]`, wantIDs: []string{"a", "b"}},
		{name: "single object", response: `{"_id":"a","externalId":"ext"}`, wantIDs: []string{"a"}},
		{name: "empty list", response: `[]`, wantIDs: []string{}},
		{name: "empty body", response: ``, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "ext", r.URL.Query().Get("externalId"))
				_, _ = w.Write([]byte(tt.response))
			}))
			defer srv.Close()

			result, err := newTestClient(t, srv).FindCompanyByExternalID(context.Background(), "ext")
			require.NoError(t, err)
			require.True(t, result.Success)

			ids := []string{}
			for _, c := range result.Data {
				ids = append(ids, c.RemoteID())
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestClient_GetCompanyByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/companies/p-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"_id":"p-1","name":"Acme"}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).GetCompanyByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, EndpointCompany, result.Endpoint)
	assert.Equal(t, "Acme", result.Data["name"])
}

func TestClient_RemoteFailureIsResult(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantError string
	}{
		{name: "message body", status: http.StatusUnprocessableEntity, body: `{"message":"name is required"}`, wantError: "HTTP 422: name is required"},
		{name: "error body", status: http.StatusForbidden, body: `{"error":"forbidden token"}`, wantError: "HTTP 403: forbidden token"},
		{name: "plain text body", status: http.StatusBadGateway, body: `upstream down`, wantError: "HTTP 502: upstream down"},
		{name: "empty body", status: http.StatusNotFound, body: ``, wantError: "HTTP 404: Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			result, err := newTestClient(t, srv).CreateCompany(context.Background(), domain.Company{"name": "Acme"})
			require.NoError(t, err)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantError, result.Error)
			assert.Equal(t, EndpointCompanies, result.Endpoint)
		})
	}
}

func TestClient_TransportFaultIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestClient(t, srv)
	srv.Close()

	_, err := client.CreateCompany(context.Background(), domain.Company{"name": "Acme"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_UndecodableSuccessIsFailedResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).GetCompanyByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, domain.ErrDecodeResponse.Error())
}

// ---------------------------------------------------------------------------
// Events and licenses
// ---------------------------------------------------------------------------

func TestClient_TrackEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analytics/tenant-1", r.URL.Path)
		body := decodeBody(t, r)
		assert.Equal(t, "signed_up", body["action"])
		assert.Equal(t, "jane@example.com", body["email"])
		_, _ = w.Write([]byte(`"OK"`))
	}))
	defer srv.Close()

	event := domain.Event{Action: "signed_up", Email: "jane@example.com"}
	result, err := newTestClient(t, srv).TrackEvent(context.Background(), event)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, event, result.Data)
	assert.Equal(t, EndpointAnalytics, result.Endpoint)
}

func TestClient_UpsertLicenses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/licenses", r.URL.Path)

		var body []map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body, 2) {
			assert.NotContains(t, body[1], "value")
		}

		_, _ = w.Write([]byte(`{"created":1,"updated":1,"insertsKeys":[{"_id":"l-1"}],"upsertedIds":["l-1","l-2"]}`))
	}))
	defer srv.Close()

	result, err := newTestClient(t, srv).UpsertLicenses(context.Background(), []domain.License{
		{"companyId": "p-1", "externalId": "lic-1", "value": 100},
		{"companyId": "p-1", "externalId": "lic-2", "value": nil},
	})
	require.NoError(t, err)
	require.True(t, result.Success)
	assert.Equal(t, 1, result.Data.Created)
	assert.Equal(t, 1, result.Data.Updated)
	assert.Equal(t, []domain.KeyRef{{ID: "l-1"}}, result.Data.InsertsKeys)
	assert.Equal(t, []string{"l-1", "l-2"}, result.Data.UpsertedIDs)
}

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

func TestFactory_NewServiceClient(t *testing.T) {
	factory, err := NewFactory(DefaultClientConfig(), nil)
	require.NoError(t, err)

	t.Run("missing token", func(t *testing.T) {
		_, err := factory.NewServiceClient(&integration.ConnectorSettings{})
		assert.ErrorIs(t, err, integration.ErrMissingAccessToken)
	})

	t.Run("resolves api prefix", func(t *testing.T) {
		client, err := factory.NewClient(&integration.ConnectorSettings{PersonalAccessToken: "t", APIPrefix: "api-eu"})
		require.NoError(t, err)
		assert.Equal(t, "https://api-eu.planhat.com", client.baseURL)
	})

	t.Run("defaults api prefix", func(t *testing.T) {
		client, err := factory.NewClient(&integration.ConnectorSettings{PersonalAccessToken: "t"})
		require.NoError(t, err)
		assert.Equal(t, "https://api.planhat.com", client.baseURL)
	})

	t.Run("shares limiter per token", func(t *testing.T) {
		a, err := factory.NewClient(&integration.ConnectorSettings{PersonalAccessToken: "t1"})
		require.NoError(t, err)
		b, err := factory.NewClient(&integration.ConnectorSettings{PersonalAccessToken: "t1"})
		require.NoError(t, err)
		c, err := factory.NewClient(&integration.ConnectorSettings{PersonalAccessToken: "t2"})
		require.NoError(t, err)

		assert.Same(t, a.limiter, b.limiter)
		assert.NotSame(t, a.limiter, c.limiter)
	})
}

func TestClientConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  ClientConfig
		wantErr error
	}{
		{name: "defaults", config: DefaultClientConfig()},
		{name: "missing base url", config: ClientConfig{}, wantErr: ErrConfigMissingBaseURL},
		{name: "rate without burst", config: ClientConfig{BaseURLTemplate: "http://x", RateLimit: 1}, wantErr: ErrConfigInvalidRateLimit},
		{name: "fills analytics url", config: ClientConfig{BaseURLTemplate: "http://x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tt.config.AnalyticsURL)
			assert.Positive(t, tt.config.Timeout)
		})
	}
}

func TestClient_RateLimiterHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	factory, err := NewFactory(ClientConfig{
		BaseURLTemplate: srv.URL,
		RateLimit:       0.001,
		RateBurst:       1,
	}, nil, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	client, err := factory.NewClient(&integration.ConnectorSettings{PersonalAccessToken: "t"})
	require.NoError(t, err)

	_, err = client.GetCompanyByID(context.Background(), "p-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.GetCompanyByID(ctx, "p-1")
	assert.ErrorIs(t, err, domain.ErrTransport)
}
