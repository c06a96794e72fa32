package outbound

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hull-connectors/planhat/internal/domain/hull"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/domain/planhat"
	hullclient "github.com/hull-connectors/planhat/internal/infrastructure/hull"
)

// MockServiceClient is a mock implementation of integration.ServiceClient
type MockServiceClient struct {
	mock.Mock
}

func (m *MockServiceClient) FindContactByEmail(ctx context.Context, email string) (*planhat.ApiResult[[]planhat.Contact], error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[[]planhat.Contact]), args.Error(1)
}

func (m *MockServiceClient) CreateContact(ctx context.Context, contact planhat.Contact) (*planhat.ApiResult[planhat.Contact], error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[planhat.Contact]), args.Error(1)
}

func (m *MockServiceClient) UpdateContact(ctx context.Context, contact planhat.Contact) (*planhat.ApiResult[planhat.Contact], error) {
	args := m.Called(ctx, contact)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[planhat.Contact]), args.Error(1)
}

func (m *MockServiceClient) FindCompanyByExternalID(ctx context.Context, externalID string) (*planhat.ApiResult[[]planhat.Company], error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[[]planhat.Company]), args.Error(1)
}

func (m *MockServiceClient) GetCompanyByID(ctx context.Context, id string) (*planhat.ApiResult[planhat.Company], error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[planhat.Company]), args.Error(1)
}

func (m *MockServiceClient) CreateCompany(ctx context.Context, company planhat.Company) (*planhat.ApiResult[planhat.Company], error) {
	args := m.Called(ctx, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[planhat.Company]), args.Error(1)
}

func (m *MockServiceClient) UpdateCompany(ctx context.Context, company planhat.Company) (*planhat.ApiResult[planhat.Company], error) {
	args := m.Called(ctx, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[planhat.Company]), args.Error(1)
}

func (m *MockServiceClient) TrackEvent(ctx context.Context, event planhat.Event) (*planhat.ApiResult[planhat.Event], error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[planhat.Event]), args.Error(1)
}

func (m *MockServiceClient) UpsertLicenses(ctx context.Context, licenses []planhat.License) (*planhat.ApiResult[planhat.BulkUpsertResponse], error) {
	args := m.Called(ctx, licenses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*planhat.ApiResult[planhat.BulkUpsertResponse]), args.Error(1)
}

// MockSyncJournal is a mock implementation of integration.SyncJournal
type MockSyncJournal struct {
	mock.Mock
}

func (m *MockSyncJournal) Record(ctx context.Context, record *integration.SyncRecord) error {
	return m.Called(ctx, record).Error(0)
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

const (
	usersSegment    = "72abf64e-7f60-4d7e-85b8-5f2f572318bb"
	accountsSegment = "5d3f2c6d62e03e47205afcb1"
)

func agentSettings() *integration.ConnectorSettings {
	return &integration.ConnectorSettings{
		PersonalAccessToken:         "pat-test",
		APIPrefix:                   "api",
		TenantID:                    "tenant-1",
		ContactSynchronizedSegments: []string{usersSegment},
		AccountSynchronizedSegments: []string{accountsSegment},
		ContactAttributesOutbound: []integration.MappingEntry{
			{HullFieldName: "email", ServiceFieldName: "email"},
			{HullFieldName: "name", ServiceFieldName: "name"},
		},
		AccountAttributesOutbound: []integration.MappingEntry{
			{HullFieldName: "name", ServiceFieldName: "name"},
		},
		AccountLicensesAttribute: "licenses",
		AccountLicensesAttributesOutbound: []integration.MappingEntry{
			{HullFieldName: "product", ServiceFieldName: "product"},
			{HullFieldName: "value", ServiceFieldName: "value"},
		},
		ContactEvents: []string{"Signed up"},
	}
}

func createdCompany(id, name string) planhat.Company {
	return planhat.Company{
		"_id":         id,
		"name":        name,
		"slug":        "test1234inc",
		"shareable":   map[string]any{"enabled": false},
		"lastUpdated": "2019-09-18T08:16:31.223Z",
		"status":      "prospect",
		"__v":         0,
	}
}

func success[T any](method, endpoint string, data T) *planhat.ApiResult[T] {
	return &planhat.ApiResult[T]{Success: true, Data: data, Method: method, Endpoint: endpoint}
}

func newTestAgent(t *testing.T, settings *integration.ConnectorSettings, opts ...AgentOption) (*Agent, *MockServiceClient, *hullclient.Recorder) {
	client := new(MockServiceClient)
	recorder := hullclient.NewRecorder(zaptest.NewLogger(t))
	return NewAgent(settings, client, recorder, zaptest.NewLogger(t), opts...), client, recorder
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func TestAgent_ScenarioAccountInsert(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	client.On("CreateCompany", mock.Anything, planhat.Company{"name": "Test 1234 Inc."}).
		Return(success(planhat.MethodPost, "/companies", createdCompany("1234", "Test 1234 Inc.")), nil).Once()

	msg := &hull.AccountUpdateMessage{
		MessageID:       "m1",
		Account:         hull.Profile{"id": "0df9fa5d", "domain": "test1234.io", "name": "Test 1234 Inc."},
		AccountSegments: []hull.Segment{{ID: accountsSegment}},
		Changes:         hull.Changes{IsNew: true},
	}

	require.NoError(t, agent.SendAccountMessages(context.Background(), []*hull.AccountUpdateMessage{msg}, false))

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "GetCompanyByID", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"outgoing.account.success"}, recorder.Events())

	traits := recorder.Traits()
	require.Len(t, traits, 1)
	assert.Equal(t, hull.AccountClaims{ID: "0df9fa5d", Domain: "test1234.io", AnonymousID: "planhat:1234"}, traits[0].Claims)
	assert.Equal(t, "1234", traits[0].Attributes["planhat/id"])
	assert.Equal(t, "2019-09-18T08:16:31.223Z", traits[0].Attributes["planhat/last_updated_at"])
	assert.NotContains(t, traits[0].Attributes, "planhat/shareable")
	assert.Equal(t, hull.SetIfNull("Test 1234 Inc."), traits[0].Attributes["name"])
}

func TestAgent_ScenarioAccountUpdateLicenses(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	remote := createdCompany("1234", "Test 1234 Inc.")
	client.On("GetCompanyByID", mock.Anything, "1234").
		Return(success(planhat.MethodGet, "/companies/:id", remote), nil).Once()
	client.On("UpdateCompany", mock.Anything, planhat.Company{"name": "Test 1234", "id": "1234"}).
		Return(success(planhat.MethodPut, "/companies/:id", createdCompany("1234", "Test 1234")), nil).Once()
	client.On("UpsertLicenses", mock.Anything, []planhat.License{
		{"companyId": "1234", "product": "Seats", "value": 10},
	}).Return(success(planhat.MethodPut, "/licenses", planhat.BulkUpsertResponse{
		Created:     1,
		InsertsKeys: []planhat.KeyRef{{ID: "5e2704aabf07307b89e48d6a"}},
		UpsertedIDs: []string{"5e2704aabf07307b89e48d6a"},
	}), nil).Once()

	msg := &hull.AccountUpdateMessage{
		MessageID: "m1",
		Account: hull.Profile{
			"id":       "0df9fa5d",
			"domain":   "test1234.io",
			"name":     "Test 1234",
			"planhat":  map[string]any{"id": "1234"},
			"licenses": []any{map[string]any{"product": "Seats", "value": 10}},
		},
		AccountSegments: []hull.Segment{{ID: accountsSegment}},
		Changes:         hull.Changes{Account: map[string]any{"name": []any{"Test 1234 Inc.", "Test 1234"}}},
	}

	require.NoError(t, agent.SendAccountMessages(context.Background(), []*hull.AccountUpdateMessage{msg}, false))

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "FindCompanyByExternalID", mock.Anything, mock.Anything)
	assert.Equal(t, []string{"outgoing.account.success", "outgoing.account.licenses.success"}, recorder.Events())
}

func TestAgent_ContactSkippedWithoutRelevantChanges(t *testing.T) {
	journal := new(MockSyncJournal)
	journal.On("Record", mock.Anything, mock.MatchedBy(func(r *integration.SyncRecord) bool {
		return r.Status == integration.SyncStatusSkipped && r.Reason == ReasonNoRelevantChanges && r.MessageID == "m1"
	})).Return(nil).Once()

	agent, client, recorder := newTestAgent(t, agentSettings(), WithJournal("connector-1", journal))

	msg := &hull.UserUpdateMessage{
		MessageID: "m1",
		User: hull.Profile{
			"id":      "u1",
			"email":   "jane@acme.io",
			"planhat": map[string]any{"id": "5d81eb28aeeafc7a74d8f999"},
		},
		Account: hull.Profile{
			"id":          "0df9fa5d",
			"external_id": "vhoih28[hbnjnmwjnjbfoho",
			"name":        "Test 1234 Inc.",
			"planhat":     map[string]any{"id": "1234"},
		},
		Segments: []hull.Segment{{ID: usersSegment, Name: "Test Segment"}},
		Changes:  hull.Changes{User: map[string]any{"last_seen_at": []any{"2019-10-01", "2019-10-02"}}},
	}

	require.NoError(t, agent.SendUserMessages(context.Background(), []*hull.UserUpdateMessage{msg}, false))

	assert.Empty(t, client.Calls)
	assert.Empty(t, recorder.Logs())
	assert.Empty(t, recorder.Traits())
	journal.AssertExpectations(t)
}

// ---------------------------------------------------------------------------
// Contacts and events
// ---------------------------------------------------------------------------

func TestAgent_ContactAlreadyInSync(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	client.On("FindContactByEmail", mock.Anything, "jane@acme.io").
		Return(success(planhat.MethodGet, "/endusers", []planhat.Contact{
			{"_id": "p-1", "email": "jane@acme.io", "name": "Jane"},
		}), nil)

	msg := &hull.UserUpdateMessage{
		MessageID: "m1",
		User:      hull.Profile{"id": "u1", "email": "jane@acme.io", "name": "Jane"},
	}
	require.NoError(t, agent.SendUserMessages(context.Background(), []*hull.UserUpdateMessage{msg}, true))

	client.AssertNotCalled(t, "UpdateContact", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "CreateContact", mock.Anything, mock.Anything)
	require.Len(t, recorder.Logs(), 1)
	assert.Equal(t, "outgoing.user.skip", recorder.Logs()[0].Event)
	assert.Equal(t, map[string]any{"reason": ReasonAlreadyInSync}, recorder.Logs()[0].Payload)
}

func TestAgent_ContactUpdate(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	client.On("FindContactByEmail", mock.Anything, "jane@acme.io").
		Return(success(planhat.MethodGet, "/endusers", []planhat.Contact{
			{"_id": "p-1", "email": "jane@acme.io", "name": "J."},
		}), nil)
	client.On("UpdateContact", mock.Anything, planhat.Contact{"id": "p-1", "email": "jane@acme.io", "name": "Jane", "companyId": nil}).
		Return(success(planhat.MethodPut, "/endusers/:id", planhat.Contact{"_id": "p-1", "email": "jane@acme.io", "name": "Jane"}), nil).Once()

	msg := &hull.UserUpdateMessage{
		MessageID: "m1",
		User:      hull.Profile{"id": "u1", "email": "jane@acme.io", "name": "Jane"},
	}
	require.NoError(t, agent.SendUserMessages(context.Background(), []*hull.UserUpdateMessage{msg}, true))

	client.AssertExpectations(t)
	assert.Equal(t, []string{"outgoing.user.success"}, recorder.Events())
	traits := recorder.Traits()
	require.Len(t, traits, 1)
	assert.Equal(t, "planhat:p-1", traits[0].Claims.(hull.UserClaims).AnonymousID)
}

func TestAgent_RemoteFailureStopsRecord(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	client.On("FindContactByEmail", mock.Anything, "jane@acme.io").
		Return(success(planhat.MethodGet, "/endusers", []planhat.Contact{}), nil)
	client.On("CreateContact", mock.Anything, mock.Anything).
		Return(&planhat.ApiResult[planhat.Contact]{
			Success:  false,
			Method:   planhat.MethodPost,
			Endpoint: "/endusers",
			Record:   map[string]any{"message": "invalid email"},
			Error:    "HTTP 422: invalid email",
		}, nil)

	msg := &hull.UserUpdateMessage{MessageID: "m1", User: hull.Profile{"id": "u1", "email": "jane@acme.io"}}
	require.NoError(t, agent.SendUserMessages(context.Background(), []*hull.UserUpdateMessage{msg}, true))

	logs := recorder.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, "outgoing.user.error", logs[0].Event)
	assert.Equal(t, hullclient.LevelError, logs[0].Level)
	assert.Empty(t, recorder.Traits())
}

func TestAgent_TransportFaultAbortsBatch(t *testing.T) {
	agent, client, _ := newTestAgent(t, agentSettings())

	client.On("FindContactByEmail", mock.Anything, "first@acme.io").
		Return(nil, fmt.Errorf("%w: connection reset", planhat.ErrTransport))

	messages := []*hull.UserUpdateMessage{
		{MessageID: "m1", User: hull.Profile{"email": "first@acme.io"}},
		{MessageID: "m2", User: hull.Profile{"email": "second@acme.io"}},
	}
	err := agent.SendUserMessages(context.Background(), messages, true)

	assert.ErrorIs(t, err, planhat.ErrTransport)
	client.AssertNumberOfCalls(t, "FindContactByEmail", 1)
}

func TestAgent_TracksAllowedEvents(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	client.On("FindContactByEmail", mock.Anything, "jane@acme.io").
		Return(success(planhat.MethodGet, "/endusers", []planhat.Contact{{"_id": "p-1", "email": "jane@acme.io", "name": "Jane"}}), nil)
	client.On("TrackEvent", mock.Anything, planhat.Event{
		Name:   "Jane",
		Email:  "jane@acme.io",
		Action: "Signed up",
		Date:   "2024-03-01T10:00:00Z",
	}).Return(success(planhat.MethodPost, "/analytics/:tenant_id", planhat.Event{Action: "Signed up"}), nil).Once()

	msg := &hull.UserUpdateMessage{
		MessageID: "m1",
		User:      hull.Profile{"id": "u1", "email": "jane@acme.io", "name": "Jane"},
		Events: []hull.Event{
			{Event: "Signed up", CreatedAt: "2024-03-01T10:00:00Z"},
			{Event: "Page viewed", CreatedAt: "2024-03-01T10:01:00Z"},
		},
	}
	require.NoError(t, agent.SendUserMessages(context.Background(), []*hull.UserUpdateMessage{msg}, true))

	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "TrackEvent", 1)

	logs := recorder.Logs()
	require.Len(t, logs, 2)
	assert.Equal(t, "outgoing.user.skip", logs[0].Event)
	assert.Equal(t, "outgoing.user_event.success", logs[1].Event)
	assert.Equal(t, hull.UserClaims{Email: "jane@acme.io"}, logs[1].Claims)
}

func TestAgent_MissingTokenIsSilent(t *testing.T) {
	settings := agentSettings()
	settings.PersonalAccessToken = ""
	agent, client, recorder := newTestAgent(t, settings)

	msg := &hull.UserUpdateMessage{MessageID: "m1", User: hull.Profile{"email": "jane@acme.io"}}
	require.NoError(t, agent.SendUserMessages(context.Background(), []*hull.UserUpdateMessage{msg}, true))
	require.NoError(t, agent.SendAccountMessages(context.Background(), []*hull.AccountUpdateMessage{{Account: hull.Profile{"domain": "acme.io"}}}, true))

	assert.Empty(t, client.Calls)
	assert.Empty(t, recorder.Logs())
}

// ---------------------------------------------------------------------------
// Companies
// ---------------------------------------------------------------------------

func TestAgent_PropagatesCompanyIDWithinBatch(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	client.On("CreateCompany", mock.Anything, planhat.Company{"name": "Acme"}).
		Return(success(planhat.MethodPost, "/companies", planhat.Company{"_id": "c-1", "name": "Acme"}), nil).Once()
	client.On("GetCompanyByID", mock.Anything, "c-1").
		Return(success(planhat.MethodGet, "/companies/:id", planhat.Company{"_id": "c-1", "name": "Acme"}), nil).Once()

	account := hull.Profile{"id": "a1", "domain": "acme.io", "name": "Acme"}
	messages := []*hull.AccountUpdateMessage{
		{MessageID: "m1", Account: account},
		{MessageID: "m2", Account: account},
	}
	require.NoError(t, agent.SendAccountMessages(context.Background(), messages, true))

	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "CreateCompany", 1)
	assert.Equal(t, []string{"outgoing.account.success", "outgoing.account.skip"}, recorder.Events())
}

func TestAgent_PropagatesCompanyIDWithoutMessageIDs(t *testing.T) {
	agent, client, recorder := newTestAgent(t, agentSettings())

	client.On("CreateCompany", mock.Anything, planhat.Company{"name": "Acme"}).
		Return(success(planhat.MethodPost, "/companies", planhat.Company{"_id": "c-1", "name": "Acme"}), nil).Once()
	client.On("GetCompanyByID", mock.Anything, "c-1").
		Return(success(planhat.MethodGet, "/companies/:id", planhat.Company{"_id": "c-1", "name": "Acme"}), nil).Once()

	account := hull.Profile{"id": "a1", "domain": "acme.io", "name": "Acme"}
	messages := []*hull.AccountUpdateMessage{
		{Account: account},
		{Account: account},
	}
	require.NoError(t, agent.SendAccountMessages(context.Background(), messages, true))

	client.AssertExpectations(t)
	client.AssertNumberOfCalls(t, "CreateCompany", 1)
	assert.Equal(t, []string{"outgoing.account.success", "outgoing.account.skip"}, recorder.Events())
}

func TestAgent_FindCompanyFallsBackToRemoteID(t *testing.T) {
	agent, client, _ := newTestAgent(t, agentSettings())

	client.On("FindCompanyByExternalID", mock.Anything, "ext-1").
		Return(&planhat.ApiResult[[]planhat.Company]{Success: false, Error: "HTTP 500: Internal Server Error"}, nil).Once()
	client.On("GetCompanyByID", mock.Anything, "c-1").
		Return(success(planhat.MethodGet, "/companies/:id", planhat.Company{"_id": "c-1", "name": "Acme"}), nil).Once()

	msg := &hull.AccountUpdateMessage{
		MessageID: "m1",
		Account:   hull.Profile{"id": "a1", "external_id": "ext-1", "name": "Acme", "planhat": map[string]any{"id": "c-1"}},
	}
	require.NoError(t, agent.SendAccountMessages(context.Background(), []*hull.AccountUpdateMessage{msg}, true))

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "CreateCompany", mock.Anything, mock.Anything)
}

func TestAgent_ExternalIDLookupHitSkipsRemoteIDLookup(t *testing.T) {
	agent, client, _ := newTestAgent(t, agentSettings())

	client.On("FindCompanyByExternalID", mock.Anything, "ext-1").
		Return(success(planhat.MethodGet, "/companies", []planhat.Company{}), nil).Once()
	client.On("CreateCompany", mock.Anything, mock.Anything).
		Return(success(planhat.MethodPost, "/companies", planhat.Company{"_id": "c-2", "name": "Acme"}), nil).Once()

	msg := &hull.AccountUpdateMessage{
		MessageID: "m1",
		Account:   hull.Profile{"id": "a1", "external_id": "ext-1", "name": "Acme", "planhat": map[string]any{"id": "stale"}},
	}
	require.NoError(t, agent.SendAccountMessages(context.Background(), []*hull.AccountUpdateMessage{msg}, true))

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "GetCompanyByID", mock.Anything, mock.Anything)
}

func TestAgent_UserBatchCreatesMissingCompanies(t *testing.T) {
	settings := agentSettings()
	// Dictionary-driven creation resolves mappings by field label.
	settings.AccountAttributesOutbound = []integration.MappingEntry{{HullFieldName: "name", ServiceFieldName: "Name"}}
	agent, client, recorder := newTestAgent(t, settings)

	client.On("FindCompanyByExternalID", mock.Anything, "ext-1").
		Return(success(planhat.MethodGet, "/companies", []planhat.Company{}), nil).Once()
	client.On("CreateCompany", mock.Anything, planhat.Company{"name": "Acme", "externalId": "ext-1"}).
		Return(success(planhat.MethodPost, "/companies", planhat.Company{"_id": "c-1", "name": "Acme"}), nil).Once()
	client.On("FindContactByEmail", mock.Anything, mock.Anything).
		Return(success(planhat.MethodGet, "/endusers", []planhat.Contact{}), nil)
	client.On("CreateContact", mock.Anything, mock.MatchedBy(func(c planhat.Contact) bool { return c.CompanyID() == "c-1" })).
		Return(success(planhat.MethodPost, "/endusers", planhat.Contact{"_id": "p-1"}), nil).Twice()

	account := hull.Profile{"id": "a1", "external_id": "ext-1", "name": "Acme"}
	messages := []*hull.UserUpdateMessage{
		{MessageID: "m1", User: hull.Profile{"email": "a@acme.io"}, Account: account},
		{MessageID: "m2", User: hull.Profile{"email": "b@acme.io"}, Account: account},
	}
	require.NoError(t, agent.SendUserMessages(context.Background(), messages, true))

	client.AssertExpectations(t)
	assert.Equal(t, []string{"outgoing.account.success", "outgoing.user.success", "outgoing.user.success"}, recorder.Events())
}

func TestAgent_UnresolvedCompanyLeavesContactUnlinked(t *testing.T) {
	agent, client, _ := newTestAgent(t, agentSettings())

	client.On("FindCompanyByExternalID", mock.Anything, "ext-1").
		Return(&planhat.ApiResult[[]planhat.Company]{Success: false, Error: "HTTP 503: Service Unavailable"}, nil).Once()
	client.On("FindContactByEmail", mock.Anything, "a@acme.io").
		Return(success(planhat.MethodGet, "/endusers", []planhat.Contact{}), nil)
	client.On("CreateContact", mock.Anything, planhat.Contact{"email": "a@acme.io", "companyId": nil}).
		Return(success(planhat.MethodPost, "/endusers", planhat.Contact{"_id": "p-1"}), nil).Once()

	messages := []*hull.UserUpdateMessage{
		{MessageID: "m1", User: hull.Profile{"email": "a@acme.io"}, Account: hull.Profile{"id": "a1", "external_id": "ext-1"}},
	}
	require.NoError(t, agent.SendUserMessages(context.Background(), messages, true))

	client.AssertExpectations(t)
	client.AssertNotCalled(t, "CreateCompany", mock.Anything, mock.Anything)
}

// ---------------------------------------------------------------------------
// Randomized properties
// ---------------------------------------------------------------------------

func TestAgent_NoWriteOnSkip(t *testing.T) {
	faker := gofakeit.New(7)

	for round := 0; round < 20; round++ {
		agent, client, recorder := newTestAgent(t, agentSettings())

		n := faker.Number(1, 15)
		messages := make([]*hull.UserUpdateMessage, 0, n)
		for i := 0; i < n; i++ {
			messages = append(messages, &hull.UserUpdateMessage{
				MessageID: faker.UUID(),
				User:      hull.Profile{"id": faker.UUID(), "email": faker.Email(), "name": faker.Name()},
				Account:   hull.Profile{"id": faker.UUID(), "external_id": faker.UUID()},
				Segments:  []hull.Segment{{ID: faker.UUID()}},
				Changes:   hull.Changes{IsNew: faker.Bool()},
			})
		}

		require.NoError(t, agent.SendUserMessages(context.Background(), messages, false))
		assert.Empty(t, client.Calls, "round %d", round)
		assert.Empty(t, recorder.Traits(), "round %d", round)
	}
}

func TestAgent_CompanyCreatedAtMostOncePerBatch(t *testing.T) {
	faker := gofakeit.New(11)

	for round := 0; round < 10; round++ {
		settings := agentSettings()
		settings.AccountAttributesOutbound = []integration.MappingEntry{{HullFieldName: "name", ServiceFieldName: "Name"}}
		agent, client, _ := newTestAgent(t, settings)

		accounts := make([]hull.Profile, faker.Number(1, 4))
		for i := range accounts {
			externalID := faker.UUID()
			accounts[i] = hull.Profile{"id": faker.UUID(), "external_id": externalID, "name": faker.Company()}

			client.On("FindCompanyByExternalID", mock.Anything, externalID).
				Return(success(planhat.MethodGet, "/companies", []planhat.Company{}), nil).Once()
			client.On("CreateCompany", mock.Anything, mock.MatchedBy(func(c planhat.Company) bool { return c.ExternalID() == externalID })).
				Return(success(planhat.MethodPost, "/companies", planhat.Company{"_id": "c-" + externalID}), nil).Once()
		}

		expectedCompany := map[string]string{}
		users := faker.Number(len(accounts), 20)
		messages := make([]*hull.UserUpdateMessage, 0, users)
		for i := 0; i < users; i++ {
			account := accounts[faker.Number(0, len(accounts)-1)]
			email := fmt.Sprintf("%d.%s", i, faker.Email())
			expectedCompany[email] = "c-" + account.ExternalID()
			messages = append(messages, &hull.UserUpdateMessage{
				MessageID: faker.UUID(),
				User:      hull.Profile{"email": email},
				Account:   account,
			})
		}

		client.On("FindContactByEmail", mock.Anything, mock.Anything).
			Return(success(planhat.MethodGet, "/endusers", []planhat.Contact{}), nil)
		client.On("CreateContact", mock.Anything, mock.Anything).
			Return(success(planhat.MethodPost, "/endusers", planhat.Contact{"_id": "p"}), nil)

		require.NoError(t, agent.SendUserMessages(context.Background(), messages, true))

		distinct := map[string]bool{}
		for _, msg := range messages {
			distinct[msg.Account.ID()] = true
		}
		client.AssertNumberOfCalls(t, "CreateCompany", len(distinct))

		for _, call := range client.Calls {
			if call.Method != "CreateContact" {
				continue
			}
			contact := call.Arguments.Get(1).(planhat.Contact)
			assert.Equal(t, expectedCompany[contact.Email()], contact.CompanyID(), "round %d", round)
		}
	}
}
