package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	appintegration "github.com/hull-connectors/planhat/internal/application/integration"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/interfaces/http/dto"
	"github.com/hull-connectors/planhat/internal/interfaces/http/middleware"
)

// MockStatusReporter is a mock implementation of StatusReporter
type MockStatusReporter struct {
	mock.Mock
}

func (m *MockStatusReporter) GetStatus(ctx context.Context, connector *integration.Connector) (*appintegration.StatusResponse, error) {
	args := m.Called(ctx, connector)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appintegration.StatusResponse), args.Error(1)
}

func newStatusRouter(t *testing.T, svc StatusReporter) *gin.Engine {
	t.Helper()
	schemas, err := dto.NewSchemaValidator()
	require.NoError(t, err)

	h := NewStatusHandler(svc, schemas, ConnectorDefaults{})
	router := gin.New()
	router.Use(middleware.RequestID())
	router.GET("/status", h.GetStatus)
	router.POST("/status", h.GetStatus)
	return router
}

func TestStatusHandler_GetStatus(t *testing.T) {
	body := `{"connector": {"id": "c-1", "private_settings": {"personal_acccess_token": "pat"}}}`

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		t.Run(method, func(t *testing.T) {
			svc := new(MockStatusReporter)
			svc.On("GetStatus", mock.Anything, mock.MatchedBy(func(c *integration.Connector) bool {
				return c.ID == "c-1" && c.Settings.CanCommunicateWithAPI()
			})).Return(&appintegration.StatusResponse{
				ConnectorID: "c-1",
				Status:      integration.ConnectorStatusWarning,
				Messages:    []string{integration.StatusMessageNoContactSegments},
			}, nil)

			req := httptest.NewRequest(method, "/status", strings.NewReader(body))
			w := httptest.NewRecorder()
			newStatusRouter(t, svc).ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			data := decodeResponse(t, w).Data.(map[string]any)
			assert.Equal(t, "warning", data["status"])
			assert.Equal(t, "c-1", data["connector_id"])
			svc.AssertExpectations(t)
		})
	}
}

func TestStatusHandler_Errors(t *testing.T) {
	t.Run("missing connector", func(t *testing.T) {
		svc := new(MockStatusReporter)
		req := httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		newStatusRouter(t, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeValidationSchema, decodeResponse(t, w).Error.Code)
		svc.AssertNotCalled(t, "GetStatus", mock.Anything, mock.Anything)
	})

	t.Run("service failure", func(t *testing.T) {
		svc := new(MockStatusReporter)
		svc.On("GetStatus", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		req := httptest.NewRequest(http.MethodPost, "/status", strings.NewReader(`{"connector": {"id": "c-1"}}`))
		w := httptest.NewRecorder()
		newStatusRouter(t, svc).ServeHTTP(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
