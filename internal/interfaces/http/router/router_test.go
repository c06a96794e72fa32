package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hull-connectors/planhat/internal/interfaces/http/dto"
	"github.com/hull-connectors/planhat/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	t.Run("root by default", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
		NewRouter(engine).Register(group).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
	})

	t.Run("base path", func(t *testing.T) {
		engine := gin.New()
		group := NewDomainGroup("test", "").GET("/ping", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})
		NewRouter(engine, WithBasePath("/connector")).Register(group).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connector/ping", nil))
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}

func TestDomainGroup(t *testing.T) {
	g := NewDomainGroup("catalog", "/catalog")
	assert.Equal(t, "catalog", g.Name())
	assert.Equal(t, "/catalog", g.Prefix())

	t.Run("middleware applies to the group only", func(t *testing.T) {
		engine := gin.New()
		guarded := NewDomainGroup("guarded", "").
			Use(func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }).
			POST("/private", func(c *gin.Context) { c.Status(http.StatusOK) })
		open := NewDomainGroup("open", "").
			GET("/public", func(c *gin.Context) { c.Status(http.StatusOK) })
		NewRouter(engine).Register(guarded).Register(open).Setup()

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/private", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestConnectorRoutes(t *testing.T) {
	schemas, err := dto.NewSchemaValidator()
	require.NoError(t, err)

	engine := gin.New()
	var authCalls int
	NewRouter(engine).
		Register(HealthRoutes(handler.NewHealthHandler("planhat-connector", "test", nil))).
		Register(ConnectorRoutes(
			handler.NewNotificationHandler(nil, schemas, handler.ConnectorDefaults{}),
			handler.NewStatusHandler(nil, schemas, handler.ConnectorDefaults{}),
			func(c *gin.Context) { authCalls++ },
		)).
		Setup()

	routes := map[string]bool{}
	for _, r := range engine.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"POST /smart-notifier",
		"POST /batch",
		"GET /status",
		"POST /status",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, PathHealth, nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, authCalls)

	// Schema rejection happens before the nil services are reached
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, PathBatch, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, authCalls)
}
