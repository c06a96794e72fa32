package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hull-connectors/planhat/internal/interfaces/http/handler"
)

// Route paths
const (
	PathHealth        = "/health"
	PathSmartNotifier = "/smart-notifier"
	PathBatch         = "/batch"
	PathStatus        = "/status"
)

// HealthRoutes serves the unauthenticated health check
func HealthRoutes(h *handler.HealthHandler) *DomainGroup {
	return NewDomainGroup("health", "").
		GET(PathHealth, h.Health)
}

// ConnectorRoutes serves the endpoints the platform calls. platformAuth runs
// before every handler of the group.
func ConnectorRoutes(
	notifications *handler.NotificationHandler,
	status *handler.StatusHandler,
	platformAuth ...gin.HandlerFunc,
) *DomainGroup {
	return NewDomainGroup("connector", "").
		Use(platformAuth...).
		POST(PathSmartNotifier, notifications.SmartNotifier).
		POST(PathBatch, notifications.Batch).
		Handle([]string{http.MethodGet, http.MethodPost}, PathStatus, status.GetStatus)
}
