package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appintegration "github.com/hull-connectors/planhat/internal/application/integration"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/infrastructure/logger"
	"github.com/hull-connectors/planhat/internal/interfaces/http/dto"
)

// StatusReporter checks the settings and recent outcomes of a connector
type StatusReporter interface {
	GetStatus(ctx context.Context, connector *integration.Connector) (*appintegration.StatusResponse, error)
}

// StatusHandler serves the connector status check
type StatusHandler struct {
	BaseHandler
	service  StatusReporter
	schemas  *dto.SchemaValidator
	defaults ConnectorDefaults
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(service StatusReporter, schemas *dto.SchemaValidator, defaults ConnectorDefaults) *StatusHandler {
	return &StatusHandler{
		service:  service,
		schemas:  schemas,
		defaults: defaults,
	}
}

// GetStatus handles /status. The platform sends the connector envelope in
// the body, so the route is served for both GET and POST.
func (h *StatusHandler) GetStatus(c *gin.Context) {
	_, connector, ok := bindConnectorRequest(c, &h.BaseHandler, h.schemas, dto.SchemaStatus, h.defaults)
	if !ok {
		return
	}

	ctx, _ := logger.WithConnectorID(c.Request.Context(), logger.GetGinLogger(c), connector.ID)
	status, err := h.service.GetStatus(ctx, connector)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, status)
}
