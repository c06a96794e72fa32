package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	appintegration "github.com/hull-connectors/planhat/internal/application/integration"
	"github.com/hull-connectors/planhat/internal/domain/integration"
	"github.com/hull-connectors/planhat/internal/domain/planhat"
	"github.com/hull-connectors/planhat/internal/infrastructure/logger"
	"github.com/hull-connectors/planhat/internal/interfaces/http/dto"
	"github.com/hull-connectors/planhat/internal/interfaces/http/middleware"
)

// NotificationDispatcher runs the outbound pipelines
type NotificationDispatcher interface {
	HandleUserUpdate(ctx context.Context, n *appintegration.UserNotification) (*appintegration.NotificationResult, error)
	HandleAccountUpdate(ctx context.Context, n *appintegration.AccountNotification) (*appintegration.NotificationResult, error)
}

// ConnectorDefaults fill platform credentials a notification does not carry
type ConnectorDefaults struct {
	Organization string
	Secret       string
}

// NotificationHandler serves the real-time and batch notifier endpoints
type NotificationHandler struct {
	BaseHandler
	service  NotificationDispatcher
	schemas  *dto.SchemaValidator
	defaults ConnectorDefaults
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(service NotificationDispatcher, schemas *dto.SchemaValidator, defaults ConnectorDefaults) *NotificationHandler {
	return &NotificationHandler{
		service:  service,
		schemas:  schemas,
		defaults: defaults,
	}
}

// SmartNotifier handles POST /smart-notifier. Messages go through segment
// and change filters and are deduplicated.
func (h *NotificationHandler) SmartNotifier(c *gin.Context) {
	h.handle(c, false)
}

// Batch handles POST /batch. Every message is sent.
func (h *NotificationHandler) Batch(c *gin.Context) {
	h.handle(c, true)
}

func (h *NotificationHandler) handle(c *gin.Context, isBatch bool) {
	req, connector, ok := bindConnectorRequest(c, &h.BaseHandler, h.schemas, dto.SchemaNotification, h.defaults)
	if !ok {
		return
	}

	ctx, log := logger.WithConnectorID(c.Request.Context(), logger.GetGinLogger(c), connector.ID)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("connector_id", connector.ID),
		attribute.String("channel", req.Channel),
		attribute.Bool("is_batch", isBatch),
	)

	var (
		result *appintegration.NotificationResult
		err    error
	)
	switch req.Channel {
	case appintegration.ChannelUserUpdate:
		messages, decodeErr := req.UserMessages()
		if decodeErr != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, decodeErr.Error())
			return
		}
		result, err = h.service.HandleUserUpdate(ctx, &appintegration.UserNotification{
			Connector: connector,
			Messages:  messages,
			IsBatch:   isBatch,
		})
	case appintegration.ChannelAccountUpdate:
		messages, decodeErr := req.AccountMessages()
		if decodeErr != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, decodeErr.Error())
			return
		}
		result, err = h.service.HandleAccountUpdate(ctx, &appintegration.AccountNotification{
			Connector: connector,
			Messages:  messages,
			IsBatch:   isBatch,
		})
	default:
		h.Error(c, http.StatusBadRequest, dto.ErrCodeUnknownChannel, integration.ErrUnknownChannel.Error()+": "+req.Channel)
		return
	}

	if err != nil {
		h.handleDispatchError(c, log, err)
		return
	}

	log.Debug("notification processed",
		zap.String("channel", result.Channel),
		zap.Int("received", result.Received),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("dispatched", result.Dispatched),
		zap.Bool("is_batch", isBatch),
	)
	h.Success(c, dto.NotificationResponse{FlowControl: dto.NextFlowControl(), Result: result})
}

// handleDispatchError maps pipeline errors. A transport fault asks the
// platform to redeliver.
func (h *NotificationHandler) handleDispatchError(c *gin.Context, log *zap.Logger, err error) {
	_ = c.Error(err)
	switch {
	case errors.Is(err, integration.ErrInvalidSettings):
		log.Warn("notification rejected, invalid settings", zap.Error(err))
		h.ErrorWithCode(c, dto.ErrCodeNotConfigured, err.Error())
	case errors.Is(err, planhat.ErrTransport):
		log.Error("notification aborted, CRM unreachable", zap.Error(err))
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeUnavailable, err.Error(), getRequestID(c))
		resp.Data = dto.NotificationResponse{FlowControl: dto.RetryFlowControl()}
		c.JSON(http.StatusServiceUnavailable, resp)
	default:
		log.Error("notification failed", zap.Error(err))
		h.InternalError(c, "An unexpected error occurred")
	}
}

// bindConnectorRequest reads, schema-checks and decodes a platform request
// and validates the connector it addresses. It writes the error response
// and returns false on failure.
func bindConnectorRequest(
	c *gin.Context,
	h *BaseHandler,
	schemas *dto.SchemaValidator,
	schema string,
	defaults ConnectorDefaults,
) (*dto.NotificationRequest, *integration.Connector, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
			return nil, nil, false
		}
		h.BadRequest(c, "Failed to read request body")
		return nil, nil, false
	}

	if err := schemas.Validate(schema, body); err != nil {
		var schemaErr *dto.SchemaError
		switch {
		case errors.As(err, &schemaErr):
			h.ValidationError(c, dto.ErrCodeValidationSchema, "Request body does not match the notification schema", schemaErr.Details)
		case errors.Is(err, dto.ErrInvalidJSON):
			h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, err.Error())
		default:
			h.InternalError(c, err.Error())
		}
		return nil, nil, false
	}

	var req dto.NotificationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, err.Error())
		return nil, nil, false
	}

	organization := defaults.Organization
	claims := middleware.GetHullClaims(c)
	if claims != nil {
		organization = claims.Organization
		if req.Connector.ID == "" && req.Configuration.ID == "" {
			req.Connector.ID = claims.ConnectorID
		}
	}
	connector := req.ToConnector(organization, defaults.Secret)
	if claims != nil && claims.ConnectorID != connector.ID {
		h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, "Token was issued for another connector")
		return nil, nil, false
	}

	if err := connector.Validate(); err != nil {
		middleware.HandleValidationError(c, err)
		return nil, nil, false
	}
	return &req, connector, true
}
