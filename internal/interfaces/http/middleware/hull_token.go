package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hull-connectors/planhat/internal/infrastructure/auth"
	"github.com/hull-connectors/planhat/internal/infrastructure/logger"
	"github.com/hull-connectors/planhat/internal/interfaces/http/dto"
)

// HullClaimsKey stores the verified platform claims in the gin context
const HullClaimsKey = "hull_claims"

// HullTokenConfig holds configuration for the platform token middleware
type HullTokenConfig struct {
	Verifier *auth.TokenVerifier
	// Required rejects requests without a token. When false, a missing token
	// passes and a present one is still verified.
	Required bool
	// SkipPaths are paths that never carry a token
	SkipPaths []string
	Logger    *zap.Logger
}

// HullToken verifies the X-Hull-Token header and stores its claims
func HullToken(cfg HullTokenConfig) gin.HandlerFunc {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		token := c.GetHeader(auth.HullTokenHeader)
		if token == "" {
			if cfg.Required {
				abortUnauthorized(c, cfg.Logger, auth.ErrInvalidToken, "Missing "+auth.HullTokenHeader+" header")
				return
			}
			c.Next()
			return
		}

		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			abortUnauthorized(c, cfg.Logger, err, "Token validation failed")
			return
		}

		c.Set(HullClaimsKey, claims)
		ctx, _ := logger.WithConnectorID(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.ConnectorID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetHullClaims returns the verified claims, or nil when the request carried no token
func GetHullClaims(c *gin.Context) *auth.HullClaims {
	if v, ok := c.Get(HullClaimsKey); ok {
		if claims, ok := v.(*auth.HullClaims); ok {
			return claims
		}
	}
	return nil
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("platform token rejected",
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", GetRequestID(c)),
	)

	code := dto.ErrCodeUnauthorized
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code = dto.ErrCodeTokenExpired
		message = "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrTokenNotYetValid):
		code = dto.ErrCodeTokenInvalid
	case errors.Is(err, auth.ErrMissingSecret):
		message = "Token verification is not configured"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
