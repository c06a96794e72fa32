package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HullTokenHeader carries the platform token on incoming notifications
const HullTokenHeader = "X-Hull-Token"

// Token errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrMissingSecret    = errors.New("token secret is not configured")
)

// HullClaims are the claims the platform signs into X-Hull-Token
type HullClaims struct {
	jwt.RegisteredClaims
	Organization string `json:"organization"`
	ConnectorID  string `json:"id"`
}

// TokenVerifier checks platform tokens signed with the shared secret (HS256)
type TokenVerifier struct {
	secret []byte
	leeway time.Duration
}

// NewTokenVerifier creates a verifier for the shared secret
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		leeway: 30 * time.Second,
	}
}

// Verify parses tokenString and returns its claims. The organization and
// connector id claims are mandatory.
func (v *TokenVerifier) Verify(tokenString string) (*HullClaims, error) {
	if len(v.secret) == 0 {
		return nil, ErrMissingSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &HullClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(v.leeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*HullClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Organization == "" || claims.ConnectorID == "" {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// Sign issues a token for the given connector, valid for ttl. A zero ttl
// issues a token without expiry, as the platform does for connector configs.
func (v *TokenVerifier) Sign(organization, connectorID string, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", ErrMissingSecret
	}

	now := time.Now()
	claims := &HullClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
		Organization: organization,
		ConnectorID:  connectorID,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
