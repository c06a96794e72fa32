package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "shhh-connector-secret"

func signClaims(t *testing.T, method jwt.SigningMethod, key any, claims *HullClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)

	token, err := verifier.Sign("acme.hullapp.io", "5c9e3f", time.Minute)
	require.NoError(t, err)

	claims, err := verifier.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "acme.hullapp.io", claims.Organization)
	assert.Equal(t, "5c9e3f", claims.ConnectorID)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestTokenVerifier_Rejections(t *testing.T) {
	verifier := NewTokenVerifier(testSecret)
	valid := func() *HullClaims {
		return &HullClaims{Organization: "acme.hullapp.io", ConnectorID: "5c9e3f"}
	}

	tests := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "garbage",
			token:   func(*testing.T) string { return "not-a-jwt" },
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong secret",
			token: func(t *testing.T) string {
				return signClaims(t, jwt.SigningMethodHS256, []byte("other"), valid())
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "other hmac strength",
			token: func(t *testing.T) string {
				return signClaims(t, jwt.SigningMethodHS512, []byte(testSecret), valid())
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "expired",
			token: func(t *testing.T) string {
				claims := valid()
				claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
				return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), claims)
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func(t *testing.T) string {
				claims := valid()
				claims.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
				return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), claims)
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "missing organization",
			token: func(t *testing.T) string {
				return signClaims(t, jwt.SigningMethodHS256, []byte(testSecret), &HullClaims{ConnectorID: "5c9e3f"})
			},
			wantErr: ErrInvalidClaims,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.Verify(tt.token(t))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, claims)
		})
	}
}

func TestTokenVerifier_WithoutSecret(t *testing.T) {
	verifier := NewTokenVerifier("")

	_, err := verifier.Verify("anything")
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = verifier.Sign("acme.hullapp.io", "5c9e3f", 0)
	assert.ErrorIs(t, err, ErrMissingSecret)
}
