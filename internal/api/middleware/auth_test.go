package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lender-ledger/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func tenantEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenant, ok := TenantFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(tenant))
	})
}

func TestAuthMiddleware_Enabled(t *testing.T) {
	handler := AuthMiddleware(config.AuthConfig{Enabled: true, JWTSecret: testSecret}, testLogger)(tenantEcho())

	valid := signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "tenant-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "Valid token", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "tenant-42"},
		{name: "Lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusOK, wantBody: "tenant-42"},
		{name: "Missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "Wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "Garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{
			name: "Wrong secret",
			header: "Bearer " + signToken(t, "other", jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject: "tenant-42", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Expired token",
			header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject: "tenant-42", ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Missing expiry",
			header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject: "tenant-42",
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Missing subject",
			header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Unexpected algorithm",
			header: "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, jwt.RegisteredClaims{
				Subject: "tenant-42", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}),
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/loans", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized {
				assert.JSONEq(t, `{"error":{"message":"Access denied, no valid token provided"}}`, rec.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_DisabledUsesTenantHeader(t *testing.T) {
	handler := AuthMiddleware(config.AuthConfig{Enabled: false}, testLogger)(tenantEcho())

	t.Run("Header present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/loans", nil)
		req.Header.Set(TenantHeader, "tenant-7")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tenant-7", rec.Body.String())
	})

	t.Run("Header missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/loans", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTenantFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, ok := TenantFromContext(req.Context())
	assert.False(t, ok)

	_, ok = TenantFromContext(WithTenant(req.Context(), ""))
	assert.False(t, ok)

	id, ok := TenantFromContext(WithTenant(req.Context(), "t1"))
	assert.True(t, ok)
	assert.Equal(t, "t1", id)
}
