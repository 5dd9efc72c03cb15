package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredLogger(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "Success logs at info", status: http.StatusAccepted, wantLevel: "INFO"},
		{name: "Client error logs at info", status: http.StatusNotFound, wantLevel: "INFO"},
		{name: "Server error logs at error", status: http.StatusInternalServerError, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			})

			req := httptest.NewRequest(http.MethodGet, "/loans?status=overdue", nil)
			req.RemoteAddr = "192.0.2.1:12345"
			req.Header.Set("User-Agent", "TestAgent/1.0")
			req = req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, "req-123"))
			rec := httptest.NewRecorder()

			StructuredLogger(logger)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, "Served request", entry["msg"])
			assert.Equal(t, "GET", entry["method"])
			assert.Equal(t, "/loans", entry["path"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, float64(4), entry["bytes_written"])
			assert.Equal(t, "req-123", entry["request_id"])
			assert.Equal(t, "TestAgent/1.0", entry["user_agent"])
			assert.Equal(t, "unmatched", entry["route"])
			assert.Contains(t, entry, "latency_ms")
		})
	}
}

func TestStructuredLogger_HealthAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})
	rec := httptest.NewRecorder()
	StructuredLogger(logger)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, buf.String())
}
