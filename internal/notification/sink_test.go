package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lender-ledger/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	c, err := ParseChannel(" WhatsApp ")
	require.NoError(t, err)
	assert.Equal(t, ChannelWhatsApp, c)

	c, err = ParseChannel("sms")
	require.NoError(t, err)
	assert.Equal(t, ChannelSMS, c)

	_, err = ParseChannel("pigeon")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestLogSink_Send(t *testing.T) {
	sink := NewLogSink(testLogger)

	id, err := sink.Send(context.Background(), ChannelWhatsApp, "0123456789", "hello")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "whatsapp-"), id)
}

func TestHTTPSink_Send(t *testing.T) {
	ctx := context.Background()

	t.Run("Returns gateway delivery id", func(t *testing.T) {
		var got sendRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"sid-42"}`))
		}))
		defer server.Close()

		id, err := NewHTTPSink(server.URL, time.Second, testLogger).Send(ctx, ChannelSMS, "0123456789", "pay up")

		require.NoError(t, err)
		assert.Equal(t, "sid-42", id)
		assert.Equal(t, sendRequest{Channel: ChannelSMS, Recipient: "0123456789", Message: "pay up"}, got)
	})

	t.Run("Gateway error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "quota exceeded", http.StatusTooManyRequests)
		}))
		defer server.Close()

		_, err := NewHTTPSink(server.URL, time.Second, testLogger).Send(ctx, ChannelSMS, "0123456789", "x")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "quota exceeded")
	})

	t.Run("Missing delivery id", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := NewHTTPSink(server.URL, time.Second, testLogger).Send(ctx, ChannelSMS, "0123456789", "x")

		assert.ErrorContains(t, err, "no delivery id")
	})
}
