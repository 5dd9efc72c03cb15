package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"lender-ledger/internal/pkg/apperrors"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelSMS, ChannelWhatsApp:
		return c, nil
	}
	return "", apperrors.NewValidationError("channel", fmt.Sprintf("unsupported notification channel %q", s))
}

// Sink delivers a message to a recipient and returns the provider's delivery id.
type Sink interface {
	Send(ctx context.Context, channel Channel, recipient, message string) (string, error)
}

// LogSink is the mock provider: it logs the message and invents a delivery id.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With("component", "LogSink")}
}

func (s *LogSink) Send(ctx context.Context, channel Channel, recipient, message string) (string, error) {
	id := fmt.Sprintf("%s-%s", channel, uuid.NewString())
	s.logger.InfoContext(ctx, "Mock message sent",
		slog.String("channel", string(channel)),
		slog.String("recipient", recipient),
		slog.String("message", message),
		slog.String("deliveryID", id))
	return id, nil
}

// HTTPSink posts messages to a gateway that answers with {"id": "..."}.
type HTTPSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPSink(url string, timeout time.Duration, logger *slog.Logger) *HTTPSink {
	return &HTTPSink{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "HTTPSink"),
	}
}

type sendRequest struct {
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Message   string  `json:"message"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (s *HTTPSink) Send(ctx context.Context, channel Channel, recipient, message string) (string, error) {
	body, err := json.Marshal(sendRequest{Channel: channel, Recipient: recipient, Message: message})
	if err != nil {
		return "", fmt.Errorf("failed to encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode gateway response: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("gateway response carried no delivery id")
	}

	s.logger.DebugContext(ctx, "Message accepted by gateway", slog.String("channel", string(channel)), slog.String("deliveryID", out.ID))
	return out.ID, nil
}
