package event

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// WebhookClient posts repayment notifications to an external URL. Callers
// treat failures as best effort.
type WebhookClient struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewWebhookClient(url string, timeout time.Duration, logger *slog.Logger) *WebhookClient {
	return &WebhookClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger.With("component", "WebhookClient"),
	}
}

func (c *WebhookClient) PostRepayment(ctx context.Context, payload RepaymentWebhook) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "Webhook delivered", slog.String("loanID", payload.LoanID.String()), slog.Int("status", resp.StatusCode))
	return nil
}
