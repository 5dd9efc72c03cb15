package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"lender-ledger/internal/api/handler/dto"
)

type WebhookHandler struct {
	logger *slog.Logger
}

func NewWebhookHandler(l *slog.Logger) *WebhookHandler {
	return &WebhookHandler{logger: l.With("component", "WebhookHandler")}
}

// Repayment handles POST /webhook/repayment
// @Summary Receive a repayment webhook
// @Description Accepts repayment notifications from an external payment provider and logs them.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param payload body object true "Provider payload"
// @Success 200 {object} dto.MessageResponse "Webhook received"
// @Failure 400 {object} dto.ErrorResponse "Malformed payload"
// @Router /webhook/repayment [post]
func (h *WebhookHandler) Repayment(w http.ResponseWriter, r *http.Request) {
	var payload json.RawMessage
	if err := decodeJSON(w, r, &payload); err != nil {
		h.logger.WarnContext(r.Context(), "Rejected malformed webhook payload", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Repayment webhook received", slog.String("payload", string(payload)))
	respondJSON(w, http.StatusOK, dto.MessageResponse{Message: "Webhook received"})
}
