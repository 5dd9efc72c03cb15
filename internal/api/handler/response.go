package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"lender-ledger/internal/api/handler/dto"
	"lender-ledger/internal/api/middleware"
	"lender-ledger/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: no request body", apperrors.ErrInvalidArgument)
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", apperrors.ErrInvalidArgument, err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, detail := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Default().Error("Unhandled internal error", "error", err)
	}
	respondJSON(w, status, dto.ErrorResponse{Error: detail})
}

func errorStatus(err error) (int, dto.ErrorDetail) {
	var overpayment *apperrors.OverpaymentError
	var validationError *apperrors.ValidationError

	switch {
	case errors.As(err, &overpayment):
		remaining := dto.FormatMoney(overpayment.Remaining)
		return http.StatusBadRequest, dto.ErrorDetail{Message: overpayment.Error(), Remaining: &remaining}
	case errors.As(err, &validationError):
		return http.StatusBadRequest, dto.ErrorDetail{Message: validationError.Message, Field: validationError.Field}
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, dto.ErrorDetail{Message: err.Error()}
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, dto.ErrorDetail{Message: err.Error()}
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, dto.ErrorDetail{Message: err.Error()}
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		return http.StatusConflict, dto.ErrorDetail{Message: err.Error()}
	}
	return http.StatusInternalServerError, dto.ErrorDetail{Message: "An unexpected error occurred."}
}

func tenantID(r *http.Request) (string, error) {
	id, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		return "", fmt.Errorf("%w: no tenant on request", apperrors.ErrUnauthenticated)
	}
	return id, nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("%w: %s not found in URL path", apperrors.ErrInvalidArgument, name)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError(name, fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

// logLevelFor keeps expected client errors out of the error log.
func logLevelFor(err error) slog.Level {
	status, _ := errorStatus(err)
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	return slog.LevelWarn
}
