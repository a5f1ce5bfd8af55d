package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/middleware/trace"
	"fxledger/internal/storage"
	"fxledger/internal/tools"
)

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldError, err)
	}
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrImportRow):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrConversionUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, tools.ErrUnknownTool), errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrDuplicateID):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ...}. Internal failures are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), RequestID: trace.RequestID(r.Context())}

	var verr *core.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			log.FieldComponent, log.ComponentHTTP,
			log.FieldRequestID, body.RequestID,
			log.FieldPath, r.URL.Path,
			log.FieldError, err)
		body.Error = "internal error"
	}
	writeJSON(w, status, body)
}
