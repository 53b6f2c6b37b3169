package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/fitch/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict), errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrInvalidDocument),
		errors.Is(err, apperr.ErrStructural),
		errors.Is(err, apperr.ErrOutOfScope),
		errors.Is(err, apperr.ErrDanglingReference),
		errors.Is(err, apperr.ErrRuleMismatch),
		errors.Is(err, apperr.ErrReentrant):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Unexpected errors are logged and
// replaced with a generic message.
func writeError(w http.ResponseWriter, msg string, err error, attrs ...any) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error(msg, append(attrs, slog.String("error", err.Error()))...)
		writeJSON(w, status, errorBody("internal error"))
		return
	}
	writeJSON(w, status, errorBody(err.Error()))
}
