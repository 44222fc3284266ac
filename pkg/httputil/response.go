package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/mbenites/dropstore/pkg/errors"
	"github.com/mbenites/dropstore/pkg/logger"
	"github.com/mbenites/dropstore/pkg/validator"
)

// ErrorBody is the JSON error envelope: {"error": "..."}.
// Every failure renders this shape with a meaningful 4xx/5xx status.
type ErrorBody struct {
	Error string `json:"error"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its HTTP status and writes the {"error": ...} body.
// Internal errors are logged through the request-scoped logger and rendered
// with a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() {
		l = fallback
	}

	status := apperrors.HTTPStatus(err)
	message := err.Error()

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	if status == http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		message = "an internal error occurred"
	}

	WriteJSON(w, status, ErrorBody{Error: message})
}

// WriteValidationError writes a 400 with the validation failure message.
// Field-level detail from the validator is folded into the message so the
// response still names the offending field.
func WriteValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: valErr.Error()})
		return
	}
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: err.Error()})
}
