package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
	"github.com/ekaya-inc/pattern-catalog/pkg/logging"
)

// ApiResponse is the envelope of every successful JSON response.
type ApiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// errorBody is the JSON body of a failed request.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	return writeErrorBody(w, statusCode, errorBody{Error: errorCode, Message: message})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrPackaging):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WriteServiceError answers a failed service call. Structured errors carry
// a safe message and the offending id; anything else is logged and answered
// with a generic message.
func WriteServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := StatusFor(err)
	body := errorBody{Error: "internal_error", Message: "An internal error occurred"}

	var appErr *apperrors.Error
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		body = errorBody{Error: appErr.Code(), Message: appErr.Message, ID: appErr.ID}
	} else if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("error", logging.SanitizeError(err)))
	}

	if err := writeErrorBody(w, status, body); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}

func writeErrorBody(w http.ResponseWriter, statusCode int, body errorBody) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(body)
}
