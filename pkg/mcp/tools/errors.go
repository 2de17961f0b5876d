package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/pattern-catalog/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// Actionable failures are returned as tool results rather than protocol
// errors so the client sees the code and message.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for errors the caller can act on (bad input, missing pattern).
// System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// serviceErrorResult converts a catalog error into a tool result. Persistence
// and unclassified failures are returned as Go errors so the protocol layer
// reports them without leaking internals.
func serviceErrorResult(err error) (*mcp.CallToolResult, error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || errors.Is(err, apperrors.ErrPersistence) {
		return nil, err
	}
	if appErr.ID != "" {
		return NewErrorResultWithDetails(appErr.Code(), appErr.Message, map[string]string{"id": appErr.ID}), nil
	}
	return NewErrorResult(appErr.Code(), appErr.Message), nil
}
