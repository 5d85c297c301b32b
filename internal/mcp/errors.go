// Package mcp exposes smart_search and scene lookup as Model Context
// Protocol tools over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"

	witchererrors "github.com/YauheniMa/witcher-bot/internal/errors"
)

// Codes reported for failures that carry no structured code of their own.
const (
	CodeTimeout       = witchererrors.ErrCodeNetworkTimeout
	CodeToolNotFound  = witchererrors.ErrCodeInvalidInput
	CodeInvalidParams = witchererrors.ErrCodeInvalidInput
	CodeInternal      = witchererrors.ErrCodeInternal
)

// ToolError is the payload of a failed tool call. Its Error text is what
// the client sees, so it leads with the structured code.
type ToolError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
}

// Error implements the error interface.
func (e *ToolError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s: %s %s", e.Code, e.Message, e.Suggestion)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError converts internal errors to tool errors.
func MapError(err error) *ToolError {
	if err == nil {
		return nil
	}

	var te *ToolError
	if errors.As(err, &te) {
		return te
	}

	if e, ok := witchererrors.As(err); ok {
		return &ToolError{
			Code:       e.Code,
			Message:    e.Message,
			Suggestion: e.Suggestion,
			Retryable:  e.Retryable,
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ToolError{Code: CodeTimeout, Message: "Request timed out.", Retryable: true}
	case errors.Is(err, context.Canceled):
		return &ToolError{Code: CodeTimeout, Message: "Request was canceled."}
	default:
		return &ToolError{Code: CodeInternal, Message: "Internal server error."}
	}
}

// NewInvalidParamsError reports a malformed tool argument.
func NewInvalidParamsError(msg string) *ToolError {
	return MapError(witchererrors.ValidationError(msg, nil))
}

// NewToolNotFoundError reports an unknown tool name.
func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Code:    CodeToolNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// NewSceneNotFoundError reports an unknown scene_id.
func NewSceneNotFoundError(id string) *ToolError {
	return &ToolError{
		Code:       witchererrors.ErrCodeSceneNotFound,
		Message:    fmt.Sprintf("Scene '%s' not found.", id),
		Suggestion: "Use an id returned by smart_search.",
	}
}
