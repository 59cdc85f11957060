package assistant

import (
	"context"
	"errors"
	"fmt"
)

// Persona is the fixed system instruction sent with every completion.
const Persona = "You are IGIHOZO AI, a smart stock management assistant for a retail shop. Answer briefly and help with calculations or stock advice. Be friendly and professional."

// Temperature is the fixed sampling temperature for assistant replies.
const Temperature = 0.7

// Service is the completion backend the chat trigger calls. The caller
// treats it as a black box: any error means no reply is published.
type Service interface {
	Complete(ctx context.Context, prompt, systemInstruction string, temperature float64) (string, error)
}

// ErrEmptyCompletion is returned when the backend answers successfully
// but produces no text.
var ErrEmptyCompletion = errors.New("assistant: empty completion")

// ProviderError is returned when the assistant API responds with an
// error status.
type ProviderError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the provider-specific error status string
	// (e.g. "RESOURCE_EXHAUSTED", "INVALID_ARGUMENT").
	Status string

	// Message is the human-readable error description.
	Message string
}

func (err *ProviderError) Error() string {
	if err.Status != "" {
		return fmt.Sprintf("assistant: HTTP %d: %s: %s", err.StatusCode, err.Status, err.Message)
	}
	return fmt.Sprintf("assistant: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited returns true if the error is a quota or rate limit
// response (HTTP 429).
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == 429
}
