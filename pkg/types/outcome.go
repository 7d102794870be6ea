package types

import "fmt"

// OutcomeKind tags a classified provider failure.
type OutcomeKind string

const (
	// OutcomeRateLimit marks a retryable quota failure, optionally
	// carrying a wait hint extracted from the provider message.
	OutcomeRateLimit OutcomeKind = "RATE_LIMIT"
	// OutcomeGeneral marks any other provider or network failure.
	OutcomeGeneral OutcomeKind = "GENERAL"
)

// ErrorOutcome is the typed result of classifying a raw provider
// failure. It is produced once per failed call and surfaced as the
// replacement text of the in-flight message, never persisted on its own.
type ErrorOutcome struct {
	Kind        OutcomeKind `json:"kind"`
	Message     string      `json:"message"`
	WaitSeconds *int        `json:"waitSeconds,omitempty"`
}

// Error implements the error interface so an outcome can travel through
// ordinary error returns at the transport boundary.
func (o *ErrorOutcome) Error() string {
	return o.Message
}

// Render produces the human-readable text shown in place of the failed
// assistant message.
func (o *ErrorOutcome) Render() string {
	if o.Kind == OutcomeRateLimit && o.WaitSeconds != nil {
		return fmt.Sprintf("Error: %s Retry in %ds.", o.Message, *o.WaitSeconds)
	}
	return "Error: " + o.Message
}

// ErrorResponse is the structured JSON error body the proxy returns when
// a request fails before any stream content was produced.
type ErrorResponse struct {
	Error *ErrorOutcome `json:"error"`
}
