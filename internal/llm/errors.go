package llm

import "fmt"

// ProviderError is returned when an AI provider call fails. It preserves
// everything the orchestration layer's classifier needs: the HTTP status
// code, the provider's own status string (e.g. "RESOURCE_EXHAUSTED"), and
// the raw error body, which some providers stringify into nested JSON.
type ProviderError struct {
	Provider string
	Code     int    // HTTP status code (429, 503, ...), 0 for transport errors
	Status   string // provider status string, if the error body carried one
	Message  string
	RawBody  string // raw response body, kept for envelope scanning
	Wrapped  error  // underlying transport error, if any
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Unwrap exposes the underlying transport error to errors.Is/As.
func (e *ProviderError) Unwrap() error {
	return e.Wrapped
}
