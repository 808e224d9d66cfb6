package provider

import (
	"fmt"
	"strings"
)

// ProviderError reports a non-success response from the push provider. The
// raw body is preserved for diagnostics.
type ProviderError struct {
	StatusCode int
	Body       string
	Cause      error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Cause != nil {
		return fmt.Sprintf("provider request failed: %v", e.Cause)
	}

	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("provider rejected: %d", e.StatusCode)
	}
	return fmt.Sprintf("provider rejected: %d - %s", e.StatusCode, body)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
