package consensus

import (
	"errors"
	"strings"

	"veracity/internal/providers"
)

// ErrAllProvidersFailed is matched by errors.Is on *AllProvidersFailedError.
var ErrAllProvidersFailed = errors.New("all providers failed")

// AllProvidersFailedError lists the failures of a combined-mode request in
// which no configured provider produced a result.
type AllProvidersFailedError struct {
	Errors []providers.ProviderError
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, pe.Provider+": "+pe.Reason)
	}
	return ErrAllProvidersFailed.Error() + " (" + strings.Join(parts, ", ") + ")"
}

func (e *AllProvidersFailedError) Is(target error) bool { return target == ErrAllProvidersFailed }

func (e *AllProvidersFailedError) Unwrap() []error {
	out := make([]error, 0, len(e.Errors))
	for i := range e.Errors {
		out = append(out, &e.Errors[i])
	}
	return out
}
