package llm

import (
	"errors"
	"strings"
)

// ErrNotConfigured is returned when no provider has usable credentials.
var ErrNotConfigured = errors.New("no text-generation provider is configured")

// AllProvidersFailedError is returned when every attempted provider failed.
// Failures are in attempt order.
type AllProvidersFailedError struct {
	Failures []ProviderFailure
	// Cause is set when the caller's context ended the sequence early.
	Cause error
}

func (e *AllProvidersFailedError) Error() string {
	var b strings.Builder
	b.WriteString("all providers failed")
	if e.Cause != nil {
		b.WriteString(" (")
		b.WriteString(e.Cause.Error())
		b.WriteString(")")
	}
	if len(e.Failures) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Details(), "; "))
	}
	return b.String()
}

// Details returns one "{name}: {message}" entry per attempted provider.
func (e *AllProvidersFailedError) Details() []string {
	return failureStrings(e.Failures)
}

func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// IsNotConfigured reports whether err means no provider is registered.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}

// AsAllProvidersFailed extracts the aggregate failure from err's chain.
func AsAllProvidersFailed(err error) (*AllProvidersFailedError, bool) {
	var allErr *AllProvidersFailedError
	if errors.As(err, &allErr) {
		return allErr, true
	}
	return nil, false
}

func failureStrings(failures []ProviderFailure) []string {
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.String()
	}
	return out
}
