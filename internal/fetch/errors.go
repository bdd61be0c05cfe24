package fetch

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoStrategies is returned by NewEscalator without strategies.
	ErrNoStrategies = errors.New("fetch: at least one strategy is required")

	// ErrEmptyBody is returned when a strategy got no content.
	ErrEmptyBody = errors.New("fetch: empty response body")

	// ErrNoContent is returned when a rendered page has no body element.
	ErrNoContent = errors.New("fetch: page has no body element")
)

// StatusError is an HTTP error status. It is a transient fetch error.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP status %d", e.URL, e.Code)
}

// StrategyFailure is one failed attempt.
type StrategyFailure struct {
	Attempt  int
	Strategy string
	Err      error
}

func (f StrategyFailure) String() string {
	return fmt.Sprintf("attempt %d (%s): %v", f.Attempt+1, f.Strategy, f.Err)
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	URL      string
	Failures []StrategyFailure
}

func (e *ExhaustedError) Error() string {
	msgs := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		msgs[i] = f.String()
	}
	return fmt.Sprintf("all %d fetch attempts failed for %s: %s",
		len(e.Failures), e.URL, strings.Join(msgs, "; "))
}

// Unwrap exposes every attempt's error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
