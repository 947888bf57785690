package cloudbeds

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork  = errors.New("network error")
	ErrAuth     = errors.New("authentication failed")
	ErrNotFound = errors.New("not found")
	ErrTimeout  = errors.New("request timed out")
)

// APIError describes a failed call; Kind is one of the sentinel errors above
type APIError struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *APIError) Is(target error) bool {
	return target == e.Kind
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func retryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}
