package apierror

import (
	"errors"
	"fmt"
)

// Kind labels a client-facing failure class.
type Kind string

const (
	EmptyQuery             Kind = "EmptyQuery"
	UnreachableUrl         Kind = "UnreachableUrl"
	NotAnImage             Kind = "NotAnImage"
	UnsupportedExtension   Kind = "UnsupportedExtension"
	NoModelsAvailable      Kind = "NoModelsAvailable"
	NoCheckpointsAvailable Kind = "NoCheckpointsAvailable"
	InvalidConfig          Kind = "InvalidConfig"
	PredictionFailure      Kind = "PredictionFailure"
)

// Error carries the failure kind and a human-readable explanation.
type Error struct {
	Kind    Kind   `json:"error"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap folds an arbitrary error into a PredictionFailure. Errors that
// already carry a kind pass through unchanged.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &Error{
		Kind:    PredictionFailure,
		Message: err.Error(),
	}
}

// AsError extracts the typed error, if any.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
