package shared

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Session errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrMalformedState   = fmt.Errorf("malformed local state")

	// Remote API errors
	ErrRemoteRejected     = fmt.Errorf("request rejected by server")
	ErrNetworkFailure     = fmt.Errorf("network failure")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Store rules enforced client-side
	ErrValidation   = fmt.Errorf("validation failed")
	ErrInvalidCVV   = fmt.Errorf("Please provide the valid CVV.")
	ErrAlreadyOwned = fmt.Errorf("You have already purchased this audiobook. Check your Library.")

	// Playback errors
	ErrNoSource    = fmt.Errorf("no source loaded")
	ErrMediaFailed = fmt.Errorf("media failed to load")
	ErrInvalidRate = fmt.Errorf("unsupported playback rate")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// ValidationError reports a client-side form rule that failed before anything reached the network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a [ValidationError] for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// RemoteError is a structured rejection returned by the store API.
//
// Message is empty when the response carried nothing displayable.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%v: status %d", ErrRemoteRejected, e.Status)
	}
	return fmt.Sprintf("%v: status %d: %s", ErrRemoteRejected, e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemoteRejected
}

// UserMessage picks the text to show a listener for err.
//
// Validation and remote messages are shown verbatim; anything else (including network failures) falls back.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var verr *ValidationError
	if errors.As(err, &verr) && verr.Message != "" {
		return verr.Message
	}

	var rerr *RemoteError
	if errors.As(err, &rerr) {
		if strings.TrimSpace(rerr.Message) != "" {
			return rerr.Message
		}
		return fallback
	}

	for _, known := range []error{ErrNotAuthenticated, ErrInvalidCVV, ErrAlreadyOwned, ErrInvalidRate} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}

	return fallback
}
