package mimic

import (
	"errors"
	"fmt"
)

// Error type constants used in ClientError.Type.
const (
	// ErrorTypeConfig marks invalid connection configuration, such as an
	// unparseable proxy URL. Always wrapped by a Build error.
	ErrorTypeConfig = "Config"

	// ErrorTypeBuild marks a client construction failure.
	ErrorTypeBuild = "Build"

	// ErrorTypeUnsupportedMethod marks a rejected HTTP method.
	ErrorTypeUnsupportedMethod = "UnsupportedMethod"

	// ErrorTypeRequest marks a failed send.
	ErrorTypeRequest = "Request"

	// ErrorTypeBodyRead marks a response body that could not be read.
	ErrorTypeBodyRead = "BodyRead"

	// ErrorTypeValidation marks invalid client options.
	ErrorTypeValidation = "Validation"
)

// ClientError is the error type returned by MakeRequest and New-time
// validation. Type partitions the failure taxonomy; Method and URL carry
// request context when the failure happened at or after the send stage.
type ClientError struct {
	Type      string
	Message   string
	Cause     error
	Method    string
	URL       string
	Emulation Emulation
}

// Error implements error.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	switch {
	case e.Method != "" && e.URL != "":
		msg = fmt.Sprintf("%s [%s %s]", msg, e.Method, e.URL)
	case e.URL != "":
		msg = fmt.Sprintf("%s [%s]", msg, e.URL)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsBuildError reports whether err is a client construction failure.
// Failed builds never leave a cache entry behind; the next request for the
// same configuration retries construction.
func IsBuildError(err error) bool {
	return errors.Is(err, &ClientError{Type: ErrorTypeBuild})
}

// IsUnsupportedMethodError reports whether err rejected an HTTP method.
func IsUnsupportedMethodError(err error) bool {
	return errors.Is(err, &ClientError{Type: ErrorTypeUnsupportedMethod})
}

// IsRequestError reports whether err is a send failure.
func IsRequestError(err error) bool {
	return errors.Is(err, &ClientError{Type: ErrorTypeRequest})
}

// IsBodyReadError reports whether err is a response body read failure.
func IsBodyReadError(err error) bool {
	return errors.Is(err, &ClientError{Type: ErrorTypeBodyRead})
}
