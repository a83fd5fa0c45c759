package campusapi

import (
	"errors"
	"fmt"
)

// Failure kinds. Use errors.Is to classify an *Error.
var (
	// ErrTransport means the request never produced an HTTP response.
	ErrTransport = errors.New("campus api unreachable")
	// ErrStatus means the API answered with a non-2xx status.
	ErrStatus = errors.New("campus api returned an error status")
	// ErrRejected means the API answered 200 with a data-level {"error": ...} body.
	ErrRejected = errors.New("campus api rejected the request")
	// ErrDecode means the response body did not have the expected shape.
	ErrDecode = errors.New("campus api response could not be decoded")
)

// Error describes a failed call to one campus API endpoint.
type Error struct {
	Endpoint   string
	Kind       error
	StatusCode int
	Message    string // server-supplied message, if any
	Err        error  // underlying cause, if any
}

// Error implements error.
func (e *Error) Error() string {
	msg := e.Endpoint + ": " + e.Kind.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// outcome is the metrics label for an error returned by the client.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrDecode):
		return "decode"
	default:
		return "transport"
	}
}

// ServerMessage returns the server-supplied message carried by err, or "".
func ServerMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

// ReportsError reports which of the two report fetches failed.
type ReportsError struct {
	Popularity    error
	Participation error
}

// Error implements error.
func (e *ReportsError) Error() string {
	return errors.Join(e.Popularity, e.Participation).Error()
}

// Unwrap exposes both panel errors.
func (e *ReportsError) Unwrap() []error {
	var errs []error
	if e.Popularity != nil {
		errs = append(errs, e.Popularity)
	}
	if e.Participation != nil {
		errs = append(errs, e.Participation)
	}
	return errs
}
