package response

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
)

// maxErrBodySize caps the amount of response body read when
// building an error for an unexpected status code. This prevents
// unbounded memory usage when a large response arrives with a
// wrong status.
const maxErrBodySize = 4 << 10 // 4KB

var (
	// ErrUnexpectedStatusCode is the sentinel error wrapped by [UnexpectedStatusError].
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	// ErrAuthFailure is joined with [ErrUnexpectedStatusCode] when the server
	// responds with 401 Unauthorized or 403 Forbidden.
	ErrAuthFailure = errors.New("auth failure")
	// ErrTransportFault wraps the error of a request that never produced
	// a response.
	ErrTransportFault = errors.New("transport fault")

	ErrNoContentType   = errors.New("response has no content type")
	ErrNoFormatter     = errors.New("no formatter for content type")
	ErrNoContent       = errors.New("response has no content")
	ErrBodyConsumed    = errors.New("response body already consumed")
	ErrUnexpectedMedia = errors.New("unexpected media type")
	ErrUnsupportedDest = errors.New("unsupported decode destination")
)

// UnexpectedStatusError is returned by the raw accessors when the
// response status code is not a 2xx.
type UnexpectedStatusError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *UnexpectedStatusError) Unwrap() error {
	return e.Err
}

func statusError(code int, body string) *UnexpectedStatusError {
	err := ErrUnexpectedStatusCode
	if code == http.StatusUnauthorized || code == http.StatusForbidden {
		err = errors.Join(ErrUnexpectedStatusCode, ErrAuthFailure)
	}

	return &UnexpectedStatusError{StatusCode: code, Body: body, Err: err}
}

// TransportError records a failed send together with the goroutine stack
// at the point the failure was captured.
type TransportError struct {
	Err   error
	stack string
}

// CaptureTransportError wraps err with the current stack.
func CaptureTransportError(err error) *TransportError {
	return &TransportError{Err: err, stack: string(debug.Stack())}
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Stack returns the captured stack trace.
func (e *TransportError) Stack() string {
	return e.stack
}
