// Package result defines the normalized envelope produced when a response
// is classified: a success, a failure carrying the server's error payload,
// or a fault.
package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
)

// ErrInvalidStatus is returned when a constructor receives a status code
// that contradicts the kind of result being built.
var ErrInvalidStatus = errors.New("invalid status code for result")

// Kind classifies a Result.
type Kind int

const (
	KindSuccess Kind = iota
	KindFailure
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindFailure:
		return "failure"
	case KindFault:
		return "fault"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FieldErrors maps a model field name to its validation messages.
type FieldErrors map[string][]string

// Error implements the error interface, rendering fields in sorted order.
func (fe FieldErrors) Error() string {
	keys := slices.Sorted(maps.Keys(fe))

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(fe[k], ", "))
	}

	return strings.Join(parts, "; ")
}

func (fe FieldErrors) clone() FieldErrors {
	if fe == nil {
		return nil
	}

	out := make(FieldErrors, len(fe))
	for k, v := range fe {
		out[k] = slices.Clone(v)
	}

	return out
}

// Result is the outcome of one request/response cycle. It is immutable:
// accessors hand out copies.
type Result struct {
	status int
	errs   []string
	fields FieldErrors
}

// Success builds a successful result. status must be in [200,300).
func Success(status int) (Result, error) {
	if !isSuccess(status) {
		return Result{}, fmt.Errorf("%w: success requires a 2xx code, got %d", ErrInvalidStatus, status)
	}

	return Result{status: status, errs: []string{}}, nil
}

// Fail builds a failed result carrying the given reasons in order.
// status must be a valid non-2xx code.
func Fail(status int, reasons ...string) (Result, error) {
	if err := checkFailure(status); err != nil {
		return Result{}, err
	}

	return Result{status: status, errs: append([]string{}, reasons...)}, nil
}

// FailFields builds a failed result carrying server-side field errors.
func FailFields(status int, fields FieldErrors) (Result, error) {
	if err := checkFailure(status); err != nil {
		return Result{}, err
	}

	return Result{status: status, errs: []string{}, fields: fields.clone()}, nil
}

// Fault builds a result with status 500 carrying the given messages.
func Fault(messages ...string) Result {
	return Result{status: http.StatusInternalServerError, errs: append([]string{}, messages...)}
}

// FaultFields builds a result with status 500 carrying field errors.
func FaultFields(fields FieldErrors) Result {
	return Result{status: http.StatusInternalServerError, errs: []string{}, fields: fields.clone()}
}

func checkFailure(status int) error {
	if status < 100 || status > 599 {
		return fmt.Errorf("%w: %d is not an http status code", ErrInvalidStatus, status)
	}
	if isSuccess(status) {
		return fmt.Errorf("%w: failure requires a non-2xx code, got %d", ErrInvalidStatus, status)
	}

	return nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Kind reports whether the result is a success, failure or fault.
func (r Result) Kind() Kind {
	switch {
	case isSuccess(r.status):
		return KindSuccess
	case r.status == http.StatusInternalServerError:
		return KindFault
	default:
		return KindFailure
	}
}

// Status returns the HTTP status code of the result.
func (r Result) Status() int { return r.status }

// IsSuccess reports whether the status is in the 2xx range.
func (r Result) IsSuccess() bool { return isSuccess(r.status) }

// IsFaulted reports whether the status is 500.
func (r Result) IsFaulted() bool { return r.status == http.StatusInternalServerError }

// Errors returns the error messages in discovery order.
func (r Result) Errors() []string { return slices.Clone(r.errs) }

// FieldErrors returns the field-level errors, or nil if the remote side
// did not report any.
func (r Result) FieldErrors() FieldErrors { return r.fields.clone() }

// Err converts a non-success result into an error. It returns nil on success.
func (r Result) Err() error {
	if r.IsSuccess() {
		return nil
	}

	return &Error{Status: r.status, Messages: r.Errors(), Fields: r.FieldErrors()}
}

// MarshalJSON implements json.Marshaler.
func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.envelope())
}

type envelope struct {
	ErrorMessage  []string    `json:"ErrorMessage"`
	HttpStatus    int         `json:"HttpStatus"`
	IsSuccessfull bool        `json:"IsSuccessfull"`
	IsFaulted     bool        `json:"IsFaulted"`
	StateModel    FieldErrors `json:"StateModel"`
}

func (r Result) envelope() envelope {
	errs := r.errs
	if errs == nil {
		errs = []string{}
	}

	return envelope{
		ErrorMessage:  errs,
		HttpStatus:    r.status,
		IsSuccessfull: r.IsSuccess(),
		IsFaulted:     r.IsFaulted(),
		StateModel:    r.fields,
	}
}

// Error is the error form of a non-success Result.
type Error struct {
	Status   int
	Messages []string
	Fields   FieldErrors
}

func (e *Error) Error() string {
	var detail string
	switch {
	case len(e.Messages) > 0:
		detail = strings.Join(e.Messages, "; ")
	case len(e.Fields) > 0:
		detail = e.Fields.Error()
	default:
		detail = http.StatusText(e.Status)
	}

	return fmt.Sprintf("status %d: %s", e.Status, detail)
}
