// Package response wraps the outcome of a sent request. It classifies the
// outcome into a result envelope, or hands out the body through raw
// accessors that fail on transport faults and non-2xx statuses.
package response

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Option configures a Response.
type Option func(*options)

type options struct {
	formatters Formatters
	logger     *slog.Logger
}

// WithFormatter overrides the formatter used for mediaType.
func WithFormatter(mediaType string, f Formatter) Option {
	return func(opts *options) {
		if opts.formatters == nil {
			opts.formatters = make(Formatters)
		}
		opts.formatters[strings.ToLower(mediaType)] = f
	}
}

// WithFormatters overrides every formatter in fs.
func WithFormatters(fs Formatters) Option {
	return func(opts *options) {
		for mediaType, f := range fs {
			WithFormatter(mediaType, f)(opts)
		}
	}
}

// WithLogger sets the logger for body close errors and classification
// fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) {
		opts.logger = logger
	}
}

// Response is the outcome of one request: either an *http.Response or
// the error that prevented one.
type Response struct {
	resp   *http.Response
	err    error
	reader *Reader
	logger *slog.Logger
}

// New wraps the result of a Do call. A non-nil err takes precedence over
// resp. Errors that do not carry a stack are captured with the current one.
func New(resp *http.Response, err error, optFns ...Option) *Response {
	var opts options
	for _, opt := range optFns {
		opt(&opts)
	}

	r := &Response{logger: opts.logger}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	if err != nil {
		if _, ok := err.(interface{ Stack() string }); !ok {
			err = CaptureTransportError(err)
		}
		r.err = err

		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}

		return r
	}

	if resp == nil {
		r.err = CaptureTransportError(errors.New("no response"))
		return r
	}

	r.resp = resp
	r.reader = NewReader(resp.Body, resp.Header, resp.ContentLength)
	r.reader.formatters = r.reader.formatters.merge(opts.formatters)

	return r
}

// Err returns the transport error, if any.
func (r *Response) Err() error {
	return r.err
}

// Raw returns the underlying *http.Response, nil on a transport fault.
func (r *Response) Raw() *http.Response {
	return r.resp
}

// StatusCode returns the response status, 0 on a transport fault.
func (r *Response) StatusCode() int {
	if r.resp == nil {
		return 0
	}

	return r.resp.StatusCode
}

// IsSuccess reports whether a response with a 2xx status was received.
func (r *Response) IsSuccess() bool {
	code := r.StatusCode()
	return code >= 200 && code <= 299
}

// Header returns the response headers, nil on a transport fault.
func (r *Response) Header() http.Header {
	if r.resp == nil {
		return nil
	}

	return r.resp.Header
}

// ReasonPhrase returns the status text sent by the server, or the
// standard text for the status code.
func (r *Response) ReasonPhrase() string {
	if r.resp == nil {
		return ""
	}

	code := strconv.Itoa(r.resp.StatusCode)
	if phrase := strings.TrimSpace(strings.TrimPrefix(r.resp.Status, code)); phrase != "" {
		return phrase
	}

	return http.StatusText(r.resp.StatusCode)
}

// Close drains and closes the body. Errors are logged. Reads after Close
// fail with ErrBodyConsumed.
func (r *Response) Close() {
	if r.resp == nil || r.resp.Body == nil {
		return
	}

	r.reader.consumed = true

	if _, err := io.Copy(io.Discard, r.resp.Body); err != nil {
		r.logger.Error("failed to discard unused body", "error", err)
	}
	if err := r.resp.Body.Close(); err != nil {
		r.logger.Error("failed to close response body", "error", err)
	}
}

// check gates the raw accessors: a transport fault or a non-2xx status
// is turned into an error and the body is released.
func (r *Response) check() error {
	if r.err != nil {
		return fmt.Errorf("%w: %w", ErrTransportFault, r.err)
	}

	if r.IsSuccess() {
		return nil
	}

	defer r.Close()

	body := r.ReasonPhrase()
	if r.reader.HasContent() && !r.reader.consumed {
		r.reader.consumed = true

		b, err := io.ReadAll(io.LimitReader(r.resp.Body, maxErrBodySize))
		switch {
		case err != nil:
			body = "unable to read body"
		case strings.TrimSpace(string(b)) != "":
			body = string(b)
		}
	}

	return statusError(r.resp.StatusCode, body)
}

// Reader returns the content reader of a successful response. The caller
// must Close the response once done.
func (r *Response) Reader() (*Reader, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	return r.reader, nil
}

// AsString reads the body as text.
func (r *Response) AsString() (string, error) {
	if err := r.check(); err != nil {
		return "", err
	}
	defer r.Close()

	return r.reader.Text()
}

// AsBytes reads the whole body.
func (r *Response) AsBytes() ([]byte, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	defer r.Close()

	return r.reader.Bytes()
}

// AsStream returns the body. The caller must close it.
func (r *Response) AsStream() (io.ReadCloser, error) {
	if err := r.check(); err != nil {
		return nil, err
	}

	if _, err := r.reader.Stream(); err != nil {
		r.Close()
		return nil, err
	}

	return r.resp.Body, nil
}

// AsFormData parses a form encoded body.
func (r *Response) AsFormData() (url.Values, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	defer r.Close()

	return r.reader.FormData()
}

// AsMultipart buffers the parts of a multipart body.
func (r *Response) AsMultipart() (*Multipart, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	defer r.Close()

	return r.reader.Multipart()
}

// AsModel decodes the body into a T with the formatter of its media type.
func AsModel[T any](r *Response) (T, error) {
	var model T
	if err := r.check(); err != nil {
		return model, err
	}
	defer r.Close()

	if err := r.reader.Decode(&model); err != nil {
		return model, err
	}

	return model, nil
}

// AsJSONModel decodes the body as JSON into a T.
func AsJSONModel[T any](r *Response) (T, error) {
	var model T
	if err := r.check(); err != nil {
		return model, err
	}
	defer r.Close()

	if err := r.reader.DecodeJSON(&model); err != nil {
		return model, err
	}

	return model, nil
}
