// Package request composes HTTP requests from a URI builder, a content
// builder and header setters, and sends them through a Doer.
package request

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/adamwoolhether/apibuilder/response"
)

// Doer sends a request. *http.Client and *client.Client satisfy it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option is a functional option for configuring a [Factory].
type Option func(*options) error

type options struct {
	baseURL    *url.URL
	formatters response.Formatters
	validate   bool
	logger     *slog.Logger
}

// WithBaseURL resolves every request URI against rawURL.
func WithBaseURL(rawURL string) Option {
	return func(opts *options) error {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("parsing base url: %w", err)
		}
		if !u.IsAbs() {
			return fmt.Errorf("base url[%s] must be absolute", rawURL)
		}

		// A base without a trailing slash would lose its last segment
		// during resolution.
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
			if u.RawPath != "" {
				u.RawPath += "/"
			}
		}

		opts.baseURL = u
		return nil
	}
}

// WithFormatter overrides the response formatter for mediaType on every
// response produced by the factory.
func WithFormatter(mediaType string, f response.Formatter) Option {
	return func(opts *options) error {
		if mediaType == "" {
			return errors.New("media type must not be empty")
		}
		if f == nil {
			return errors.New("formatter must not be nil")
		}
		if opts.formatters == nil {
			opts.formatters = make(response.Formatters)
		}
		opts.formatters[strings.ToLower(mediaType)] = f
		return nil
	}
}

// WithValidation validates JSON payloads against their `validate` tags.
func WithValidation() Option {
	return func(opts *options) error {
		opts.validate = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Factory].
func WithLogger(logger *slog.Logger) Option {
	return func(opts *options) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		opts.logger = logger
		return nil
	}
}

// Factory creates request builders sharing a Doer and configuration.
type Factory struct {
	doer       Doer
	baseURL    *url.URL
	formatters response.Formatters
	validate   bool
	logger     *slog.Logger
}

// NewFactory returns a Factory sending through doer.
func NewFactory(doer Doer, optFns ...Option) (*Factory, error) {
	if doer == nil {
		return nil, errors.New("doer must not be nil")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying factory option: %w", err)
		}
	}

	f := Factory{
		doer:       doer,
		baseURL:    opts.baseURL,
		formatters: opts.formatters,
		validate:   opts.validate,
		logger:     opts.logger,
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}

	return &f, nil
}

// New starts a request with the given method.
func (f *Factory) New(method string) *Builder {
	return &Builder{factory: f, method: method}
}

func (f *Factory) Get() *Builder    { return f.New(http.MethodGet) }
func (f *Factory) Post() *Builder   { return f.New(http.MethodPost) }
func (f *Factory) Put() *Builder    { return f.New(http.MethodPut) }
func (f *Factory) Patch() *Builder  { return f.New(http.MethodPatch) }
func (f *Factory) Delete() *Builder { return f.New(http.MethodDelete) }

// resolve joins a relative URI rendered by the uri builder with the base.
func (f *Factory) resolve(rel string) (*url.URL, error) {
	ref, err := url.Parse(rel)
	if err != nil {
		return nil, fmt.Errorf("parsing uri[%s]: %w", rel, err)
	}

	if f.baseURL == nil {
		if !ref.IsAbs() {
			return nil, fmt.Errorf("uri[%s] is relative and the factory has no base url", rel)
		}
		return ref, nil
	}

	return f.baseURL.ResolveReference(ref), nil
}
