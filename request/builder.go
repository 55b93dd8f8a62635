package request

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/adamwoolhether/apibuilder/content"
	"github.com/adamwoolhether/apibuilder/uri"
)

// ContentFunc builds the body of a request.
type ContentFunc func(*content.Builder) (*content.Content, error)

// Builder accumulates the parts of one request. Setters only record
// their arguments; everything is evaluated by Build.
type Builder struct {
	factory   *Factory
	method    string
	uriFns    []func(*uri.Builder)
	contentFn ContentFunc
	partFns   []ContentFunc
	headerFns []func(*Headers)
}

// SetURI configures the path, query and fragment.
func (b *Builder) SetURI(fn func(*uri.Builder)) *Builder {
	b.uriFns = append(b.uriFns, fn)
	return b
}

// SetContent sets the request body, replacing a previous one.
func (b *Builder) SetContent(fn ContentFunc) *Builder {
	b.contentFn = fn
	b.partFns = nil
	return b
}

// SetContentMultipart sets a multipart/mixed body built from Stream and
// Bytes parts, replacing a previous body.
func (b *Builder) SetContentMultipart(fns ...ContentFunc) *Builder {
	b.partFns = fns
	b.contentFn = nil
	return b
}

// AddHeader registers a header setter. Setters run in order.
func (b *Builder) AddHeader(fn func(*Headers)) *Builder {
	b.headerFns = append(b.headerFns, fn)
	return b
}

// AddAuthorizationBearerToken sets the Authorization header. The "Bearer "
// prefix is added unless token already has it.
func (b *Builder) AddAuthorizationBearerToken(token string) *Builder {
	return b.AddHeader(func(h *Headers) {
		h.Set("Authorization", bearer(token))
	})
}

// Build evaluates the recorded setters into a Message bound to ctx.
func (b *Builder) Build(ctx context.Context) (*Message, error) {
	u := uri.New()
	for _, fn := range b.uriFns {
		fn(u)
	}

	rel, err := u.Build()
	if err != nil {
		return nil, fmt.Errorf("building uri: %w", err)
	}

	target, err := b.factory.resolve(rel)
	if err != nil {
		return nil, err
	}

	body, err := b.content()
	if err != nil {
		return nil, fmt.Errorf("building content: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, b.method, target.String(), nil)
	if err != nil {
		release(body)
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	h := Headers{request: req.Header, content: make(http.Header)}
	if body != nil {
		h.content = body.Header
	}
	for _, fn := range b.headerFns {
		fn(&h)
	}

	if body == nil {
		if len(h.content) > 0 {
			return nil, ErrNoContentForHeader
		}
	} else {
		attach(req, body)
	}

	return &Message{req: req, factory: b.factory}, nil
}

func (b *Builder) content() (*content.Content, error) {
	if b.contentFn == nil && len(b.partFns) == 0 {
		return nil, nil
	}

	var opts []content.Option
	if b.factory.validate {
		opts = append(opts, content.WithValidation())
	}

	cb, err := content.NewBuilder(opts...)
	if err != nil {
		return nil, err
	}

	if b.contentFn != nil {
		c, err := b.contentFn(cb)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, errors.New("content func returned no content")
		}
		return c, nil
	}

	parts := make([]*content.Content, 0, len(b.partFns))
	for i, fn := range b.partFns {
		p, err := fn(cb)
		if err != nil {
			return nil, fmt.Errorf("part[%d]: %w", i, err)
		}
		parts = append(parts, p)
	}

	return cb.Mixed(parts...)
}

// attach sets body and its content headers on req.
func attach(req *http.Request, body *content.Content) {
	for k, v := range body.Header {
		req.Header[k] = v
	}

	if body.Body == nil || body.Length == 0 {
		release(body)
		req.Body = http.NoBody
		req.ContentLength = 0
		return
	}

	rc, ok := body.Body.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(body.Body)
	}
	req.Body = rc
	req.ContentLength = body.Length
}

// release closes the body of content that will not be sent.
func release(body *content.Content) {
	if body == nil {
		return
	}

	if c, ok := body.Body.(io.Closer); ok {
		c.Close()
	}
}
