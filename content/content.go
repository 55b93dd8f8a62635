// Package content builds request bodies together with the headers that
// describe them: JSON, text, form, raw bytes or streams, files and
// multipart bodies.
package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/adamwoolhether/apibuilder/validate"
)

// Common media types.
const (
	TypeJSON        = "application/json"
	TypeText        = "text/plain; charset=utf-8"
	TypeForm        = "application/x-www-form-urlencoded"
	TypeOctetStream = "application/octet-stream"
)

var ErrUnsupportedPart = errors.New("unsupported multipart part")

// Content is a request body and its content headers.
type Content struct {
	Body io.Reader
	// Header holds content headers such as Content-Type and
	// Content-Disposition. Content-Length travels in Length.
	Header http.Header
	// Length is the body size in bytes, or -1 when unknown.
	Length int64

	// raw marks Stream and Bytes content, the only kinds Mixed accepts.
	raw bool
}

// ContentType returns the Content-Type header of the content.
func (c *Content) ContentType() string {
	return c.Header.Get("Content-Type")
}

func newContent(body io.Reader, length int64, contentType string) *Content {
	c := &Content{Body: body, Header: make(http.Header), Length: length}
	if contentType != "" {
		c.Header.Set("Content-Type", contentType)
	}

	return c
}

// Option configures a Builder.
type Option func(*options) error

type options struct {
	validate bool
}

// WithValidation validates models passed to JSON against their
// `validate` tags before encoding them.
func WithValidation() Option {
	return func(opts *options) error {
		opts.validate = true
		return nil
	}
}

// Builder creates Content values.
type Builder struct {
	validate bool
}

// NewBuilder returns a Builder configured with optFns.
func NewBuilder(optFns ...Option) (*Builder, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying content option: %w", err)
		}
	}

	return &Builder{validate: opts.validate}, nil
}

// JSON encodes model as an application/json body.
func (b *Builder) JSON(model any) (*Content, error) {
	if b.validate {
		if err := validate.Struct(model); err != nil {
			return nil, fmt.Errorf("validating payload: %w", err)
		}
	}

	data, err := json.Marshal(model)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	return newContent(bytes.NewReader(data), int64(len(data)), TypeJSON), nil
}

// JSONString wraps an already encoded JSON document.
func (b *Builder) JSONString(raw string) (*Content, error) {
	if !json.Valid([]byte(raw)) {
		return nil, errors.New("payload is not valid json")
	}

	return newContent(strings.NewReader(raw), int64(len(raw)), TypeJSON), nil
}

// Text creates a text/plain body carrying text verbatim. It is not
// JSON-quoted: a server that expects the quoted form ("\"hi\"") needs
// JSONString or Bytes instead.
func (b *Builder) Text(text string) (*Content, error) {
	return newContent(strings.NewReader(text), int64(len(text)), TypeText), nil
}

// Pair is one form field.
type Pair struct {
	Key   string
	Value string
}

// Form creates an application/x-www-form-urlencoded body. Fields keep the
// order they are given in.
func (b *Builder) Form(pairs ...Pair) (*Content, error) {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, url.QueryEscape(p.Key)+"="+url.QueryEscape(p.Value))
	}
	encoded := strings.Join(parts, "&")

	return newContent(strings.NewReader(encoded), int64(len(encoded)), TypeForm), nil
}

// Stream wraps r. The length is taken from r when it reports one.
// contentType may be empty.
func (b *Builder) Stream(r io.Reader, contentType string) (*Content, error) {
	if r == nil {
		return nil, errors.New("stream must not be nil")
	}

	c := newContent(r, streamLength(r), contentType)
	c.raw = true

	return c, nil
}

// Bytes wraps data. contentType may be empty.
func (b *Builder) Bytes(data []byte, contentType string) (*Content, error) {
	c := newContent(bytes.NewReader(data), int64(len(data)), contentType)
	c.raw = true

	return c, nil
}

func streamLength(r io.Reader) int64 {
	switch s := r.(type) {
	case interface{ Len() int }:
		return int64(s.Len())
	case *os.File:
		info, err := s.Stat()
		if err != nil || !info.Mode().IsRegular() {
			return -1
		}
		return info.Size()
	default:
		return -1
	}
}

func (c *Content) String() string {
	return fmt.Sprintf("%s (%s bytes)", c.ContentType(), lengthString(c.Length))
}

func lengthString(n int64) string {
	if n < 0 {
		return "unknown"
	}

	return strconv.FormatInt(n, 10)
}
