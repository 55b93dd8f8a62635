package response

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// Reader reads one body using the formatter registered for its media type.
// The body can be read once; later reads fail with ErrBodyConsumed.
type Reader struct {
	body       io.Reader
	header     http.Header
	length     int64
	formatters Formatters
	consumed   bool
}

// NewReader returns a Reader over body described by header. length is the
// body size, or -1 when unknown.
func NewReader(body io.Reader, header http.Header, length int64) *Reader {
	if header == nil {
		header = make(http.Header)
	}

	return &Reader{
		body:       body,
		header:     header,
		length:     length,
		formatters: DefaultFormatters(),
	}
}

// SetFormatter registers f for mediaType on this reader only.
func (r *Reader) SetFormatter(mediaType string, f Formatter) {
	r.formatters = r.formatters.merge(Formatters{strings.ToLower(mediaType): f})
}

// Header returns the content headers of the body.
func (r *Reader) Header() http.Header {
	return r.header
}

// HasContent reports whether there is a body to read.
func (r *Reader) HasContent() bool {
	return r.body != nil && r.body != http.NoBody && r.length != 0
}

// MediaType returns the lowercased media type and its parameters.
func (r *Reader) MediaType() (string, map[string]string, error) {
	ct := r.header.Get("Content-Type")
	if ct == "" {
		return "", nil, ErrNoContentType
	}

	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", nil, fmt.Errorf("parsing content type[%s]: %w", ct, err)
	}

	return mediaType, params, nil
}

// take hands out the body exactly once.
func (r *Reader) take() (io.Reader, error) {
	if r.consumed {
		return nil, ErrBodyConsumed
	}
	if !r.HasContent() {
		return nil, ErrNoContent
	}

	r.consumed = true

	return r.body, nil
}

// Decode decodes the body into dst with the formatter registered for its
// media type.
func (r *Reader) Decode(dst any) error {
	mediaType, _, err := r.MediaType()
	if err != nil {
		return err
	}

	f, ok := r.formatters.lookup(mediaType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoFormatter, mediaType)
	}

	body, err := r.take()
	if err != nil {
		return err
	}

	return f(body, dst)
}

// DecodeJSON decodes the body as JSON whatever its declared media type.
func (r *Reader) DecodeJSON(dst any) error {
	f, ok := r.formatters[MediaJSON]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoFormatter, MediaJSON)
	}

	body, err := r.take()
	if err != nil {
		return err
	}

	return f(body, dst)
}

// Text reads the whole body as a string.
func (r *Reader) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// Bytes reads the whole body.
func (r *Reader) Bytes() ([]byte, error) {
	body, err := r.take()
	if err != nil {
		return nil, err
	}

	b, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}

	return b, nil
}

// Stream returns the body itself.
func (r *Reader) Stream() (io.Reader, error) {
	return r.take()
}

// FormData parses an application/x-www-form-urlencoded body.
func (r *Reader) FormData() (url.Values, error) {
	mediaType, _, err := r.MediaType()
	if err != nil {
		return nil, err
	}
	if mediaType != MediaForm {
		return nil, fmt.Errorf("%w: %s, expected %s", ErrUnexpectedMedia, mediaType, MediaForm)
	}

	var values url.Values
	if err := r.Decode(&values); err != nil {
		return nil, err
	}

	return values, nil
}

// Multipart buffers every part of a multipart body.
func (r *Reader) Multipart() (*Multipart, error) {
	mediaType, params, err := r.MediaType()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("%w: %s, expected multipart", ErrUnexpectedMedia, mediaType)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return nil, errors.New("multipart content type has no boundary")
	}

	body, err := r.take()
	if err != nil {
		return nil, err
	}

	m := Multipart{mediaType: mediaType}
	mr := multipart.NewReader(body, boundary)
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading part[%d]: %w", len(m.parts), err)
		}

		data, err := io.ReadAll(p)
		if err != nil {
			return nil, fmt.Errorf("reading part[%d] body: %w", len(m.parts), err)
		}

		part := &Reader{
			body:       bytes.NewReader(data),
			header:     partHeader(p.Header),
			length:     int64(len(data)),
			formatters: r.formatters,
		}
		m.parts = append(m.parts, part)
	}

	return &m, nil
}

func partHeader(h textproto.MIMEHeader) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out[k] = v
	}

	return out
}

// Multipart holds the buffered parts of a multipart body.
type Multipart struct {
	mediaType string
	parts     []*Reader
}

// MediaType returns the multipart subtype, e.g. multipart/mixed.
func (m *Multipart) MediaType() string {
	return m.mediaType
}

// Len returns the number of parts.
func (m *Multipart) Len() int {
	return len(m.parts)
}

// Part returns a reader over part i. Parts use the formatters of the
// reader they came from.
func (m *Multipart) Part(i int) (*Reader, error) {
	if i < 0 || i >= len(m.parts) {
		return nil, fmt.Errorf("part[%d] out of range, have %d", i, len(m.parts))
	}

	return m.parts[i], nil
}
