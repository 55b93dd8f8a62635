package content

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/textproto"
)

// Section is one named part of a multipart/form-data body.
type Section struct {
	Content *Content
	// Name is the form field name.
	Name string
	// FileName is optional; when set the part is sent as a file.
	FileName string
}

// Multipart assembles a multipart/form-data body from sections. An empty
// boundary lets the writer pick a random one.
func (b *Builder) Multipart(boundary string, sections ...Section) (*Content, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if boundary != "" {
		if err := w.SetBoundary(boundary); err != nil {
			return nil, fmt.Errorf("setting boundary: %w", err)
		}
	}

	for i, s := range sections {
		if s.Content == nil {
			return nil, fmt.Errorf("section[%d] has no content", i)
		}
		if s.Name == "" {
			return nil, fmt.Errorf("section[%d] has no name", i)
		}

		params := map[string]string{"name": s.Name}
		if s.FileName != "" {
			params["filename"] = s.FileName
		}

		h := partHeader(s.Content)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", params))

		if err := writePart(w, h, s.Content); err != nil {
			return nil, fmt.Errorf("section[%s]: %w", s.Name, err)
		}
	}

	return closeMultipart(w, &buf, "multipart/form-data")
}

// Mixed assembles a multipart/mixed body. Only Stream and Bytes content
// can be used as parts; anything else fails with ErrUnsupportedPart.
func (b *Builder) Mixed(parts ...*Content) (*Content, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for i, p := range parts {
		if p == nil || !p.raw {
			return nil, fmt.Errorf("part[%d]: %w", i, ErrUnsupportedPart)
		}

		if err := writePart(w, partHeader(p), p); err != nil {
			return nil, fmt.Errorf("part[%d]: %w", i, err)
		}
	}

	return closeMultipart(w, &buf, "multipart/mixed")
}

func partHeader(c *Content) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader, len(c.Header))
	for k, v := range c.Header {
		h[k] = append([]string(nil), v...)
	}

	return h
}

func writePart(w *multipart.Writer, h textproto.MIMEHeader, c *Content) error {
	pw, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("creating part: %w", err)
	}

	if c.Body == nil {
		return nil
	}

	if closer, ok := c.Body.(io.Closer); ok {
		defer closer.Close()
	}

	if _, err := io.Copy(pw, c.Body); err != nil {
		return fmt.Errorf("writing part: %w", err)
	}

	return nil
}

func closeMultipart(w *multipart.Writer, buf *bytes.Buffer, mediaType string) (*Content, error) {
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}

	contentType := mime.FormatMediaType(mediaType, map[string]string{"boundary": w.Boundary()})

	return newContent(bytes.NewReader(buf.Bytes()), int64(buf.Len()), contentType), nil
}
