package content

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// Descriptor describes an in-memory file.
type Descriptor struct {
	FileName string
	Content  []byte
	MimeType string
}

// File opens path and wraps it as an attachment named dispositionName. An
// empty dispositionName uses the base name of path. When mimeType is empty
// it is resolved from the extension, then from the file's leading bytes.
//
// The returned body is an *os.File; the transport closes it once the
// request is written.
func (b *Builder) File(path, dispositionName, mimeType string) (*Content, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("file[%s] is a directory", path)
	}

	if dispositionName == "" {
		dispositionName = filepath.Base(path)
	}

	if mimeType == "" {
		mimeType, err = resolveType(dispositionName, f)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	c := newContent(f, info.Size(), mimeType)
	setDisposition(c, dispositionName)

	return c, nil
}

// FileBytes wraps data as an attachment named name.
func (b *Builder) FileBytes(data []byte, name, mimeType string) (*Content, error) {
	if name == "" {
		return nil, errors.New("file name must not be empty")
	}

	if mimeType == "" {
		mimeType = detectType(name, data)
	}

	c := newContent(bytes.NewReader(data), int64(len(data)), mimeType)
	setDisposition(c, name)

	return c, nil
}

// FileFrom wraps the file described by d.
func (b *Builder) FileFrom(d Descriptor) (*Content, error) {
	return b.FileBytes(d.Content, d.FileName, d.MimeType)
}

// resolveType sniffs the type of f when its name is not conclusive and
// rewinds f afterwards.
func resolveType(name string, f *os.File) (string, error) {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t, nil
	}

	mt, err := mimetype.DetectReader(f)
	if err != nil {
		return "", fmt.Errorf("detecting mime type: %w", err)
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewinding file: %w", err)
	}

	return sniffed(mt), nil
}

func detectType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}

	return sniffed(mimetype.Detect(data))
}

func sniffed(mt *mimetype.MIME) string {
	if mt == nil || mt.String() == "" {
		return TypeOctetStream
	}

	return mt.String()
}

func setDisposition(c *Content, name string) {
	c.Header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
}
