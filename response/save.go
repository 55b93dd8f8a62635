package response

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

var (
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrSaveCancelled         = errors.New("save cancelled")
)

// SaveError details a file save that wrote the wrong content.
type SaveError struct {
	Detail string
	Err    error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *SaveError) Unwrap() error {
	return e.Err
}

// SaveOption configures SaveFile.
type SaveOption func(*saveOptions) error

type saveOptions struct {
	hash         hash.Hash
	expected     string
	progress     bool
	skipExisting bool
}

// WithChecksum verifies the saved bytes against expected, the hex
// encoded digest h should produce, e.g. sha256.New().
func WithChecksum(h hash.Hash, expected string) SaveOption {
	return func(opts *saveOptions) error {
		if h == nil {
			return errors.New("hash must not be nil")
		}

		if expected == "" {
			return errors.New("expected checksum must not be empty")
		}

		opts.hash = h
		opts.expected = expected
		return nil
	}
}

// WithProgress logs the transfer progress at most once per second.
func WithProgress() SaveOption {
	return func(opts *saveOptions) error {
		opts.progress = true
		return nil
	}
}

// WithSkipExisting leaves an existing destination untouched and returns
// without reading the body.
func WithSkipExisting() SaveOption {
	return func(opts *saveOptions) error {
		opts.skipExisting = true
		return nil
	}
}

// SaveFile streams the body to destPath. Data is written to a temp file
// in the same directory and renamed on success; on any error the temp
// file is removed and destPath is untouched. The save stops when the
// context of the originating request is done.
func (r *Response) SaveFile(destPath string, optFns ...SaveOption) error {
	if destPath == "" {
		return errors.New("destPath must not be empty")
	}

	var opts saveOptions
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return fmt.Errorf("applying option: %w", err)
		}
	}

	if err := r.check(); err != nil {
		return err
	}
	defer r.Close()

	if opts.skipExisting {
		if _, err := os.Stat(destPath); err == nil {
			r.logger.Info("skipping existing file", "path", destPath)
			return nil
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".apibuilder-save-*")
	if err != nil {
		return fmt.Errorf("save: creating temp file: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tmp.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			r.logger.Error("closing temp file", "error", err)
		}
		if err := os.Remove(tmp.Name()); err != nil {
			r.logger.Error("removing temp file", "path", tmp.Name(), "error", err)
		}
	}()

	var w io.Writer = tmp
	if opts.hash != nil {
		w = io.MultiWriter(w, opts.hash)
	}

	var m *meter
	if opts.progress {
		m = &meter{w: w, logger: r.logger, total: r.reader.length, start: time.Now()}
		w = m
	}

	n, err := r.reader.copyTo(r.context(), w)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	m.report("save complete")

	if err := r.reader.verifyLength(n); err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if opts.hash != nil {
		if actual := hex.EncodeToString(opts.hash.Sum(nil)); actual != opts.expected {
			return fmt.Errorf("save: %w", &SaveError{
				Err:    ErrChecksumMismatch,
				Detail: fmt.Sprintf("expected %s, got %s", opts.expected, actual),
			})
		}
	}

	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("save: syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return fmt.Errorf("save: renaming temp file: %w", err)
	}
	committed = true

	return nil
}

// context returns the context of the originating request.
func (r *Response) context() context.Context {
	if r.resp.Request != nil {
		return r.resp.Request.Context()
	}

	return context.Background()
}

// copyTo streams the body into w, checking ctx between chunks. A reader
// without content copies nothing.
func (r *Reader) copyTo(ctx context.Context, w io.Writer) (int64, error) {
	body, err := r.take()
	switch {
	case errors.Is(err, ErrNoContent):
		return 0, nil
	case err != nil:
		return 0, err
	}

	buf := make([]byte, 32*1024)
	var n int64
	for {
		if err := ctx.Err(); err != nil {
			return n, fmt.Errorf("%w: %w", ErrSaveCancelled, err)
		}

		nr, rerr := body.Read(buf)
		if nr > 0 {
			nw, werr := w.Write(buf[:nr])
			n += int64(nw)
			if werr != nil {
				return n, fmt.Errorf("writing body: %w", werr)
			}
		}

		switch {
		case errors.Is(rerr, io.EOF):
			return n, nil
		case errors.Is(rerr, context.Canceled), errors.Is(rerr, context.DeadlineExceeded):
			return n, fmt.Errorf("%w: %w", ErrSaveCancelled, rerr)
		case rerr != nil:
			return n, fmt.Errorf("reading body: %w", rerr)
		}
	}
}

// verifyLength compares n against the announced body length, if any.
func (r *Reader) verifyLength(n int64) error {
	if r.length < 0 || n == r.length {
		return nil
	}

	return &SaveError{
		Err:    ErrContentLengthMismatch,
		Detail: fmt.Sprintf("expected %d bytes, got %d", r.length, n),
	}
}

// meter counts the bytes written through it and logs the count at most
// once per second.
type meter struct {
	w       io.Writer
	logger  *slog.Logger
	total   int64
	written int64
	start   time.Time
	next    time.Time
}

func (m *meter) Write(p []byte) (int, error) {
	n, err := m.w.Write(p)
	m.written += int64(n)

	if now := time.Now(); now.After(m.next) {
		m.next = now.Add(time.Second)
		m.report("saving")
	}

	return n, err
}

// report is a no-op on a nil meter.
func (m *meter) report(msg string) {
	if m == nil {
		return
	}

	attrs := []any{"written", m.written, "elapsed", time.Since(m.start).Round(time.Millisecond)}
	if m.total > 0 {
		attrs = append(attrs, "percent", m.written*100/m.total, "total", m.total)
	}

	m.logger.Info(msg, attrs...)
}
