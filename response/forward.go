package response

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// hopHeaders are connection scoped and never forwarded.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Forward writes the upstream response to w: status, headers and body.
// A transport fault is written as a 500 text/plain message. The body is
// closed.
func (r *Response) Forward(w http.ResponseWriter) error {
	if r.err != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		if _, err := io.WriteString(w, r.err.Error()); err != nil {
			return fmt.Errorf("writing fault: %w", err)
		}
		return nil
	}
	defer r.Close()

	dst := w.Header()
	for k, v := range r.resp.Header {
		dst[k] = append([]string(nil), v...)
	}
	for _, h := range hopHeaders {
		dst.Del(h)
	}
	for _, f := range r.resp.Header.Values("Connection") {
		for _, h := range strings.Split(f, ",") {
			dst.Del(strings.TrimSpace(h))
		}
	}

	w.WriteHeader(r.resp.StatusCode)

	if !r.reader.HasContent() {
		return nil
	}

	body, err := r.reader.Stream()
	if err != nil {
		return err
	}

	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("forwarding body: %w", err)
	}

	return nil
}
