package client

import (
	"net/http"

	"github.com/google/uuid"
)

// HeaderRequestID is set on outgoing requests when WithRequestID is used.
const HeaderRequestID = "X-Request-ID"

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}

// requestID is an http.RoundTripper adding a uuid X-Request-ID header.
type requestID struct {
	base http.RoundTripper
}

func (rid requestID) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(HeaderRequestID) != "" {
		return rid.base.RoundTrip(r)
	}

	cpy := r.Clone(r.Context())
	cpy.Header.Set(HeaderRequestID, uuid.NewString())
	return rid.base.RoundTrip(cpy)
}
