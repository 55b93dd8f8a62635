package request

import (
	"errors"
	"net/http"
	"strings"
)

// ErrNoContentForHeader is returned by Build when a content header is set
// on a request without content.
var ErrNoContentForHeader = errors.New("content header set without content")

const bearerPrefix = "Bearer "

// Headers sets request and content headers. Every setter replaces the
// previous values of its header.
type Headers struct {
	request http.Header
	content http.Header
}

// Set replaces the values of a request header.
func (h *Headers) Set(key string, values ...string) *Headers {
	h.request.Del(key)
	for _, v := range values {
		h.request.Add(key, v)
	}

	return h
}

// AcceptJSON asks the server for a JSON response.
func (h *Headers) AcceptJSON() *Headers {
	return h.Set("Accept", "application/json")
}

// SetContent replaces the values of a content header, such as
// Content-Language. The request must carry content.
func (h *Headers) SetContent(key string, values ...string) *Headers {
	h.content.Del(key)
	for _, v := range values {
		h.content.Add(key, v)
	}

	return h
}

func bearer(token string) string {
	if strings.HasPrefix(token, bearerPrefix) {
		return token
	}

	return bearerPrefix + token
}
