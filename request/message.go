package request

import (
	"net/http"

	"github.com/adamwoolhether/apibuilder/response"
)

// Message is a built request, ready to send.
type Message struct {
	req     *http.Request
	factory *Factory
}

// Request exposes the underlying request.
func (m *Message) Request() *http.Request {
	return m.req
}

// Send sends the request through the factory's Doer. It never fails: a
// transport error is recorded, with the stack at this call, in the
// returned Response.
func (m *Message) Send() *response.Response {
	f := m.factory
	opts := []response.Option{
		response.WithLogger(f.logger),
		response.WithFormatters(f.formatters),
	}

	f.logger.Debug("sending request", "method", m.req.Method, "url", m.req.URL.Redacted())

	resp, err := f.doer.Do(m.req)
	if err != nil {
		f.logger.Debug("request failed", "method", m.req.Method, "url", m.req.URL.Redacted(), "error", err)
		return response.New(resp, response.CaptureTransportError(err), opts...)
	}

	return response.New(resp, nil, opts...)
}
