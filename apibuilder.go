// Package apibuilder composes typed HTTP API calls: build a request from
// a URI, content and headers, send it, then classify the response into a
// result envelope or read it through raw accessors.
package apibuilder

import (
	"fmt"

	"github.com/adamwoolhether/apibuilder/client"
	"github.com/adamwoolhether/apibuilder/request"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a fresh http.Client over http.DefaultTransport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewFactory returns a request factory sending through doer.
func NewFactory(doer request.Doer, opts ...request.Option) (*request.Factory, error) {
	return request.NewFactory(doer, opts...)
}

// New builds a client from clientOpts and a factory resolving every
// request against baseURL.
func New(baseURL string, clientOpts ...client.Option) (*request.Factory, error) {
	c, err := client.Build(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("building client: %w", err)
	}

	f, err := request.NewFactory(c, request.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("building factory: %w", err)
	}

	return f, nil
}
