// Package client provides the transport behind request messages: a
// configurable [net/http] client that satisfies the request.Doer
// interface.
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//		client.WithThrottle(10, 5),
//		client.WithRequestID(),
//	)
//
// # Tracing
//
// [WithTracer] wraps every call in an OpenTelemetry span and propagates
// the span context to the server through the request headers. Without
// it a no-op tracer is used.
package client
