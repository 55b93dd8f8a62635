// Package throttle rate-limits outbound requests with the token bucket
// from [golang.org/x/time/rate].
//
// Wrap a transport with [NewRoundTripper]:
//
//	rt, err := throttle.NewRoundTripper(
//		throttle.Config{RPS: 10, Burst: 5},
//		http.DefaultTransport,
//		throttle.WithPerHost(),
//	)
//
// Requests over the limit block until a token frees up or their context
// ends. With [WithPerHost] every host gets its own bucket, so a slow
// upstream does not starve calls to the others.
package throttle
