package throttle

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewRoundTripper_Validation(t *testing.T) {
	testCases := map[string]struct {
		cfg    Config
		opts   []Option
		expErr error
	}{
		"zero rps":       {cfg: Config{RPS: 0, Burst: 10}, expErr: ErrMustNotBeZero},
		"negative rps":   {cfg: Config{RPS: -5, Burst: 10}, expErr: ErrMustNotBeZero},
		"zero burst":     {cfg: Config{RPS: 10, Burst: 0}, expErr: ErrMustNotBeZero},
		"negative burst": {cfg: Config{RPS: 10, Burst: -5}, expErr: ErrMustNotBeZero},
		"valid":          {cfg: Config{RPS: 10, Burst: 20}},
		"valid per host": {cfg: Config{RPS: 10, Burst: 20}, opts: []Option{WithPerHost()}},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			rt, err := NewRoundTripper(tc.cfg, http.DefaultTransport, tc.opts...)

			if tc.expErr != nil {
				if !errors.Is(err, tc.expErr) {
					t.Errorf("exp err %v; got: %v", tc.expErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("exp nil err, got: %v", err)
			}
			if rt == nil {
				t.Error("exp non-nil RoundTripper")
			}
		})
	}
}

func TestNewRoundTripper_NilLogFunc(t *testing.T) {
	if _, err := NewRoundTripper(Config{RPS: 1, Burst: 1}, nil, WithLogger(nil)); err == nil {
		t.Error("expected error for nil log func")
	}
}

func TestRoundTrip_Limits(t *testing.T) {
	testCases := map[string]struct {
		cfg         Config
		numRequests int
		reqTimeout  time.Duration
		expErrs     int
		minDuration time.Duration
	}{
		"within burst": {
			cfg:         Config{RPS: 5, Burst: 5},
			numRequests: 5,
		},
		"exceed burst and wait": {
			cfg:         Config{RPS: 10, Burst: 5},
			numRequests: 8,
			reqTimeout:  time.Second,
			minDuration: 250 * time.Millisecond,
		},
		"exceed burst and time out": {
			cfg:         Config{RPS: 5, Burst: 2},
			numRequests: 5,
			reqTimeout:  50 * time.Millisecond,
			expErrs:     3,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			rt, err := NewRoundTripper(tc.cfg, http.DefaultTransport)
			if err != nil {
				t.Fatal(err)
			}
			client := &http.Client{Transport: rt}

			var wg sync.WaitGroup
			errs := make([]error, tc.numRequests)
			start := time.Now()

			for i := range tc.numRequests {
				wg.Go(func() {
					ctx := t.Context()
					if tc.reqTimeout > 0 {
						var cancel context.CancelFunc
						ctx, cancel = context.WithTimeout(ctx, tc.reqTimeout)
						defer cancel()
					}

					req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
					if err != nil {
						errs[i] = err
						return
					}

					resp, err := client.Do(req)
					if err != nil {
						errs[i] = err
						return
					}
					resp.Body.Close()
				})
			}

			wg.Wait()
			duration := time.Since(start)

			failed := 0
			for _, err := range errs {
				if err == nil {
					continue
				}
				failed++
				if !errors.Is(err, ErrWaitingFailed) {
					t.Errorf("expected ErrWaitingFailed, got: %v", err)
				}
			}

			if failed != tc.expErrs {
				t.Errorf("expected %d failed requests, got %d", tc.expErrs, failed)
			}
			if got := int(calls.Load()); got != tc.numRequests-failed {
				t.Errorf("expected %d server calls, got %d", tc.numRequests-failed, got)
			}
			if duration < tc.minDuration {
				t.Errorf("expected requests to be slowed to >= %v, took %v", tc.minDuration, duration)
			}
		})
	}
}

func TestRoundTrip_CancelledContext(t *testing.T) {
	rt, err := NewRoundTripper(Config{RPS: 1, Burst: 1}, roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Error("request should not reach the transport")
		return nil, nil
	}))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", nil)
	_, err = rt.RoundTrip(req)

	if !errors.Is(err, ErrContextEnded) || !errors.Is(err, context.Canceled) {
		t.Errorf("expected ErrContextEnded wrapping context.Canceled, got: %v", err)
	}
}

func TestRoundTrip_PerHost(t *testing.T) {
	ok := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt, err := NewRoundTripper(Config{RPS: 1, Burst: 1}, ok, WithPerHost())
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()

	for _, host := range []string{"http://a.example", "http://b.example", "http://c.example"} {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, host, nil)
		if _, err := rt.RoundTrip(req); err != nil {
			t.Errorf("expected each host to have its own bucket, %s failed: %v", host, err)
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://a.example/again", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, ErrWaitingFailed) {
		t.Errorf("expected second call to a.example to be throttled, got: %v", err)
	}
}

func TestRoundTrip_LogsWait(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ok := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})

	rt, err := NewRoundTripper(Config{RPS: 50, Burst: 1}, ok, WithLogger(func() *slog.Logger { return logger }))
	if err != nil {
		t.Fatal(err)
	}

	for range 2 {
		req, _ := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://example.com/x", nil)
		if _, err := rt.RoundTrip(req); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if !strings.Contains(buf.String(), "throttle tokens exhausted") || !strings.Contains(buf.String(), "throttle wait complete") {
		t.Errorf("expected wait to be logged, got logs:\n%s", buf.String())
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
