package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config holds the sustained requests per second and the burst size.
type Config struct {
	RPS   int
	Burst int
}

// Validate reports whether both limits are positive.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}

	return nil
}

// Option configures the round tripper built by NewRoundTripper.
type Option func(*options) error

type options struct {
	logFn   func() *slog.Logger
	perHost bool
}

// WithLogger sets a func resolving the logger at request time, so the
// logger may be swapped after the transport is built. Waits are only
// logged when a logger is set.
func WithLogger(logFn func() *slog.Logger) Option {
	return func(opts *options) error {
		if logFn == nil {
			return errors.New("log func must not be nil")
		}
		opts.logFn = logFn
		return nil
	}
}

// WithPerHost keeps a separate bucket for every request host.
func WithPerHost() Option {
	return func(opts *options) error {
		opts.perHost = true
		return nil
	}
}

// throttle is an http.RoundTripper holding one limiter, or one per host.
type throttle struct {
	cfg     Config
	next    http.RoundTripper
	logFn   func() *slog.Logger
	perHost bool

	mu       sync.Mutex
	shared   *rate.Limiter
	limiters map[string]*rate.Limiter
}

// NewRoundTripper wraps next with a token bucket limiter. The returned
// round tripper is safe for concurrent use.
func NewRoundTripper(cfg Config, next http.RoundTripper, optFns ...Option) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if next == nil {
		next = http.DefaultTransport
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying throttle option: %w", err)
		}
	}

	t := &throttle{
		cfg:     cfg,
		next:    next,
		logFn:   opts.logFn,
		perHost: opts.perHost,
	}

	if t.perHost {
		t.limiters = make(map[string]*rate.Limiter)
	} else {
		t.shared = t.newLimiter()
	}

	return t, nil
}

func (t *throttle) newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Limit(t.cfg.RPS), t.cfg.Burst)
}

func (t *throttle) limiter(host string) *rate.Limiter {
	if !t.perHost {
		return t.shared
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[host]
	if !ok {
		l = t.newLimiter()
		t.limiters[host] = l
	}

	return l
}

func (t *throttle) logger() *slog.Logger {
	if t.logFn == nil {
		return nil
	}

	return t.logFn()
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	limiter := t.limiter(r.URL.Host)

	logger := t.logger()
	if logger == nil || !limiter.Allow() {
		if err := t.wait(r, limiter, logger); err != nil {
			return nil, err
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}

// wait blocks for a token. Allow already took one when it succeeded, so
// wait only runs without a logger or after Allow refused.
func (t *throttle) wait(r *http.Request, limiter *rate.Limiter, logger *slog.Logger) error {
	if logger != nil {
		logger.Info("throttle tokens exhausted", "rate", t.cfg.RPS, "burst", t.cfg.Burst, "host", r.URL.Host, "path", r.URL.Path)

		start := time.Now()
		defer func() {
			logger.Info("throttle wait complete", "waited", time.Since(start).String(), "host", r.URL.Host)
		}()
	}

	if err := limiter.Wait(r.Context()); err != nil {
		return fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	return nil
}
