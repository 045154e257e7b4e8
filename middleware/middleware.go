// Package middleware provides observability and cross-cutting wrappers for
// text encoders (logging, metrics, caching, retry, rate limiting).
package middleware

import (
	"context"
	"math"
	"sync/atomic"
	"time"

	"github.com/klejdi94/clipbench/encoder"
)

// Middleware wraps a text encoder with additional behavior.
type Middleware func(encoder.TextEncoder) encoder.TextEncoder

// Chain wraps e with all middlewares in order (first middleware is outermost).
func Chain(e encoder.TextEncoder, mws ...Middleware) encoder.TextEncoder {
	for i := len(mws) - 1; i >= 0; i-- {
		e = mws[i](e)
	}
	return e
}

// loggingEncoder logs encode calls and failures.
type loggingEncoder struct {
	next encoder.TextEncoder
	logf func(format string, args ...interface{})
}

// Logging returns a middleware that logs each encode call (input size, error).
func Logging(logf func(format string, args ...interface{})) Middleware {
	if logf == nil {
		logf = func(string, ...interface{}) {}
	}
	return func(e encoder.TextEncoder) encoder.TextEncoder {
		return &loggingEncoder{next: e, logf: logf}
	}
}

func (l *loggingEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	l.logf("encode text_len=%d", len(text))
	vec, err := l.next.EncodeText(ctx, text)
	if err != nil {
		l.logf("encode error: %v", err)
		return nil, err
	}
	return vec, nil
}

func (l *loggingEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	l.logf("encode batch=%d", len(texts))
	vecs, err := l.next.EncodeTextBatch(ctx, texts)
	if err != nil {
		l.logf("encode batch error: %v", err)
		return nil, err
	}
	return vecs, nil
}

func (l *loggingEncoder) Dimension() int {
	return l.next.Dimension()
}

// metricsEncoder counts requests, errors, and encoded texts.
type metricsEncoder struct {
	next     encoder.TextEncoder
	requests atomic.Uint64
	errors   atomic.Uint64
	texts    atomic.Uint64
}

// Metrics returns a middleware that counts encode requests, errors, and the
// number of texts encoded. Counters are exposed via the returned handle.
func Metrics() (Middleware, *MetricsCounters) {
	m := &metricsEncoder{}
	return func(e encoder.TextEncoder) encoder.TextEncoder {
		m.next = e
		return m
	}, &MetricsCounters{m: m}
}

// MetricsCounters provides read access to collected metrics.
type MetricsCounters struct {
	m *metricsEncoder
}

func (c *MetricsCounters) Requests() uint64 { return c.m.requests.Load() }
func (c *MetricsCounters) Errors() uint64   { return c.m.errors.Load() }
func (c *MetricsCounters) Texts() uint64    { return c.m.texts.Load() }

func (m *metricsEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	m.requests.Add(1)
	vec, err := m.next.EncodeText(ctx, text)
	if err != nil {
		m.errors.Add(1)
		return nil, err
	}
	m.texts.Add(1)
	return vec, nil
}

func (m *metricsEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.requests.Add(1)
	vecs, err := m.next.EncodeTextBatch(ctx, texts)
	if err != nil {
		m.errors.Add(1)
		return nil, err
	}
	m.texts.Add(uint64(len(texts)))
	return vecs, nil
}

func (m *metricsEncoder) Dimension() int {
	return m.next.Dimension()
}

// BackoffFunc returns delay before the next retry (attempt is 0-based).
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff returns delay = base * 2^attempt, capped at max.
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := base * time.Duration(math.Pow(2, float64(attempt)))
		if d > max {
			return max
		}
		return d
	}
}

// retryEncoder retries failed encode calls. Useful for remote encoders with
// transient failures; local ONNX encoders should not need it.
type retryEncoder struct {
	next       encoder.TextEncoder
	maxRetries int
	backoff    BackoffFunc
}

// Retry returns a middleware that retries failed calls up to maxRetries times.
func Retry(maxRetries int, backoff BackoffFunc) Middleware {
	if backoff == nil {
		backoff = ExponentialBackoff(500*time.Millisecond, 30*time.Second)
	}
	return func(e encoder.TextEncoder) encoder.TextEncoder {
		return &retryEncoder{next: e, maxRetries: maxRetries, backoff: backoff}
	}
}

func (r *retryEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := r.retry(ctx, func() error {
		var e error
		vec, e = r.next.EncodeText(ctx, text)
		return e
	})
	return vec, err
}

func (r *retryEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vecs [][]float32
	err := r.retry(ctx, func() error {
		var e error
		vecs, e = r.next.EncodeTextBatch(ctx, texts)
		return e
	})
	return vecs, err
}

func (r *retryEncoder) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == r.maxRetries {
			break
		}
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (r *retryEncoder) Dimension() int {
	return r.next.Dimension()
}

// rateLimitEncoder limits requests per window.
type rateLimitEncoder struct {
	next   encoder.TextEncoder
	tokens chan struct{}
}

// RateLimit returns a middleware that allows at most limit requests per window
// (e.g. 100 per time.Minute). The token refill goroutine has no shutdown path:
// a rate-limited encoder lives for the rest of the process.
func RateLimit(limit int, window time.Duration) Middleware {
	return func(e encoder.TextEncoder) encoder.TextEncoder {
		r := &rateLimitEncoder{next: e, tokens: make(chan struct{}, limit)}
		for i := 0; i < limit; i++ {
			r.tokens <- struct{}{}
		}
		go func() {
			tick := window / time.Duration(limit)
			if tick < time.Millisecond {
				tick = time.Millisecond
			}
			for range time.Tick(tick) {
				select {
				case r.tokens <- struct{}{}:
				default:
				}
			}
		}()
		return r
	}
}

func (r *rateLimitEncoder) EncodeText(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-r.tokens:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.next.EncodeText(ctx, text)
}

func (r *rateLimitEncoder) EncodeTextBatch(ctx context.Context, texts []string) ([][]float32, error) {
	select {
	case <-r.tokens:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.next.EncodeTextBatch(ctx, texts)
}

func (r *rateLimitEncoder) Dimension() int {
	return r.next.Dimension()
}
