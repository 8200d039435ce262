package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yuku/connpool/internal/metrics"
)

// NoKey is the key for callers that need a single, global limit.
// It behaves exactly like any other key.
const NoKey = ""

// Limiter decides whether enough time has passed since the last accepted
// action for a key. The zero value is not usable; use New.
type Limiter struct {
	mu      sync.Mutex
	last    map[string]time.Time // protected by mu
	now     func() time.Time
	metrics *metrics.RateLimit
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now as the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithMetrics registers the limiter's decision counter on reg under name.
func WithMetrics(reg prometheus.Registerer, name string) Option {
	return func(l *Limiter) {
		l.metrics = metrics.NewRateLimit(reg, name)
	}
}

// New creates an empty Limiter.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryAccept reports whether an action for key may run now, and if so records
// now as the key's last accepted time. A key never seen before is accepted.
// A minInterval of zero or less always accepts.
//
// The read, comparison and write happen under one lock.
func (l *Limiter) TryAccept(key string, minInterval time.Duration) bool {
	l.mu.Lock()
	now := l.now()
	last, seen := l.last[key]
	accepted := minInterval <= 0 || !seen || now.Sub(last) >= minInterval
	if accepted {
		l.last[key] = now
	}
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.Decision(accepted)
	}
	return accepted
}

// Call runs callback only if TryAccept accepts.
func (l *Limiter) Call(key string, minInterval time.Duration, callback func()) {
	if l.TryAccept(key, minInterval) {
		callback()
	}
}

// CallReporting always runs callback with the result of TryAccept.
func (l *Limiter) CallReporting(key string, minInterval time.Duration, callback func(accepted bool)) {
	callback(l.TryAccept(key, minInterval))
}

// Len returns the number of keys the Limiter has recorded.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.last)
}
