// Package ratelimit implements per-identity request quotas.
//
// A Limiter approximates a sliding window by weighting the previous fixed
// window's count by how much of it still overlaps the sliding window. Counters
// live in memory in a bounded LRU cache; losing them on restart can only
// under-count. Once per window, counters that no longer contribute to any
// status are evicted.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Defaults used by the server
const (
	DefaultGeneralLimit = 1000
	DefaultBatchLimit   = 100
	DefaultWindow       = time.Hour
	DefaultMaxEntries   = 100_000
)

// ErrRateLimitExceeded is matched by every *ExceededError.
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// ErrInvalidConfig is returned by New for a non-positive limit or window.
var ErrInvalidConfig = errors.New("invalid rate limit configuration")

// Status describes an identity's quota after a request was counted.
type Status struct {
	// Limit is the number of requests allowed per window
	Limit int

	// Remaining is how many more requests fit in the window. It goes
	// negative once the limit is exceeded.
	Remaining int

	// ResetAt is when the current fixed window ends
	ResetAt time.Time

	// CheckedAt is the limiter's clock reading for this status
	CheckedAt time.Time
}

// RetryAfter is how long until the current window ends.
func (s Status) RetryAfter() time.Duration {
	return max(s.ResetAt.Sub(s.CheckedAt), 0)
}

// Exceeded reports whether the counted request was over the limit.
func (s Status) Exceeded() bool {
	return s.Remaining < 0
}

// Err returns an *ExceededError when the limit was exceeded, nil otherwise.
func (s Status) Err() error {
	if !s.Exceeded() {
		return nil
	}
	return &ExceededError{
		Limit:      s.Limit,
		Remaining:  s.Remaining,
		ResetAt:    s.ResetAt,
		RetryAfter: s.RetryAfter(),
	}
}

// ExceededError carries the quota state of a rejected request.
type ExceededError struct {
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, never below 1, as
// the Retry-After header expects.
func (e *ExceededError) RetryAfterSeconds() int {
	secs := int(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return max(secs, 1)
}

// Error implements the error interface.
func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit of %d requests exceeded, resets at %s",
		e.Limit, e.ResetAt.UTC().Format(time.RFC3339))
}

// Is makes errors.Is(err, ErrRateLimitExceeded) true.
func (e *ExceededError) Is(target error) bool {
	return target == ErrRateLimitExceeded
}

// counter holds two adjacent fixed windows for one identity.
type counter struct {
	windowStart time.Time
	current     int
	previous    int
}

// Limiter counts requests per identity. It is safe for concurrent use.
type Limiter struct {
	name   string
	limit  int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	counters  *lru.Cache
	entries   map[string]*counter
	lastSweep time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter allowing limit requests per window for each
// identity, tracking at most maxEntries identities. maxEntries <= 0 uses
// DefaultMaxEntries.
func New(name string, limit int, window time.Duration, maxEntries int, opts ...Option) (*Limiter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidConfig, limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidConfig, window)
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	l := &Limiter{
		name:     name,
		limit:    limit,
		window:   window,
		now:      time.Now,
		counters: lru.New(maxEntries),
		entries:  make(map[string]*counter),
	}
	l.counters.OnEvicted = func(key lru.Key, _ interface{}) {
		delete(l.entries, key.(string))
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Name identifies the limiter in logs.
func (l *Limiter) Name() string {
	return l.name
}

// Limit returns the number of requests allowed per window.
func (l *Limiter) Limit() int {
	return l.limit
}

// Check counts one request for identity and returns the resulting status.
// Rejected requests are counted too.
func (l *Limiter) Check(identity string) Status {
	return l.observe(identity, 1)
}

// Peek returns the status of identity without counting a request.
func (l *Limiter) Peek(identity string) Status {
	return l.observe(identity, 0)
}

// Len returns the number of identities currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counters.Len()
}

func (l *Limiter) observe(identity string, n int) Status {
	now := l.now()
	windowStart := now.Truncate(l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(windowStart)

	var c *counter
	if v, ok := l.counters.Get(identity); ok {
		c = v.(*counter)
		c.advance(windowStart, l.window)
	} else {
		c = &counter{windowStart: windowStart}
		if n > 0 {
			l.counters.Add(identity, c)
			l.entries[identity] = c
		}
	}
	c.current += n

	// Fraction of the previous window still inside the sliding window.
	overlap := 1 - float64(now.Sub(windowStart))/float64(l.window)
	used := c.current + int(float64(c.previous)*overlap)

	return Status{
		Limit:     l.limit,
		Remaining: l.limit - used,
		ResetAt:   windowStart.Add(l.window),
		CheckedAt: now,
	}
}

// sweep drops counters whose windows ended before the previous window, since
// they add nothing to any status. It runs at most once per window. Callers
// hold l.mu.
func (l *Limiter) sweep(windowStart time.Time) {
	if windowStart.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = windowStart

	cutoff := windowStart.Add(-l.window)
	for identity, c := range l.entries {
		if c.windowStart.Before(cutoff) {
			l.counters.Remove(identity)
		}
	}
}

// advance rolls the counter forward to the fixed window starting at start.
// Counters idle for two windows or more start from zero.
func (c *counter) advance(start time.Time, window time.Duration) {
	switch elapsed := start.Sub(c.windowStart); {
	case elapsed <= 0:
		return
	case elapsed == window:
		c.previous = c.current
	default:
		c.previous = 0
	}
	c.current = 0
	c.windowStart = start
}
