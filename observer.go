package vireo

import "time"

// Observer provides hooks for monitoring engine operations. Implement it to
// track latencies and hit rates or to integrate with an observability stack;
// methods should be fast and non-blocking.
//
// Each dispatched attempt gets a unique id, letting implementations
// correlate OnRequestStart with OnRequestEnd across concurrent attempts. The
// prommetrics package exports these hooks as Prometheus metrics and the
// tracing package turns them into OpenTelemetry spans.
type Observer interface {
	// OnRequestStart is called when an attempt is dispatched, on both the
	// cache and the network path.
	OnRequestStart(id string, method Method, path string)

	// OnRequestEnd is called when an attempt completes. err is nil on
	// success. Cancelled attempts never reach OnRequestEnd.
	OnRequestEnd(id string, method Method, path string, duration time.Duration, err error)

	// OnRetryScheduled is called when a failed attempt schedules a retry.
	// attemptsLeft counts the attempts the derived request still allows and
	// delay is the wait before it is dispatched.
	OnRetryScheduled(id string, method Method, path string, attemptsLeft uint, delay time.Duration, err error)

	// OnCacheHit is called when a cache-first request finds an entry.
	OnCacheHit(key string)

	// OnCacheMiss is called when a cache-first request finds nothing.
	OnCacheMiss(key string)
}

// NoopObserver is the default Observer. It does nothing.
type NoopObserver struct{}

// OnRequestStart does nothing.
func (NoopObserver) OnRequestStart(id string, method Method, path string) {}

// OnRequestEnd does nothing.
func (NoopObserver) OnRequestEnd(id string, method Method, path string, duration time.Duration, err error) {
}

// OnRetryScheduled does nothing.
func (NoopObserver) OnRetryScheduled(id string, method Method, path string, attemptsLeft uint, delay time.Duration, err error) {
}

// OnCacheHit does nothing.
func (NoopObserver) OnCacheHit(key string) {}

// OnCacheMiss does nothing.
func (NoopObserver) OnCacheMiss(key string) {}

// CompositeObserver fans every hook out to multiple observers in order. A
// panicking observer is isolated so it cannot affect the others.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver combines multiple observers into one.
func NewCompositeObserver(observers ...Observer) *CompositeObserver {
	return &CompositeObserver{observers: observers}
}

func (c *CompositeObserver) each(fn func(Observer)) {
	for _, obs := range c.observers {
		func() {
			defer func() { _ = recover() }()
			fn(obs)
		}()
	}
}

// OnRequestStart notifies all observers.
func (c *CompositeObserver) OnRequestStart(id string, method Method, path string) {
	c.each(func(o Observer) { o.OnRequestStart(id, method, path) })
}

// OnRequestEnd notifies all observers.
func (c *CompositeObserver) OnRequestEnd(id string, method Method, path string, duration time.Duration, err error) {
	c.each(func(o Observer) { o.OnRequestEnd(id, method, path, duration, err) })
}

// OnRetryScheduled notifies all observers.
func (c *CompositeObserver) OnRetryScheduled(id string, method Method, path string, attemptsLeft uint, delay time.Duration, err error) {
	c.each(func(o Observer) { o.OnRetryScheduled(id, method, path, attemptsLeft, delay, err) })
}

// OnCacheHit notifies all observers.
func (c *CompositeObserver) OnCacheHit(key string) {
	c.each(func(o Observer) { o.OnCacheHit(key) })
}

// OnCacheMiss notifies all observers.
func (c *CompositeObserver) OnCacheMiss(key string) {
	c.each(func(o Observer) { o.OnCacheMiss(key) })
}
