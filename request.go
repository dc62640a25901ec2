package vireo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Method is the HTTP method of a request.
type Method string

// Supported HTTP methods.
const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// RetryPolicy governs whether and how a failed attempt is automatically
// repeated. The zero value disables retries.
//
// A policy with multiple attempts follows exponential backoff: each derived
// attempt carries one fewer remaining attempt and at least double the delay.
//
// Example:
//
//	req := vireo.Get[VideoList]("/videos").
//	    WithRetry(vireo.RetryMultiple(3, time.Second))
type RetryPolicy struct {
	attempts     uint
	initialDelay time.Duration
}

// RetryNone returns a policy that never retries. This is the default.
func RetryNone() RetryPolicy {
	return RetryPolicy{}
}

// RetryMultiple returns a policy allowing up to attempts total attempts,
// waiting initialDelay before the first retry and doubling the delay on
// every subsequent one.
func RetryMultiple(attempts uint, initialDelay time.Duration) RetryPolicy {
	return RetryPolicy{attempts: attempts, initialDelay: initialDelay}
}

// AttemptsRemaining returns the number of attempts the policy still allows,
// including the current one. Zero means retries are disabled.
func (p RetryPolicy) AttemptsRemaining() uint {
	return p.attempts
}

// InitialDelay returns the delay before the next retry.
func (p RetryPolicy) InitialDelay() time.Duration {
	return p.initialDelay
}

// shouldRetry reports whether a failure of the current attempt schedules
// another one. A policy with a single remaining attempt does not retry: the
// attempt that just failed was the last.
func (p RetryPolicy) shouldRetry() bool {
	return p.attempts > 1
}

// next derives the policy for the retry attempt: one fewer attempt
// remaining, double the delay.
func (p RetryPolicy) next() RetryPolicy {
	return RetryPolicy{attempts: p.attempts - 1, initialDelay: p.initialDelay * 2}
}

// NoContent is the expected-model type for endpoints whose success is
// signalled by an empty or non-object body. Requests built with
// NoContentRequest bypass model mapping entirely.
type NoContent struct{}

// Request describes one API call: method, path, parameters, caching policy,
// retry policy, and the key path into the response that locates the object
// to map into T.
//
// Requests are immutable values. The With* methods return modified copies,
// and the engine itself only ever derives copies (for retries and for
// pagination links), never mutates.
//
// Example:
//
//	req := vireo.Get[VideoList]("/videos").
//	    WithParameters(map[string]any{"page": 1, "per_page": 20}).
//	    WithCacheWrite().
//	    WithRetry(vireo.RetryMultiple(3, time.Second))
type Request[T any] struct {
	// Method is the HTTP method.
	Method Method
	// Path is the request path, absolute or relative to the engine's base URL.
	Path string
	// Parameters is the parameter bag: encoded into the query string for
	// GET and DELETE, and into a JSON body for POST, PUT and PATCH.
	Parameters map[string]any
	// ModelKeyPath is a dotted path into the raw response locating the
	// object to map. Empty means the whole response maps into T.
	ModelKeyPath string
	// UseCache makes the engine serve the request from the response cache
	// only; no network call is issued, and a missing entry is a failure.
	UseCache bool
	// CacheResponse persists a successfully mapped response under the
	// request's cache identity.
	CacheResponse bool
	// CacheKey overrides the derived cache identity when non-empty.
	CacheKey string
	// RetryPolicy governs automatic retries of transient failures.
	RetryPolicy RetryPolicy
	// Mapper overrides the default JSON mapper when non-nil.
	Mapper Mapper[T]

	// noContent marks requests built with NoContentRequest; set at the
	// call site, never inferred from T at run time.
	noContent bool
}

// Get builds a GET request expecting a model of type T.
func Get[T any](path string) Request[T] {
	return Request[T]{Method: MethodGet, Path: path}
}

// Post builds a POST request expecting a model of type T.
func Post[T any](path string) Request[T] {
	return Request[T]{Method: MethodPost, Path: path}
}

// Put builds a PUT request expecting a model of type T.
func Put[T any](path string) Request[T] {
	return Request[T]{Method: MethodPut, Path: path}
}

// Patch builds a PATCH request expecting a model of type T.
func Patch[T any](path string) Request[T] {
	return Request[T]{Method: MethodPatch, Path: path}
}

// Delete builds a DELETE request expecting a model of type T.
func Delete[T any](path string) Request[T] {
	return Request[T]{Method: MethodDelete, Path: path}
}

// NoContentRequest builds a request for an endpoint whose success carries no
// body worth mapping. The engine synthesizes an empty model on success
// instead of invoking the mapper.
//
// Example:
//
//	req := vireo.NoContentRequest(vireo.MethodDelete, "/videos/1234")
func NoContentRequest(method Method, path string) Request[NoContent] {
	return Request[NoContent]{Method: method, Path: path, noContent: true}
}

// WithParameters returns a copy of the request with the given parameter bag.
func (r Request[T]) WithParameters(params map[string]any) Request[T] {
	r.Parameters = params
	return r
}

// WithModelKeyPath returns a copy of the request with the given dotted key
// path into the raw response.
func (r Request[T]) WithModelKeyPath(keyPath string) Request[T] {
	r.ModelKeyPath = keyPath
	return r
}

// WithCacheRead returns a copy of the request that is served from the
// response cache only. Cache-first and network-first are mutually exclusive
// per request: a cache miss reports ErrCachedResponseNotFound rather than
// falling through to the network.
func (r Request[T]) WithCacheRead() Request[T] {
	r.UseCache = true
	return r
}

// WithCacheWrite returns a copy of the request that persists a successfully
// mapped response to the cache.
func (r Request[T]) WithCacheWrite() Request[T] {
	r.CacheResponse = true
	return r
}

// WithCacheKey returns a copy of the request with an explicit cache key,
// overriding the identity derived from method, path and parameters.
func (r Request[T]) WithCacheKey(key string) Request[T] {
	r.CacheKey = key
	return r
}

// WithRetry returns a copy of the request with the given retry policy.
func (r Request[T]) WithRetry(policy RetryPolicy) Request[T] {
	r.RetryPolicy = policy
	return r
}

// WithMapper returns a copy of the request with a custom model mapper.
func (r Request[T]) WithMapper(m Mapper[T]) Request[T] {
	r.Mapper = m
	return r
}

// CacheIdentity returns the stable cache key for the request: the explicit
// CacheKey when set, otherwise a digest of method, path and parameters. The
// derived identity is order-insensitive with respect to the parameter bag.
func (r Request[T]) CacheIdentity() string {
	if r.CacheKey != "" {
		return r.CacheKey
	}
	h := sha256.New()
	fmt.Fprintf(h, "%s %s", r.Method, r.Path)
	if len(r.Parameters) > 0 {
		keys := make([]string, 0, len(r.Parameters))
		for k := range r.Parameters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "&%s=%v", k, r.Parameters[k])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// nextAttempt derives the request issued by a scheduled retry. Everything is
// preserved except the retry policy, which loses one attempt and doubles its
// delay.
func (r Request[T]) nextAttempt() Request[T] {
	r.RetryPolicy = r.RetryPolicy.next()
	return r
}

// following derives the sibling request that fetches a pagination link: same
// model type, method, key path and cache/retry policies, new path. The
// server-provided link carries its own query string, so the parameter bag is
// dropped and the cache identity is re-derived from the new path.
func (r Request[T]) following(path string) Request[T] {
	r.Path = path
	r.Parameters = nil
	r.CacheKey = ""
	return r
}
