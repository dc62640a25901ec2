package vireo

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Callback receives the outcome of one attempt. Exactly one of resp and err
// is non-nil.
//
// With a retry policy of multiple attempts, a caller can observe more than
// one invocation for a single Execute call: each attempt reports its own
// outcome, and a failure may be followed by the outcome of the retry it
// scheduled. Treat a failure as potentially non-final when the request
// carries a non-trivial retry policy.
type Callback[T any] func(resp *Response[T], err error)

// Engine orchestrates request execution: cache lookup or transport
// dispatch, response interpretation and pagination extraction, failure
// classification, retry scheduling, and event notification.
//
// An Engine is constructed once by the host application's startup path and
// injected wherever requests are issued; all methods are safe for
// concurrent use.
//
//	hub := vireo.NewHub()
//	engine, err := vireo.New(vireo.DefaultConfig().
//	    WithBaseURL("https://api.vireo.example").
//	    WithAccessToken(token).
//	    WithNotifier(hub))
type Engine struct {
	config   *Config
	executor HTTPExecutor
	cache    ResponseCache
	notifier Notifier
	observer Observer
	log      logrus.FieldLogger
}

// New creates an engine from the given configuration. A nil config uses
// DefaultConfig.
func New(config *Config) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	executor := config.Executor
	if executor == nil {
		var err error
		executor, err = NewHTTPExecutor(config)
		if err != nil {
			return nil, err
		}
	}

	return &Engine{
		config:   config,
		executor: executor,
		cache:    config.Cache,
		notifier: config.Notifier,
		observer: config.Observer,
		log:      config.Logger,
	}, nil
}

// Execute dispatches the request and returns a token for the issued
// attempt. The completion callback fires asynchronously, never from inside
// Execute; see Callback for the multiple-invocation semantics under retry.
//
// When req.UseCache is true the request is served from the response cache
// only: a hit completes successfully with Cached set and no network call is
// made, a miss fails with ErrCachedResponseNotFound and is never retried.
// The returned token carries no cancellable work on this path.
func Execute[T any](e *Engine, req Request[T], fn Callback[T]) *RequestToken {
	if req.UseCache {
		return dispatchCached(e, req, fn)
	}
	return dispatchNetwork(e, req, fn)
}

// RemoveCached deletes one cached entry by key.
func (e *Engine) RemoveCached(ctx context.Context, key string) error {
	return e.cache.Remove(ctx, key)
}

// ClearCache removes every cached entry.
func (e *Engine) ClearCache(ctx context.Context) error {
	return e.cache.Clear(ctx)
}

// Uncache deletes the cached entry belonging to a request.
func Uncache[T any](ctx context.Context, e *Engine, req Request[T]) error {
	return e.cache.Remove(ctx, req.CacheIdentity())
}

// dispatchCached serves the request from the cache on a worker goroutine,
// so the completion callback is asynchronous even for memory-backed caches.
func dispatchCached[T any](e *Engine, req Request[T], fn Callback[T]) *RequestToken {
	attemptID := uuid.NewString()
	started := time.Now()
	e.observer.OnRequestStart(attemptID, req.Method, req.Path)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.config.Timeout)
		defer cancel()

		key := req.CacheIdentity()
		raw, err := e.cache.Get(ctx, key)
		if err != nil {
			e.observer.OnCacheMiss(key)
			missErr := NewError(KindCachedResponseNotFound, "no cached response for request", err).withPath(req.Path)
			// Cache misses are never retried: retry exists for transient
			// network failure only.
			finishFailure(e, req, attemptID, started, nil, missErr, false, fn)
			return
		}

		e.observer.OnCacheHit(key)
		finishSuccess(e, req, attemptID, started, raw, true, fn)
	}()

	return newRequestToken(req.Path, nil)
}

// dispatchNetwork issues the request through the HTTP executor.
func dispatchNetwork[T any](e *Engine, req Request[T], fn Callback[T]) *RequestToken {
	attemptID := uuid.NewString()
	started := time.Now()
	e.observer.OnRequestStart(attemptID, req.Method, req.Path)

	headers := e.headers()
	call := Call{
		Method:     req.Method,
		Path:       req.Path,
		Parameters: req.Parameters,
		Headers:    headers,
	}

	handle := e.executor.Perform(call,
		func(body any) {
			finishSuccess(e, req, attemptID, started, body, false, fn)
		},
		func(err error) {
			finishFailure(e, req, attemptID, started, headers, err, true, fn)
		},
	)

	if handle == nil {
		// The executor refused the request outright: a programmer or
		// configuration fault, worth shouting about beyond the error path.
		e.log.WithFields(logrus.Fields{
			"method": req.Method,
			"path":   req.Path,
		}).Error("executor produced no task for request; request is malformed")

		malformed := NewError(KindRequestMalformed, "executor produced no task", nil).withPath(req.Path)
		go finishFailure(e, req, attemptID, started, headers, malformed, true, fn)
		return newRequestToken(req.Path, nil)
	}

	return newRequestToken(req.Path, handle)
}

// finishSuccess interprets a raw result from cache or network.
func finishSuccess[T any](e *Engine, req Request[T], attemptID string, started time.Time, body any, cached bool, fn Callback[T]) {
	if req.noContent {
		// Success is signalled by an empty or non-object body; synthesize
		// the empty model without mapping.
		resp := &Response[T]{Cached: cached}
		e.observer.OnRequestEnd(attemptID, req.Method, req.Path, time.Since(started), nil)
		fn(resp, nil)
		return
	}

	raw, ok := body.(map[string]any)
	if !ok {
		err := NewError(KindInvalidResponseBody, "response body is not a JSON object", nil).withPath(req.Path)
		finishFailure(e, req, attemptID, started, nil, err, true, fn)
		return
	}

	mapper := req.Mapper
	if mapper == nil {
		mapper = MapJSON[T]
	}

	model, err := mapper(raw, req.ModelKeyPath)
	if err != nil {
		// A cached body that no longer maps would otherwise be served
		// forever; drop it so the next cache-first lookup misses cleanly.
		ctx, cancel := context.WithTimeout(context.Background(), e.config.Timeout)
		if removeErr := e.cache.Remove(ctx, req.CacheIdentity()); removeErr != nil {
			e.log.WithError(removeErr).WithField("path", req.Path).Warn("removing unmappable cache entry")
		}
		cancel()

		mapErr := NewError(KindMappingFailed, "mapping response into model", err).withPath(req.Path)
		finishFailure(e, req, attemptID, started, nil, mapErr, true, fn)
		return
	}

	resp := &Response[T]{
		Model:  model,
		Raw:    raw,
		Cached: cached,
		Page:   parsePage(req, raw),
	}

	// Persist only after mapping succeeded, so an unmappable body can
	// never poison the cache.
	if req.CacheResponse {
		ctx, cancel := context.WithTimeout(context.Background(), e.config.Timeout)
		if err := e.cache.Set(ctx, req.CacheIdentity(), raw); err != nil {
			e.log.WithError(err).WithField("path", req.Path).Warn("persisting response to cache")
		}
		cancel()
	}

	e.observer.OnRequestEnd(attemptID, req.Method, req.Path, time.Since(started), nil)
	fn(resp, nil)
}

// finishFailure classifies a failure, posts at most one engine event,
// schedules at most one retry, and reports the failure to the callback.
// Cancellations terminate silently. headers are the outgoing headers of the
// failed attempt when it reached the network, used to recover the bearer
// token for the invalid-token event.
func finishFailure[T any](e *Engine, req Request[T], attemptID string, started time.Time, headers http.Header, err error, allowRetry bool, fn Callback[T]) {
	if err == nil {
		err = NewError(KindUndefined, "failure reported without an error", nil).withPath(req.Path)
	}

	kind := classify(err)
	if kind == KindCancelled {
		// A deliberate exit, not a failure: no classification, no
		// callback, no retry.
		return
	}

	switch kind {
	case KindServiceUnavailable:
		e.notifier.Post(Event{Kind: EventServiceUnavailable})
	case KindInvalidToken:
		e.notifier.Post(Event{Kind: EventInvalidToken, Token: bearerToken(headers)})
	}

	if allowRetry && req.RetryPolicy.shouldRetry() {
		delay := req.RetryPolicy.InitialDelay()
		derived := req.nextAttempt()
		e.observer.OnRetryScheduled(attemptID, req.Method, req.Path, derived.RetryPolicy.AttemptsRemaining(), delay, err)
		e.log.WithFields(logrus.Fields{
			"method":        req.Method,
			"path":          req.Path,
			"delay":         delay,
			"attempts_left": derived.RetryPolicy.AttemptsRemaining(),
		}).Debug("scheduling retry")

		// Fire-and-forget with respect to the original token: the retry
		// attempt dispatches on its own once the current delay elapses.
		time.AfterFunc(delay, func() {
			Execute(e, derived, fn)
		})
	}

	e.observer.OnRequestEnd(attemptID, req.Method, req.Path, time.Since(started), err)

	// The attempt's own outcome is always reported, even when a retry is
	// queued behind it.
	fn(nil, err)
}

// headers assembles the outgoing headers for one attempt.
func (e *Engine) headers() http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set("User-Agent", e.config.UserAgent)
	if e.config.AccessToken != "" {
		h.Set("Authorization", "Bearer "+e.config.AccessToken)
	}
	for key, value := range e.config.Headers {
		h.Set(key, value)
	}
	return h
}

// bearerToken recovers the bearer credential from an Authorization header,
// stripped of its prefix. Empty when it cannot be recovered.
func bearerToken(headers http.Header) string {
	if headers == nil {
		return ""
	}
	value := headers.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(value, prefix) {
		return ""
	}
	return strings.TrimPrefix(value, prefix)
}
