// Package vireo is the request-execution core of the Go client for the
// Vireo media-platform API.
//
// The package turns a declarative Request into either a cached result or a
// live network call, classifies failures, retries transient ones with
// exponential backoff, and exposes the API's cursor pagination as chained
// follow-up requests.
//
// # Executing requests
//
// Build an Engine once at startup and issue requests through Execute. The
// completion callback always fires asynchronously:
//
//	engine, err := vireo.New(vireo.DefaultConfig().
//	    WithBaseURL("https://api.vireo.example").
//	    WithAccessToken(token))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	req := vireo.Get[VideoList]("/videos").
//	    WithParameters(map[string]any{"page": 1, "per_page": 20})
//
//	done := make(chan struct{})
//	vireo.Execute(engine, req, func(resp *vireo.Response[VideoList], err error) {
//	    defer close(done)
//	    if err != nil {
//	        log.Printf("listing videos: %v", err)
//	        return
//	    }
//	    if resp.Page != nil && resp.Page.Next != nil {
//	        // *resp.Page.Next fetches the following page with the same
//	        // method, model type and policies.
//	    }
//	})
//	<-done
//
// # Caching
//
// A request built with WithCacheWrite persists its successfully mapped raw
// body under the request's cache identity; a request built with
// WithCacheRead is answered from the cache only, reporting
// ErrCachedResponseNotFound on a miss instead of touching the network. The
// two paths are mutually exclusive per request. Entries that stop mapping
// into their model are removed automatically.
//
// The default cache lives in memory; the rediscache and pgcache packages
// provide Redis- and Postgres-backed implementations, and TieredCache
// layers a fast tier over a durable one.
//
// # Failures, retries and events
//
// Errors delivered to callbacks match the package sentinels via errors.Is.
// Requests carrying RetryMultiple are retried on failure with exponential
// backoff; every attempt reports its own outcome, so callers treat a
// failure as potentially non-final while attempts remain.
//
// Service-health and authentication conditions are additionally announced
// through the Notifier as events (EventServiceUnavailable,
// EventInvalidToken) for cross-cutting concerns like token refresh flows;
// subscribe through a Hub injected at engine construction.
package vireo
