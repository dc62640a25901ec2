package vireo

import "sync"

// TaskHandle represents cancellable in-flight work owned by an HTTPExecutor.
type TaskHandle interface {
	// Cancel aborts the work. Best-effort; an attempt that already
	// completed stays completed.
	Cancel()
}

// RequestToken is the handle returned by Execute for one dispatched attempt.
// For network dispatches it wraps the executor's live task; cache dispatches
// carry no cancellable work, so cancelling them is a no-op.
//
// A token only ever cancels the attempt it was issued for. It does not
// prevent a retry timer that was already scheduled from firing.
type RequestToken struct {
	path string

	mu        sync.Mutex
	handle    TaskHandle
	cancelled bool
}

// newRequestToken builds a token for the given request path. handle may be
// nil for cache-served dispatches.
func newRequestToken(path string, handle TaskHandle) *RequestToken {
	return &RequestToken{path: path, handle: handle}
}

// Path returns the path of the dispatched request.
func (t *RequestToken) Path() string {
	return t.path
}

// Cancel aborts the in-flight attempt, if any. Safe to call multiple times.
// The cancelled attempt's completion callback is suppressed.
func (t *RequestToken) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled {
		return
	}
	t.cancelled = true
	if t.handle != nil {
		t.handle.Cancel()
	}
}
