package vireo

import (
	"errors"
	"fmt"
)

// Common errors returned by the engine. These can be used with errors.Is()
// to check for specific failure conditions.
//
// Example:
//
//	vireo.Execute(engine, req, func(resp *vireo.Response[Video], err error) {
//	    if errors.Is(err, vireo.ErrCachedResponseNotFound) {
//	        // Nothing cached for this request, issue a network request instead
//	    } else if errors.Is(err, vireo.ErrServiceUnavailable) {
//	        // Backend is temporarily down
//	    }
//	})
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCancelled marks a deliberately cancelled attempt. The engine never
	// delivers it through a completion callback; it exists so executors can
	// signal cancellation distinctly from failure.
	ErrCancelled = errors.New("request cancelled")

	// ErrCachedResponseNotFound is returned on the cache-first path when no
	// entry exists for the request's cache key.
	ErrCachedResponseNotFound = errors.New("cached response not found")

	// ErrRequestMalformed is returned when the executor could not produce a
	// task handle for the request. This is a programmer or configuration
	// fault, not a transient condition.
	ErrRequestMalformed = errors.New("request malformed")

	// ErrInvalidResponseBody is returned when the network produced a body
	// that is not a JSON object while a model was expected.
	ErrInvalidResponseBody = errors.New("invalid response body")

	// ErrMappingFailed is returned when the model mapper rejected the raw
	// body. The cache entry for the request's key is removed as a side
	// effect so a stale shape is never served again.
	ErrMappingFailed = errors.New("response mapping failed")

	// ErrServiceUnavailable is returned when the backend signalled it is
	// temporarily down.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrInvalidToken is returned when the server rejected the bearer
	// credential used for the request.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrUndefined is the fallback when a failure callback fires without an
	// error object.
	ErrUndefined = errors.New("undefined error")
)

// Kind categorizes an engine error for handling decisions.
type Kind int

const (
	// KindUndefined represents an unclassified failure.
	KindUndefined Kind = iota
	// KindCancelled represents a deliberately cancelled attempt.
	KindCancelled
	// KindCachedResponseNotFound represents a cache-first miss.
	KindCachedResponseNotFound
	// KindRequestMalformed represents a request the executor refused to issue.
	KindRequestMalformed
	// KindInvalidResponseBody represents a non-object body where a model was expected.
	KindInvalidResponseBody
	// KindMappingFailed represents a body the model mapper rejected.
	KindMappingFailed
	// KindServiceUnavailable represents a backend-down signal.
	KindServiceUnavailable
	// KindInvalidToken represents a rejected bearer credential.
	KindInvalidToken
	// KindTransport represents any other transport or server failure.
	KindTransport
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindCancelled:
		return "cancelled"
	case KindCachedResponseNotFound:
		return "cached_response_not_found"
	case KindRequestMalformed:
		return "request_malformed"
	case KindInvalidResponseBody:
		return "invalid_response_body"
	case KindMappingFailed:
		return "mapping_failed"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindInvalidToken:
		return "invalid_token"
	case KindTransport:
		return "transport"
	default:
		return "undefined"
	}
}

// Error is the enhanced error delivered through completion callbacks. It
// carries the failure kind, the request path it belongs to, and the HTTP
// status when one was observed.
//
// Error supports errors.Is against the sentinel for its kind and errors.As
// for inspection:
//
//	var engErr *vireo.Error
//	if errors.As(err, &engErr) {
//	    log.Printf("%s failed: %s (status %d)", engErr.Path, engErr.Kind, engErr.StatusCode)
//	}
type Error struct {
	// Kind categorizes the failure.
	Kind Kind
	// Message is a human-readable description.
	Message string
	// Path is the request path the failure belongs to.
	Path string
	// StatusCode is the HTTP status observed, or 0 if none was.
	StatusCode int
	// wrapped is the underlying error, if any.
	wrapped error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error: %s (path %q, status %d)", e.Kind, e.Message, e.Path, e.StatusCode)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s error: %s (path %q)", e.Kind, e.Message, e.Path)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is implements errors.Is by mapping the kind to its sentinel.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindCancelled:
		return target == ErrCancelled
	case KindCachedResponseNotFound:
		return target == ErrCachedResponseNotFound
	case KindRequestMalformed:
		return target == ErrRequestMalformed
	case KindInvalidResponseBody:
		return target == ErrInvalidResponseBody
	case KindMappingFailed:
		return target == ErrMappingFailed
	case KindServiceUnavailable:
		return target == ErrServiceUnavailable
	case KindInvalidToken:
		return target == ErrInvalidToken
	case KindUndefined:
		return target == ErrUndefined
	}
	return false
}

// NewError creates an enhanced error of the given kind. It is exported so
// that alternative HTTPExecutor implementations can produce errors the
// engine classifies natively.
func NewError(kind Kind, message string, wrapped error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		wrapped: wrapped,
	}
}

// withPath attaches the originating request path.
func (e *Error) withPath(path string) *Error {
	e.Path = path
	return e
}

// withStatus attaches the observed HTTP status code.
func (e *Error) withStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// classify extracts the failure kind from an arbitrary error. Errors that
// did not originate from this package are classified as transport failures;
// a nil error is classified as undefined.
func classify(err error) Kind {
	if err == nil {
		return KindUndefined
	}
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Kind
	}
	switch {
	case errors.Is(err, ErrCancelled):
		return KindCancelled
	case errors.Is(err, ErrCachedResponseNotFound):
		return KindCachedResponseNotFound
	case errors.Is(err, ErrServiceUnavailable):
		return KindServiceUnavailable
	case errors.Is(err, ErrInvalidToken):
		return KindInvalidToken
	}
	return KindTransport
}

// IsCancelled reports whether the error represents a deliberate cancellation.
func IsCancelled(err error) bool {
	return classify(err) == KindCancelled
}

// KindForStatus maps an HTTP status to a failure kind. Executors use it so
// that server-health and auth conditions classify the same way regardless of
// the transport in use.
func KindForStatus(status int) Kind {
	switch status {
	case 503:
		return KindServiceUnavailable
	case 401:
		return KindInvalidToken
	default:
		return KindTransport
	}
}
