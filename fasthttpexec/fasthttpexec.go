// Package fasthttpexec provides a vireo.HTTPExecutor built on
// valyala/fasthttp. It trades net/http's streaming model for fasthttp's
// pooled buffers, which suits high request volumes against a single API
// host.
//
//	executor, err := fasthttpexec.New(fasthttpexec.Config{
//	    BaseURL: "https://api.vireo.example",
//	    Timeout: 10 * time.Second,
//	})
//	engine, err := vireo.New(vireo.DefaultConfig().WithExecutor(executor))
//
// Cancellation is best effort: fasthttp has no per-request context, so a
// cancelled task lets the exchange run to completion and then reports a
// cancellation error instead of its outcome.
package fasthttpexec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"

	vireo "github.com/vireolabs/vireo-go"
)

// Config configures the executor.
type Config struct {
	// BaseURL is the URL relative request paths resolve against. Required.
	BaseURL string

	// Timeout bounds each exchange. Defaults to 30 seconds.
	Timeout time.Duration

	// MaxConnsPerHost caps the connection pool per host. Defaults to
	// fasthttp's own default when zero.
	MaxConnsPerHost int
}

// Executor issues engine calls through a fasthttp client.
type Executor struct {
	client  *fasthttp.Client
	baseURL *url.URL
	timeout time.Duration
}

// New creates an executor from the given configuration.
func New(config Config) (*Executor, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty: %w", vireo.ErrInvalidConfig)
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base URL must have a scheme and host: %w", vireo.ErrInvalidConfig)
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Executor{
		client: &fasthttp.Client{
			MaxConnsPerHost: config.MaxConnsPerHost,
			ReadTimeout:     timeout,
			WriteTimeout:    timeout,
		},
		baseURL: baseURL,
		timeout: timeout,
	}, nil
}

// task is the handle for one in-flight exchange. Cancelling flips a flag
// the worker goroutine checks before reporting.
type task struct {
	cancelled atomic.Bool
}

// Cancel marks the exchange as abandoned. The completed result is discarded
// and a cancellation error is reported instead.
func (t *task) Cancel() { t.cancelled.Store(true) }

// Perform issues the call on a fresh goroutine and reports through exactly
// one of the callbacks.
func (e *Executor) Perform(call vireo.Call, success func(body any), failure func(err error)) vireo.TaskHandle {
	target, err := e.resolveURL(call)
	if err != nil {
		// No task can exist for an unresolvable call.
		return nil
	}

	t := &task{}

	go func() {
		body, err := e.roundTrip(call, target)
		if t.cancelled.Load() {
			failure(&vireo.Error{
				Kind:    vireo.KindCancelled,
				Message: "request cancelled",
				Path:    call.Path,
			})
			return
		}
		if err != nil {
			failure(err)
			return
		}
		success(body)
	}()

	return t
}

// resolveURL builds the target URL: absolute paths are used as-is, relative
// ones resolve against the base URL. GET and DELETE parameters go into the
// query string.
func (e *Executor) resolveURL(call vireo.Call) (*url.URL, error) {
	parsed, err := url.Parse(call.Path)
	if err != nil {
		return nil, err
	}

	target := parsed
	if parsed.Scheme == "" || parsed.Host == "" {
		target = e.baseURL.ResolveReference(parsed)
	}

	if len(call.Parameters) > 0 && (call.Method == vireo.MethodGet || call.Method == vireo.MethodDelete) {
		query := target.Query()
		for k, v := range call.Parameters {
			query.Set(k, fmt.Sprint(v))
		}
		target.RawQuery = query.Encode()
	}

	return target, nil
}

// roundTrip performs the single HTTP exchange and decodes the body.
func (e *Executor) roundTrip(call vireo.Call, target *url.URL) (any, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(target.String())
	req.Header.SetMethod(string(call.Method))

	for key, values := range call.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	if len(call.Parameters) > 0 && call.Method != vireo.MethodGet && call.Method != vireo.MethodDelete {
		encoded, err := json.Marshal(call.Parameters)
		if err != nil {
			return nil, &vireo.Error{
				Kind:    vireo.KindRequestMalformed,
				Message: "encoding request body",
				Path:    call.Path,
			}
		}
		req.SetBody(encoded)
		if len(req.Header.ContentType()) == 0 {
			req.Header.SetContentType("application/json")
		}
	}

	if err := e.client.DoTimeout(req, resp, e.timeout); err != nil {
		return nil, vireo.NewError(vireo.KindTransport, "performing request", err)
	}

	status := resp.StatusCode()
	raw := append([]byte(nil), resp.Body()...)

	if status < 200 || status >= 300 {
		message := strings.TrimSpace(string(raw))
		if message == "" {
			message = http.StatusText(status)
		}
		return nil, &vireo.Error{
			Kind:       vireo.KindForStatus(status),
			Message:    message,
			Path:       call.Path,
			StatusCode: status,
		}
	}

	return decodeBody(raw), nil
}

// decodeBody returns the decoded JSON value when the body parses, the raw
// bytes otherwise, and nil for an empty body.
func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return raw
	}
	return decoded
}
