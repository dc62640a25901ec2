package vireo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Call is one outgoing HTTP request as handed to an HTTPExecutor.
type Call struct {
	// Method is the HTTP method.
	Method Method
	// Path is the request path, absolute (full URL) or relative to the
	// executor's base URL.
	Path string
	// Parameters is the request's parameter bag. Executors encode it into
	// the query string for GET and DELETE and into a JSON body otherwise.
	Parameters map[string]any
	// Headers are the outgoing headers, including the Authorization bearer
	// header assembled by the engine.
	Headers http.Header
}

// HTTPExecutor issues HTTP requests on behalf of the engine. Perform must
// invoke exactly one of success or failure, exactly once, from a goroutine
// other than the caller's, and return a handle to the in-flight work.
//
// success receives the decoded response body: a JSON value when the body
// parses as JSON, raw bytes otherwise. failure receives an error; cancelled
// work must fail with an error matching ErrCancelled so the engine can drop
// it silently.
//
// A nil returned handle means the executor could not issue the request at
// all; the engine treats that as a malformed-request programmer fault.
//
// The engine's default executor is built on net/http; the fasthttpexec
// package provides a fasthttp-backed alternative.
type HTTPExecutor interface {
	Perform(call Call, success func(body any), failure func(err error)) TaskHandle
}

// netExecutor is the default HTTPExecutor, built on net/http with the
// connection pool settings from TransportConfig.
type netExecutor struct {
	client  *http.Client
	baseURL *url.URL
}

// NewHTTPExecutor creates the default net/http-backed executor from the
// given configuration.
func NewHTTPExecutor(config *Config) (HTTPExecutor, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty: %w", ErrInvalidConfig)
	}

	baseURL, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("base URL must have a scheme and host: %w", ErrInvalidConfig)
	}

	transport := &http.Transport{
		MaxIdleConns:        config.TransportConfig.MaxIdleConns,
		MaxConnsPerHost:     config.TransportConfig.MaxConnsPerHost,
		IdleConnTimeout:     config.TransportConfig.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &netExecutor{
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		baseURL: baseURL,
	}, nil
}

// netTask wraps the context cancellation of one in-flight request.
type netTask struct {
	cancel context.CancelFunc
}

// Cancel aborts the in-flight request.
func (t *netTask) Cancel() { t.cancel() }

// Perform issues the call on a fresh goroutine and reports through exactly
// one of the callbacks.
func (e *netExecutor) Perform(call Call, success func(body any), failure func(err error)) TaskHandle {
	target, err := e.resolveURL(call)
	if err != nil {
		// No task can exist for an unresolvable call.
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		defer cancel()

		body, err := e.roundTrip(ctx, call, target)
		if err != nil {
			failure(err)
			return
		}
		success(body)
	}()

	return &netTask{cancel: cancel}
}

// resolveURL builds the target URL: absolute paths are used as-is, relative
// ones resolve against the base URL. GET and DELETE parameters go into the
// query string.
func (e *netExecutor) resolveURL(call Call) (*url.URL, error) {
	parsed, err := url.Parse(call.Path)
	if err != nil {
		return nil, err
	}

	target := parsed
	if parsed.Scheme == "" || parsed.Host == "" {
		target = e.baseURL.ResolveReference(parsed)
	}

	if len(call.Parameters) > 0 && (call.Method == MethodGet || call.Method == MethodDelete) {
		query := target.Query()
		for k, v := range call.Parameters {
			query.Set(k, fmt.Sprint(v))
		}
		target.RawQuery = query.Encode()
	}

	return target, nil
}

// roundTrip performs the single HTTP exchange and decodes the body.
func (e *netExecutor) roundTrip(ctx context.Context, call Call, target *url.URL) (any, error) {
	var bodyReader io.Reader
	if len(call.Parameters) > 0 && call.Method != MethodGet && call.Method != MethodDelete {
		encoded, err := json.Marshal(call.Parameters)
		if err != nil {
			return nil, NewError(KindRequestMalformed, "encoding request body", err).withPath(call.Path)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, string(call.Method), target.String(), bodyReader)
	if err != nil {
		return nil, NewError(KindRequestMalformed, "building request", err).withPath(call.Path)
	}

	for key, values := range call.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, NewError(KindCancelled, "request cancelled", err).withPath(call.Path)
		}
		return nil, NewError(KindTransport, "performing request", err).withPath(call.Path)
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return nil, NewError(KindCancelled, "request cancelled", err).withPath(call.Path)
		}
		return nil, NewError(KindTransport, "reading response body", err).withPath(call.Path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := KindForStatus(resp.StatusCode)
		message := strings.TrimSpace(string(raw))
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return nil, NewError(kind, message, nil).withPath(call.Path).withStatus(resp.StatusCode)
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
