// Package tracing turns the vireo engine's observer hooks into
// OpenTelemetry spans, one per dispatched attempt. The host owns the tracer
// provider and exporter wiring; this package only records against the
// go.opentelemetry.io/otel API.
package tracing

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	vireo "github.com/vireolabs/vireo-go"
)

const tracerName = "github.com/vireolabs/vireo-go"

// Observer implements vireo.Observer by opening a span when an attempt is
// dispatched and ending it when the attempt completes. Spans of concurrent
// attempts are correlated by the engine's attempt id.
//
//	config := vireo.DefaultConfig().WithObserver(tracing.New())
type Observer struct {
	tracer trace.Tracer

	mu    sync.Mutex
	spans map[string]trace.Span
}

// New creates an observer using the globally registered tracer provider.
func New() *Observer {
	return WithTracer(otel.Tracer(tracerName))
}

// WithTracer creates an observer recording against an explicit tracer.
func WithTracer(tracer trace.Tracer) *Observer {
	return &Observer{
		tracer: tracer,
		spans:  make(map[string]trace.Span),
	}
}

// OnRequestStart opens the attempt's span.
func (o *Observer) OnRequestStart(id string, method vireo.Method, path string) {
	_, span := o.tracer.Start(context.Background(), string(method)+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", string(method)),
			attribute.String("url.path", path),
			attribute.String("vireo.attempt_id", id),
		),
	)

	o.mu.Lock()
	o.spans[id] = span
	o.mu.Unlock()
}

// OnRequestEnd ends the attempt's span, recording the failure if any.
func (o *Observer) OnRequestEnd(id string, method vireo.Method, path string, duration time.Duration, err error) {
	o.mu.Lock()
	span, ok := o.spans[id]
	delete(o.spans, id)
	o.mu.Unlock()
	if !ok {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// OnRetryScheduled annotates the failed attempt's span with the retry plan.
func (o *Observer) OnRetryScheduled(id string, method vireo.Method, path string, attemptsLeft uint, delay time.Duration, err error) {
	o.mu.Lock()
	span, ok := o.spans[id]
	o.mu.Unlock()
	if !ok {
		return
	}

	span.AddEvent("retry scheduled", trace.WithAttributes(
		attribute.Int64("vireo.retry.attempts_left", int64(attemptsLeft)),
		attribute.String("vireo.retry.delay", delay.String()),
	))
}

// OnCacheHit does nothing; cache results surface on the attempt span.
func (o *Observer) OnCacheHit(key string) {}

// OnCacheMiss does nothing; cache results surface on the attempt span.
func (o *Observer) OnCacheMiss(key string) {}
