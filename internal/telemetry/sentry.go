// Package telemetry wraps Sentry tracing and error capture for the pipeline stages.
package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	serviceName  = "testcopilot"
	flushTimeout = 5 * time.Second
)

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// unsampledPrefixes name root transactions that are never traced: health
// probes and the job status endpoint the CLI polls while waiting.
var unsampledPrefixes = []string{"GET /health", "GET /jobs/"}

// Init configures the global Sentry client and returns a flush func for
// shutdown. Without a DSN it does nothing.
func Init(cfg Config) (func(), error) {
	noop := func() {}
	if cfg.DSN == "" {
		return noop, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate <= 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		ServerName:       serviceName,
		Debug:            cfg.Debug,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		TracesSampler:    sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		return noop, fmt.Errorf("sentry init: %w", err)
	}
	return func() { sentry.Flush(flushTimeout) }, nil
}

func sampler(rate float64) sentry.TracesSampler {
	return func(sc sentry.SamplingContext) float64 {
		if sc.Span == nil {
			return rate
		}
		if sc.Span.ParentSpanID != (sentry.SpanID{}) {
			if sc.Span.Sampled.Bool() {
				return 1.0
			}
			return 0.0
		}
		for _, prefix := range unsampledPrefixes {
			if strings.HasPrefix(sc.Span.Name, prefix) {
				return 0.0
			}
		}
		return rate
	}
}

// SpanAttributes are the tags attached to pipeline spans. Empty fields are skipped.
type SpanAttributes struct {
	ProjectID  string
	DocumentID string
	JobID      string
	Operation  string
}

func (a SpanAttributes) apply(span *sentry.Span) {
	for tag, v := range map[string]string{
		"project_id":  a.ProjectID,
		"document_id": a.DocumentID,
		"job_id":      a.JobID,
	} {
		if v != "" {
			span.SetTag(tag, v)
		}
	}
	if a.Operation != "" {
		span.SetData("operation", a.Operation)
	}
}

// Span is a nil-safe handle on a Sentry span.
type Span struct {
	inner *sentry.Span
}

// End finishes the span, marking it OK unless a status was already set.
func (s *Span) End() {
	if s.inner == nil {
		return
	}
	if s.inner.Status == sentry.SpanStatusUndefined {
		s.inner.Status = sentry.SpanStatusOK
	}
	s.inner.Finish()
}

// SetError marks the span failed. Reporting err is left to the owner of the
// root transaction so each failure is captured once. A nil err is ignored.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	s.inner.SetData("error", err.Error())
}

// StartTransaction starts a root transaction on a clone of the hub in ctx,
// so scope changes made while it runs stay with it.
func StartTransaction(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	ctx = sentry.SetHubOnContext(ctx, hub.Clone())
	tx := sentry.StartTransaction(ctx, name,
		sentry.WithOpName("queue.process"),
		sentry.WithTransactionSource(sentry.SourceTask),
	)
	attrs.apply(tx)
	return tx.Context(), &Span{inner: tx}
}

// StartSpan starts a child of the span in ctx, or a new transaction when there is none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}
	attrs.apply(span)
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err on the hub bound to ctx, falling back to the global hub.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
