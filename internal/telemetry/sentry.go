// Package telemetry traces pipeline stages with Sentry. Every helper is a
// no-op until Init has been called with a DSN.
package telemetry

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	serviceName = "docchat"
	opPrefix    = "docchat."
	flushWait   = 5 * time.Second
)

type Config struct {
	DSN              string
	Environment      string
	TracesSampleRate float64
	Debug            bool
}

// Init configures the global Sentry client. The returned function flushes
// buffered events and should run before exit.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler:    sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		log.Printf("sentry: failed to initialize (continuing without tracing): %v", err)
		return func() {}, nil
	}

	log.Printf("sentry: tracing initialized (environment: %s, sample_rate: %.2f)", cfg.Environment, cfg.TracesSampleRate)
	return func() { sentry.Flush(flushWait) }, nil
}

// sampler drops liveness probes and webhook deliveries, and keeps child spans
// consistent with their parent.
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		name := ctx.Span.Name
		if strings.HasSuffix(name, " /health") || strings.Contains(name, " /webhooks/") {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes are tagged on a span so traces can be searched by document
// or conversation.
type SpanAttributes struct {
	UserID         string
	DocumentID     string
	ConversationID string
	Operation      string
}

// Span is a nil-safe wrapper around *sentry.Span.
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetData attaches a value to the span, e.g. a chunk count.
func (s *Span) SetData(key string, value any) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError marks the span failed and reports err to the span's hub.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	if hub := sentry.GetHubFromContext(s.inner.Context()); hub != nil {
		hub.CaptureException(err)
	}
}

// StartSpan opens a child of the span already in ctx, or a new transaction
// when there is none (CLI commands and the ingestion worker).
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var opts []sentry.SpanOption
	if attrs.Operation != "" {
		opts = append(opts, sentry.WithOpName(opPrefix+attrs.Operation))
	}

	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name, opts...)
	} else {
		opts = append(opts, sentry.WithTransactionName(name))
		span = sentry.StartSpan(ctx, name, opts...)
	}

	if attrs.UserID != "" {
		span.SetTag("user_id", attrs.UserID)
	}
	if attrs.DocumentID != "" {
		span.SetTag("document_id", attrs.DocumentID)
	}
	if attrs.ConversationID != "" {
		span.SetTag("conversation_id", attrs.ConversationID)
	}

	return span.Context(), &Span{inner: span}
}
