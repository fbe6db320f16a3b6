package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/vaultkit/errors"
)

// InstrumentationName identifies vaultkit's tracer and meter.
const InstrumentationName = "github.com/kbukum/vaultkit"

// sampler maps a rate in [0, 1] to a sampler; fractional rates respect the
// parent's decision.
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}
}

// newResource describes the process the spans and metrics come from.
func newResource(serviceName, serviceVersion, environment string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
			attribute.String("deployment.environment", environment),
		),
	)
}

// Tracer returns vaultkit's tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Span names.
const (
	SpanRequest = "vault.request"
)

// Attribute keys set on request spans.
const (
	AttrMethod     = "http.request.method"
	AttrURL        = "url.full"
	AttrPath       = "vault.path"
	AttrNamespace  = "vault.namespace"
	AttrStatusCode = "http.response.status_code"
	AttrRedirects  = "vault.redirects"
	AttrWrapTTL    = "vault.wrap_ttl"
	AttrErrorKind  = "vault.error.kind"
)

// StartRequestSpan starts the client span covering one Vault request.
func StartRequestSpan(ctx context.Context, method, path, namespace string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String(AttrMethod, method),
		attribute.String(AttrPath, path),
	}
	if namespace != "" {
		attrs = append(attrs, attribute.String(AttrNamespace, namespace))
	}
	return Tracer().Start(ctx, SpanRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndRequestSpan records the outcome on span and ends it. A status of 0
// means no response was received.
func EndRequestSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int(AttrStatusCode, status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorKind, errors.KindOf(err).String()))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SetSpanAttribute sets an attribute on the current span in context.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	case []string:
		span.SetAttributes(attribute.StringSlice(key, v))
	}
}
