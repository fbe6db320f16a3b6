package observability

import (
	"context"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kbukum/vaultkit/errors"
)

// Meter returns vaultkit's meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metric names.
const (
	MetricRequests        = "vault.client.requests"
	MetricRequestDuration = "vault.client.request.duration"
	MetricActiveRequests  = "vault.client.active_requests"
	MetricRedirects       = "vault.client.redirects"
	MetricTokenUpdates    = "vault.client.token_updates"
)

// RequestInstruments holds the metric instruments the adapter records.
type RequestInstruments struct {
	requests     metric.Int64Counter
	duration     metric.Float64Histogram
	active       metric.Int64UpDownCounter
	redirects    metric.Int64Counter
	tokenUpdates metric.Int64Counter
}

// NewRequestInstruments creates the instruments on meter.
func NewRequestInstruments(meter metric.Meter) (*RequestInstruments, error) {
	requests, err := meter.Int64Counter(MetricRequests,
		metric.WithDescription("Vault requests by method and status"),
	)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, err, "creating "+MetricRequests)
	}

	duration, err := meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of Vault requests including redirects"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, err, "creating "+MetricRequestDuration)
	}

	active, err := meter.Int64UpDownCounter(MetricActiveRequests,
		metric.WithDescription("Vault requests in flight"),
	)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, err, "creating "+MetricActiveRequests)
	}

	redirects, err := meter.Int64Counter(MetricRedirects,
		metric.WithDescription("Redirects followed"),
	)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, err, "creating "+MetricRedirects)
	}

	tokenUpdates, err := meter.Int64Counter(MetricTokenUpdates,
		metric.WithDescription("Client tokens captured from login responses"),
	)
	if err != nil {
		return nil, errors.Wrap(errors.KindConfig, err, "creating "+MetricTokenUpdates)
	}

	return &RequestInstruments{
		requests:     requests,
		duration:     duration,
		active:       active,
		redirects:    redirects,
		tokenUpdates: tokenUpdates,
	}, nil
}

// RequestStarted increments the in-flight gauge.
func (m *RequestInstruments) RequestStarted(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RequestFinished decrements the in-flight gauge and records the request.
// A status of 0 means no response was received; outcome names the error
// kind or "ok".
func (m *RequestInstruments) RequestFinished(ctx context.Context, method string, status int, outcome string, d time.Duration) {
	m.active.Add(ctx, -1)
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
		attribute.String("outcome", outcome),
	))
	m.duration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RedirectFollowed counts one followed redirect.
func (m *RequestInstruments) RedirectFollowed(ctx context.Context) {
	m.redirects.Add(ctx, 1)
}

// TokenUpdated counts one token captured from a login response.
func (m *RequestInstruments) TokenUpdated(ctx context.Context) {
	m.tokenUpdates.Add(ctx, 1)
}
