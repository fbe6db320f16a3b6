// Package observability wires OpenTelemetry tracing and metrics for vaultkit.
//
// Setup installs global OTLP/HTTP tracer and meter providers from a
// TelemetryConfig; until it runs the global no-op providers are used and
// instrumentation costs nothing. The adapter opens one client span per
// Vault request (SpanRequest) and records RequestInstruments for every
// exchange.
//
//	shutdown, err := observability.Setup(ctx, observability.TelemetryConfig{
//	    Enabled:  true,
//	    Endpoint: "otel-collector:4318",
//	}, "secrets-sync", version.GetVersionInfo().Version)
//	if err != nil {
//	    return err
//	}
//	defer shutdown(ctx)
package observability
