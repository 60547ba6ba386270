// Package tracing wraps OpenTelemetry so that processors and sectors emit
// one span per run without importing the SDK directly.
package tracing
