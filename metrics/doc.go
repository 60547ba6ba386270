// Package metrics exposes Prometheus collectors for processor exits.
package metrics
