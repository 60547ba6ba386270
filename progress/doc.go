// Package progress keeps aggregated subresource counters for a sector.
// Counters are updated through Delta values and observed with an optional
// change callback or read from a snapshot.
package progress
