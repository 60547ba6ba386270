// Package dispatch provides ready made leaf processors: single calls,
// routines with break points, recurrences, shell commands run through gosh,
// and queue to queue flows.
package dispatch
