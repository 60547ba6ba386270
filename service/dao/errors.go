package dao

import "errors"

var (
	// ErrNotFound is returned when no report is journaled under the id,
	// including reports evicted by the journal limit.
	ErrNotFound = errors.New("report not found")

	// ErrInvalidID is returned for an empty processor id.
	ErrInvalidID = errors.New("invalid report id")

	// ErrNilEntity is returned when saving a nil report.
	ErrNilEntity = errors.New("nil report")
)
