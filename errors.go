package sector

import "errors"

var (
	// ErrNotFound is returned when no resource exists at the path
	ErrNotFound = errors.New("resource not found")
	// ErrNotSector is returned when dispatching under a leaf processor
	ErrNotSector = errors.New("resource is not a sector")
	// ErrNotStarted is returned by runtime operations before Start
	ErrNotStarted = errors.New("runtime not started")
	// ErrAlreadyStarted is returned by a second Start
	ErrAlreadyStarted = errors.New("runtime already started")
)
