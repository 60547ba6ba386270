package idgen

import "github.com/google/uuid"

// NewFunc generates identifiers. Tests replace it to obtain stable ids.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier.
func New() string { return NewFunc() }

// Name returns a readable default name: prefix followed by the first id segment.
func Name(prefix, id string) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	if prefix == "" {
		return short
	}
	return prefix + "-" + short
}
