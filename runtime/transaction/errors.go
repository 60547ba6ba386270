package transaction

import (
	"errors"
	"fmt"

	"github.com/viant/sector/model/state"
)

var (
	// ErrUnresolvedParameter is returned when a name has no binding in the
	// transaction chain and no default is declared.
	ErrUnresolvedParameter = errors.New("unresolved parameter")

	// ErrInvalidRequisiteParameters indicates malformed construction input.
	ErrInvalidRequisiteParameters = errors.New("invalid requisite parameters")

	// ErrParameterClass is returned when an operation would change the class
	// of an already classified parameter name.
	ErrParameterClass = errors.New("parameter class conflict")

	// ErrInvalidParameter indicates a configured value that cannot be
	// coerced to its declared data type.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// ParameterError describes a failure tied to one parameter name
type ParameterError struct {
	Name   string
	Class  state.Class
	Reason string
	Err    error
}

func (e *ParameterError) Error() string {
	msg := fmt.Sprintf("%v: %s", e.Err, e.Name)
	if e.Class != "" {
		msg += " (" + string(e.Class) + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Unwrap returns the sentinel error
func (e *ParameterError) Unwrap() error {
	return e.Err
}

func newParameterError(err error, name string, class state.Class, reason string, args ...interface{}) *ParameterError {
	if len(args) > 0 {
		reason = fmt.Sprintf(reason, args...)
	}
	return &ParameterError{Name: name, Class: class, Reason: reason, Err: err}
}
