package state

import (
	"fmt"
	"strings"
)

// Class discriminates how a parameter is bound to a transaction.
// A parameter name keeps one class for the whole transaction chain.
type Class string

const (
	// ClassRequisite is bound from explicit constructor input and never changes
	ClassRequisite Class = "requisite"
	// ClassEnvironment is defined by an enclosing transaction and read-only below it
	ClassEnvironment Class = "environment"
	// ClassConfigured lives in a mutable store and can be pushed at any time
	ClassConfigured Class = "configured"
	// ClassDefault marks a value resolved from a declared default
	ClassDefault Class = "default"
)

// ParseClass returns the class for its textual form
func ParseClass(text string) (Class, error) {
	switch Class(strings.ToLower(strings.TrimSpace(text))) {
	case ClassRequisite:
		return ClassRequisite, nil
	case ClassEnvironment:
		return ClassEnvironment, nil
	case ClassConfigured:
		return ClassConfigured, nil
	}
	return "", fmt.Errorf("unknown parameter class: %q", text)
}

// Precedence returns the lookup order of a class, lower wins
func (c Class) Precedence() int {
	switch c {
	case ClassRequisite:
		return 0
	case ClassEnvironment:
		return 1
	case ClassConfigured:
		return 2
	case ClassDefault:
		return 3
	}
	return 4
}

func (c Class) String() string {
	return string(c)
}
