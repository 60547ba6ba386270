package transaction

import (
	"github.com/viant/sector/extension"
	"github.com/viant/sector/model/state"
)

// Option configures a transaction at definition time
type Option func(t *options)

type options struct {
	environment state.Parameters
	configured  state.Parameters
	required    []string
	types       *extension.Types
	listeners   []Listener
}

// WithEnvironment defines environment parameters visible to this transaction and its descendants
func WithEnvironment(params ...*state.Parameter) Option {
	return func(o *options) {
		o.environment = append(o.environment, params...)
	}
}

// WithConfigured declares configured parameters with their defaults
func WithConfigured(params ...*state.Parameter) Option {
	return func(o *options) {
		o.configured = append(o.configured, params...)
	}
}

// WithRequired lists requisite names that must be bound
func WithRequired(names ...string) Option {
	return func(o *options) {
		o.required = append(o.required, names...)
	}
}

// WithTypes sets the data type registry used for coercion
func WithTypes(types *extension.Types) Option {
	return func(o *options) {
		o.types = types
	}
}

// WithListeners registers configured parameter listeners
func WithListeners(fn ...Listener) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, fn...)
	}
}
