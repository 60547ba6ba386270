package transaction

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/viant/sector/extension"
	"github.com/viant/sector/internal/idgen"
	"github.com/viant/sector/model/state"
	"github.com/viant/structology/conv"
	"github.com/viant/toolbox"
)

// AnonymousName is the name of transactions created without explicit input
const AnonymousName = "anonymous"

// Transaction is the parameter environment a processor runs under
type Transaction struct {
	id         string
	name       string
	parent     *Transaction
	requisite  map[string]*state.Parameter
	env        atomic.Pointer[frame]
	configured *Configured
	types      *extension.Types
	converter  *conv.Converter
	mu         sync.Mutex
}

// ID returns transaction identity
func (t *Transaction) ID() string { return t.id }

// Name returns transaction name
func (t *Transaction) Name() string { return t.name }

// Parent returns the supercontext or nil
func (t *Transaction) Parent() *Transaction { return t.parent }

// Types returns the data type registry
func (t *Transaction) Types() *extension.Types { return t.types }

// Configured returns the mutable configured store
func (t *Transaction) Configured() *Configured { return t.configured }

// IsAnonymous returns true for a degenerate transaction created without input
func (t *Transaction) IsAnonymous() bool {
	return t.parent == nil && t.name == AnonymousName && len(t.requisite) == 0
}

// Derive creates a child transaction bound to the supplied requisites
func (t *Transaction) Derive(name string, requisites state.Parameters, options ...Option) (*Transaction, error) {
	return newTransaction(t, name, requisites, options)
}

// Resolve returns the winning binding for the name
func (t *Transaction) Resolve(name string) (Binding, error) {
	return Resolve(name, t.candidates(name)...)
}

func (t *Transaction) candidates(name string) []Binding {
	var result []Binding
	if param, ok := t.requisite[name]; ok {
		result = append(result, bindingOf(t.id, param, state.ClassRequisite))
	}
	if param, owner, ok := t.env.Load().lookup(name); ok {
		result = append(result, bindingOf(owner, param, state.ClassEnvironment))
	}
	if param, ok := t.configured.Get(name); ok {
		result = append(result, bindingOf(t.id, param, state.ClassConfigured))
	} else if declared, ok := t.configured.Declared(name); ok && declared.Default != nil {
		result = append(result, bindingOf(t.id, declared, state.ClassDefault))
	}
	return result
}

// ClassOf returns the class a name is bound under, empty when unknown
func (t *Transaction) ClassOf(name string) state.Class {
	if _, ok := t.requisite[name]; ok {
		return state.ClassRequisite
	}
	if _, _, ok := t.env.Load().lookup(name); ok {
		return state.ClassEnvironment
	}
	if t.configured.Has(name) {
		return state.ClassConfigured
	}
	return ""
}

// Value returns resolved value
func (t *Transaction) Value(name string) (interface{}, error) {
	binding, err := t.Resolve(name)
	if err != nil {
		return nil, err
	}
	return binding.Value, nil
}

// String returns resolved value as string
func (t *Transaction) String(name string) (string, error) {
	value, err := t.Value(name)
	if err != nil {
		return "", err
	}
	return toolbox.AsString(value), nil
}

// Int returns resolved value as int
func (t *Transaction) Int(name string) (int, error) {
	value, err := t.Value(name)
	if err != nil {
		return 0, err
	}
	return toolbox.ToInt(value)
}

// Bool returns resolved value as bool
func (t *Transaction) Bool(name string) (bool, error) {
	value, err := t.Value(name)
	if err != nil {
		return false, err
	}
	return toolbox.ToBoolean(value)
}

// Float returns resolved value as float64
func (t *Transaction) Float(name string) (float64, error) {
	value, err := t.Value(name)
	if err != nil {
		return 0, err
	}
	return toolbox.ToFloat(value)
}

// Duration returns resolved value as time.Duration
func (t *Transaction) Duration(name string) (time.Duration, error) {
	value, err := t.Value(name)
	if err != nil {
		return 0, err
	}
	return asDuration(value)
}

// Decode converts resolved value into dest pointer
func (t *Transaction) Decode(name string, dest interface{}) error {
	value, err := t.Value(name)
	if err != nil {
		return err
	}
	return t.converter.Convert(value, dest)
}

// SetConfigured pushes a configured value; the next read observes it
func (t *Transaction) SetConfigured(name string, value interface{}) error {
	return t.SetConfiguredParameter(&state.Parameter{Name: name, Value: value, Class: state.ClassConfigured})
}

// SetConfiguredParameter pushes a configured parameter keeping its location
func (t *Transaction) SetConfiguredParameter(param *state.Parameter) error {
	name := param.Name
	if name == "" {
		return newParameterError(ErrInvalidParameter, name, state.ClassConfigured, "empty name")
	}
	if class := t.fixedClassOf(name); class != "" {
		return newParameterError(ErrParameterClass, name, class, "cannot be configured")
	}
	param = param.Clone()
	param.Class = state.ClassConfigured
	if declared, ok := t.configured.Declared(name); ok && declared.DataType != "" {
		value, err := t.coerce(param.Value, declared.DataType)
		if err != nil {
			return newParameterError(ErrInvalidParameter, name, state.ClassConfigured, "%v", err)
		}
		param.Value = value
		param.DataType = declared.DataType
	}
	t.configured.Set(param)
	return nil
}

// OnConfigured registers configured parameter listeners
func (t *Transaction) OnConfigured(fn ...Listener) {
	t.configured.OnChange(fn...)
}

// SetEnvironment redefines an environment value at this level. Descendants
// derived earlier keep resolving the value fixed at their definition.
func (t *Transaction) SetEnvironment(name string, value interface{}) error {
	if name == "" {
		return newParameterError(ErrInvalidParameter, name, state.ClassEnvironment, "empty name")
	}
	if _, ok := t.requisite[name]; ok {
		return newParameterError(ErrParameterClass, name, state.ClassRequisite, "cannot become environment")
	}
	if t.configured.Has(name) {
		return newParameterError(ErrParameterClass, name, state.ClassConfigured, "cannot become environment")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	current := t.env.Load()
	if _, owner, ok := current.lookup(name); ok && owner != t.id {
		return newParameterError(ErrParameterClass, name, state.ClassEnvironment, "defined by enclosing transaction %s", owner)
	}
	t.env.Store(current.with(&state.Parameter{Name: name, Value: value, Class: state.ClassEnvironment}))
	return nil
}

// Requisites returns a copy of requisite parameters
func (t *Transaction) Requisites() state.Parameters {
	result := make(state.Parameters, 0, len(t.requisite))
	for _, param := range t.requisite {
		result = append(result, param.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Bindings returns every resolvable name with its winning binding, sorted by name
func (t *Transaction) Bindings() []Binding {
	names := map[string]bool{}
	for name := range t.requisite {
		names[name] = true
	}
	for _, name := range t.env.Load().names() {
		names[name] = true
	}
	for _, name := range t.configured.Names() {
		names[name] = true
	}
	var result []Binding
	for name := range names {
		if binding, err := t.Resolve(name); err == nil {
			result = append(result, binding)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// fixedClassOf returns requisite or environment when the name is bound as such
func (t *Transaction) fixedClassOf(name string) state.Class {
	if _, ok := t.requisite[name]; ok {
		return state.ClassRequisite
	}
	if _, _, ok := t.env.Load().lookup(name); ok {
		return state.ClassEnvironment
	}
	return ""
}

// New creates a root transaction
func New(name string, requisites state.Parameters, options ...Option) (*Transaction, error) {
	return newTransaction(nil, name, requisites, options)
}

// Anonymous returns a degenerate transaction with no parent and no environment
func Anonymous() *Transaction {
	ret, _ := newTransaction(nil, AnonymousName, nil, nil)
	return ret
}

func newTransaction(parent *Transaction, name string, requisites state.Parameters, opts []Option) (*Transaction, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	ret := &Transaction{
		id:        idgen.New(),
		name:      name,
		parent:    parent,
		requisite: map[string]*state.Parameter{},
		types:     o.types,
	}
	var inherited *frame
	if parent != nil {
		inherited = parent.env.Load()
		if ret.types == nil {
			ret.types = parent.types
		}
		ret.converter = parent.converter
	}
	if ret.types == nil {
		ret.types = extension.NewTypes()
	}
	if ret.converter == nil {
		ret.converter = conv.NewConverter(conv.DefaultOptions())
	}

	for _, param := range requisites {
		if err := ret.bindRequisite(param, inherited); err != nil {
			return nil, err
		}
	}
	for _, name := range o.required {
		if _, ok := ret.requisite[name]; !ok {
			return nil, newParameterError(ErrInvalidRequisiteParameters, name, state.ClassRequisite, "required parameter is missing")
		}
	}

	vars := map[string]*state.Parameter{}
	for _, param := range o.environment {
		if param == nil || param.Name == "" {
			return nil, newParameterError(ErrParameterClass, "", state.ClassEnvironment, "empty name")
		}
		if _, ok := ret.requisite[param.Name]; ok {
			return nil, newParameterError(ErrParameterClass, param.Name, state.ClassRequisite, "cannot become environment")
		}
		if _, owner, ok := inherited.lookup(param.Name); ok {
			return nil, newParameterError(ErrParameterClass, param.Name, state.ClassEnvironment, "defined by enclosing transaction %s", owner)
		}
		param = param.Clone()
		param.Class = state.ClassEnvironment
		if err := ret.coerceParameter(param); err != nil {
			return nil, err
		}
		vars[param.Name] = param
	}
	ret.env.Store(&frame{owner: ret.id, vars: vars, up: inherited})

	var declared state.Parameters
	for _, param := range o.configured {
		if param == nil || param.Name == "" {
			return nil, newParameterError(ErrParameterClass, "", state.ClassConfigured, "empty name")
		}
		if class := ret.fixedClassOf(param.Name); class != "" {
			return nil, newParameterError(ErrParameterClass, param.Name, class, "cannot be configured")
		}
		param = param.Clone()
		param.Class = state.ClassConfigured
		if err := ret.coerceParameter(param); err != nil {
			return nil, err
		}
		declared = append(declared, param)
	}
	ret.configured = newConfigured(declared)
	ret.configured.OnChange(o.listeners...)
	return ret, nil
}

func (t *Transaction) bindRequisite(param *state.Parameter, inherited *frame) error {
	if param == nil || param.Name == "" {
		return newParameterError(ErrInvalidRequisiteParameters, "", state.ClassRequisite, "empty name")
	}
	name := param.Name
	if param.Class != "" && param.Class != state.ClassRequisite {
		return newParameterError(ErrInvalidRequisiteParameters, name, param.Class, "not a requisite parameter")
	}
	if _, ok := t.requisite[name]; ok {
		return newParameterError(ErrInvalidRequisiteParameters, name, state.ClassRequisite, "duplicate parameter")
	}
	if _, owner, ok := inherited.lookup(name); ok {
		return newParameterError(ErrInvalidRequisiteParameters, name, state.ClassEnvironment, "inherited from %s and cannot be redefined", owner)
	}
	param = param.Clone()
	param.Class = state.ClassRequisite
	if param.Value == nil {
		param.Value = param.Default
	}
	if param.Value == nil {
		return newParameterError(ErrInvalidRequisiteParameters, name, state.ClassRequisite, "no value and no default")
	}
	value, err := t.coerce(param.Value, param.DataType)
	if err != nil {
		return newParameterError(ErrInvalidRequisiteParameters, name, state.ClassRequisite, "%v", err)
	}
	param.Value = value
	t.requisite[name] = param
	return nil
}
