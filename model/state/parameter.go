package state

import (
	"github.com/viant/bindly/state"
)

// Parameter represents a named value bound to a transaction under one class
type Parameter struct {
	Name     string          `json:"name" yaml:"name"`
	Value    interface{}     `json:"value" yaml:"value"`
	Class    Class           `json:"class,omitempty" yaml:"class,omitempty"`
	DataType string          `json:"dataType,omitempty" yaml:"dataType,omitempty"`
	Location *state.Location `json:"location,omitempty" yaml:"location,omitempty"`
	Default  interface{}     `json:"default,omitempty" yaml:"default,omitempty"`
}

// Effective returns the bound value or the declared default when no value is bound
func (p *Parameter) Effective() interface{} {
	if p.Value != nil {
		return p.Value
	}
	return p.Default
}

// Clone returns a shallow copy with its own location
func (p *Parameter) Clone() *Parameter {
	ret := *p
	if p.Location != nil {
		location := *p.Location
		ret.Location = &location
	}
	return &ret
}

// Parameters is a collection of named values
type Parameters []*Parameter

// Add appends a parameter to the collection
func (p *Parameters) Add(name string, value interface{}) {
	*p = append(*p, &Parameter{
		Name:  name,
		Value: value,
	})
}

// Get retrieves a parameter by name
func (p Parameters) Get(name string) (*Parameter, bool) {
	for _, param := range p {
		if param.Name == name {
			return param, true
		}
	}
	return nil, false
}

// Of returns parameters of the supplied class
func (p Parameters) Of(class Class) Parameters {
	var result Parameters
	for _, param := range p {
		if param.Class == class {
			result = append(result, param)
		}
	}
	return result
}

// Names returns parameter names in declaration order
func (p Parameters) Names() []string {
	result := make([]string, 0, len(p))
	for _, param := range p {
		result = append(result, param.Name)
	}
	return result
}

// ToMap converts Parameters to a map
func (p Parameters) ToMap() map[string]interface{} {
	result := make(map[string]interface{})
	for _, param := range p {
		result[param.Name] = param.Effective()
	}
	return result
}

// FromMap creates Parameters of the given class from a map
func FromMap(class Class, m map[string]interface{}) Parameters {
	params := make(Parameters, 0, len(m))
	for k, v := range m {
		params = append(params, &Parameter{
			Name:  k,
			Value: v,
			Class: class,
		})
	}
	return params
}

// Requisite creates a requisite parameter
func Requisite(name string, value interface{}) *Parameter {
	return &Parameter{Name: name, Value: value, Class: ClassRequisite}
}

// Environment creates an environment parameter
func Environment(name string, value interface{}) *Parameter {
	return &Parameter{Name: name, Value: value, Class: ClassEnvironment}
}

// Configured creates a configured parameter declaration with its default
func Configured(name string, defaultValue interface{}) *Parameter {
	return &Parameter{Name: name, Default: defaultValue, Class: ClassConfigured}
}
