package transaction

import (
	"sync"

	"github.com/viant/sector/model/state"
)

// Listener is invoked every time a configured parameter is set.
type Listener func(name string, oldValue, newValue interface{})

// Configured is the mutable parameter store of a transaction
type Configured struct {
	mu        sync.RWMutex
	values    map[string]*state.Parameter
	declared  map[string]*state.Parameter
	listeners []Listener
}

// OnChange attaches callbacks invoked after every Set. Callbacks run on the
// setter's goroutine after the store is updated, so a read issued by a
// callback already observes the new value.
func (c *Configured) OnChange(fn ...Listener) {
	if len(fn) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn...)
}

// Set updates a configured value
func (c *Configured) Set(param *state.Parameter) {
	c.mu.Lock()
	var old interface{}
	if prev, ok := c.values[param.Name]; ok {
		old = prev.Value
	} else if declared, ok := c.declared[param.Name]; ok {
		old = declared.Default
	}
	c.values[param.Name] = param
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(param.Name, old, param.Value)
	}
}

// Get returns a set value
func (c *Configured) Get(name string) (*state.Parameter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	param, ok := c.values[name]
	return param, ok
}

// Declared returns a configured declaration
func (c *Configured) Declared(name string) (*state.Parameter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	param, ok := c.declared[name]
	return param, ok
}

// Has returns true when the name is declared or set
func (c *Configured) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.values[name]; ok {
		return true
	}
	_, ok := c.declared[name]
	return ok
}

// Names returns declared and set names
func (c *Configured) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var result []string
	for name := range c.declared {
		result = append(result, name)
	}
	for name := range c.values {
		if _, ok := c.declared[name]; !ok {
			result = append(result, name)
		}
	}
	return result
}

func newConfigured(declared state.Parameters) *Configured {
	ret := &Configured{
		values:   map[string]*state.Parameter{},
		declared: map[string]*state.Parameter{},
	}
	for _, param := range declared {
		ret.declared[param.Name] = param
	}
	return ret
}
