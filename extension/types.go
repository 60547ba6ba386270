package extension

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/viant/x"
)

var builtins = map[string]reflect.Type{
	"string":      reflect.TypeOf(""),
	"int":         reflect.TypeOf(0),
	"int64":       reflect.TypeOf(int64(0)),
	"float64":     reflect.TypeOf(float64(0)),
	"bool":        reflect.TypeOf(false),
	"duration":    reflect.TypeOf(time.Duration(0)),
	"interface{}": reflect.TypeOf((*interface{})(nil)).Elem(),
	"any":         reflect.TypeOf((*interface{})(nil)).Elem(),
}

// Types is a data type registry
type Types struct {
	registry *x.Registry
	mu       sync.RWMutex
	names    map[string]reflect.Type
}

// Register adds a data type to the registry
func (t *Types) Register(dataType *x.Type) {
	if dataType == nil {
		return
	}
	t.registry.Register(dataType)
	name := dataType.Type.String()
	t.mu.Lock()
	t.names[name] = dataType.Type
	if dataType.PkgPath != "" {
		t.names[dataType.PkgPath+"."+dataType.Type.Name()] = dataType.Type
	}
	t.mu.Unlock()
}

// RegisterType adds a Go type to the registry
func (t *Types) RegisterType(rType reflect.Type) {
	t.Register(x.NewType(rType))
}

// Lookup returns a reflect type for the data type name or nil when unknown
func (t *Types) Lookup(dataType string) reflect.Type {
	dataType = strings.TrimSpace(dataType)
	switch {
	case dataType == "":
		return nil
	case strings.HasPrefix(dataType, "[]"):
		if elem := t.Lookup(dataType[2:]); elem != nil {
			return reflect.SliceOf(elem)
		}
		return nil
	case strings.HasPrefix(dataType, "map[string]"):
		if elem := t.Lookup(dataType[len("map[string]"):]); elem != nil {
			return reflect.MapOf(builtins["string"], elem)
		}
		return nil
	case strings.HasPrefix(dataType, "*"):
		if elem := t.Lookup(dataType[1:]); elem != nil {
			return reflect.PtrTo(elem)
		}
		return nil
	}
	if rType, ok := builtins[dataType]; ok {
		return rType
	}
	t.mu.RLock()
	rType, ok := t.names[dataType]
	t.mu.RUnlock()
	if ok {
		return rType
	}
	if aType := t.registry.Lookup(dataType); aType != nil {
		return aType.Type
	}
	return nil
}

// IsBuiltin returns true for scalar type names known without registration
func IsBuiltin(dataType string) bool {
	_, ok := builtins[strings.TrimSpace(dataType)]
	return ok
}

// NewTypes creates a new types registry
func NewTypes(options ...x.RegistryOption) *Types {
	return &Types{
		registry: x.NewRegistry(options...),
		names:    map[string]reflect.Type{},
	}
}
