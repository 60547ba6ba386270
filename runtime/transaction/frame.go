package transaction

import "github.com/viant/sector/model/state"

// frame holds environment parameters defined at one transaction level.
// Frames are immutable; redefining a value installs a new frame so that
// descendants holding the previous one keep the value fixed at their definition.
type frame struct {
	owner string
	vars  map[string]*state.Parameter
	up    *frame
}

func (f *frame) lookup(name string) (*state.Parameter, string, bool) {
	for current := f; current != nil; current = current.up {
		if param, ok := current.vars[name]; ok {
			return param, current.owner, true
		}
	}
	return nil, "", false
}

func (f *frame) with(param *state.Parameter) *frame {
	vars := make(map[string]*state.Parameter, len(f.vars)+1)
	for k, v := range f.vars {
		vars[k] = v
	}
	vars[param.Name] = param
	return &frame{owner: f.owner, vars: vars, up: f.up}
}

func (f *frame) names() []string {
	seen := map[string]bool{}
	var result []string
	for current := f; current != nil; current = current.up {
		for name := range current.vars {
			if !seen[name] {
				seen[name] = true
				result = append(result, name)
			}
		}
	}
	return result
}
