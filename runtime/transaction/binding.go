package transaction

import (
	bstate "github.com/viant/bindly/state"
	"github.com/viant/sector/model/state"
)

// Binding is one candidate value for a parameter name
type Binding struct {
	Name     string
	Value    interface{}
	Class    state.Class
	Source   string // id of the transaction defining the value
	Location *bstate.Location
}

// Resolve selects the binding that wins the lookup order
// requisite, environment, configured, default. It has no side effects.
func Resolve(name string, candidates ...Binding) (Binding, error) {
	var winner *Binding
	for i := range candidates {
		candidate := &candidates[i]
		if candidate.Name != name {
			continue
		}
		if winner == nil || candidate.Class.Precedence() < winner.Class.Precedence() {
			winner = candidate
		}
	}
	if winner == nil {
		return Binding{Name: name}, newParameterError(ErrUnresolvedParameter, name, "", "no binding in transaction chain")
	}
	return *winner, nil
}

func bindingOf(source string, param *state.Parameter, class state.Class) Binding {
	return Binding{
		Name:     param.Name,
		Value:    param.Effective(),
		Class:    class,
		Source:   source,
		Location: param.Location,
	}
}
