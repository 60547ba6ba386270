package criteria

import (
	"strings"

	"github.com/viant/sector/service/dao"
)

const (
	// State filters by exact lifecycle state
	State = "State"
	// Path filters by hierarchy path prefix
	Path = "Path"
	// Kind filters by processor kind
	Kind = "Kind"
)

// FilterByState returns true when state matches every State parameter
func FilterByState(state string, parameters []*dao.Parameter) bool {
	return filter(State, state, parameters, func(actual, expected string) bool { return actual == expected })
}

// FilterByKind returns true when kind matches every Kind parameter
func FilterByKind(kind string, parameters []*dao.Parameter) bool {
	return filter(Kind, kind, parameters, func(actual, expected string) bool { return actual == expected })
}

// FilterByPath returns true when path is within every Path parameter subtree
func FilterByPath(path string, parameters []*dao.Parameter) bool {
	return filter(Path, path, parameters, func(actual, expected string) bool {
		expected = strings.TrimSuffix(expected, "/")
		return actual == expected || strings.HasPrefix(actual, expected+"/")
	})
}

func filter(name, actual string, parameters []*dao.Parameter, match func(actual, expected string) bool) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != name {
			continue
		}
		switch expected := parameter.Value.(type) {
		case string:
			if !match(actual, expected) {
				return false
			}
		case []string:
			matched := false
			for _, candidate := range expected {
				if match(actual, candidate) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		}
	}
	return true
}
