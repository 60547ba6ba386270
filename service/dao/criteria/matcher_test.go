package criteria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/sector/service/dao"
)

func TestFilter(t *testing.T) {
	testCases := []struct {
		description string
		state       string
		path        string
		parameters  []*dao.Parameter
		expect      bool
	}{
		{description: "no parameters", state: "running", path: "/root", expect: true},
		{description: "state match", state: "interrupted", path: "/root", parameters: []*dao.Parameter{dao.NewParameter(State, "interrupted")}, expect: true},
		{description: "state mismatch", state: "terminated", path: "/root", parameters: []*dao.Parameter{dao.NewParameter(State, "interrupted")}, expect: false},
		{description: "state any of", state: "terminated", path: "/root", parameters: []*dao.Parameter{dao.NewParameter(State, "interrupted", "terminated")}, expect: true},
		{description: "path subtree", state: "running", path: "/root/a/b", parameters: []*dao.Parameter{dao.NewParameter(Path, "/root/a")}, expect: true},
		{description: "path sibling prefix", state: "running", path: "/root/ab", parameters: []*dao.Parameter{dao.NewParameter(Path, "/root/a")}, expect: false},
		{description: "state and path", state: "running", path: "/root/a", parameters: []*dao.Parameter{dao.NewParameter(Path, "/root/"), dao.NewParameter(State, "terminated")}, expect: false},
	}
	for _, testCase := range testCases {
		actual := FilterByState(testCase.state, testCase.parameters) && FilterByPath(testCase.path, testCase.parameters)
		assert.Equal(t, testCase.expect, actual, testCase.description)
	}
	assert.True(t, FilterByKind("sector", []*dao.Parameter{dao.NewParameter(Kind, "sector")}))
}
