package inspect

import (
	"fmt"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Wildcard matches any single path segment
const Wildcard = "*"

const (
	slashCode = iota
	wildcardCode
	segmentCode
)

var (
	slashToken    = parsly.NewToken(slashCode, "/", matcher.NewByte('/'))
	wildcardToken = parsly.NewToken(wildcardCode, "*", &wildcardMatcher{})
	segmentToken  = parsly.NewToken(segmentCode, "Segment", &segmentMatcher{})
)

// segmentMatcher matches a resource name
type segmentMatcher struct{}

func (m *segmentMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		if cursor.Input[i] == '/' {
			break
		}
		matched++
	}
	return matched
}

// wildcardMatcher matches a lone '*' segment
type wildcardMatcher struct{}

func (m *wildcardMatcher) Match(cursor *parsly.Cursor) int {
	pos := cursor.Pos
	if pos >= cursor.InputSize || cursor.Input[pos] != '*' {
		return 0
	}
	if pos+1 < cursor.InputSize && cursor.Input[pos+1] != '/' {
		return 0
	}
	return 1
}

// ParsePath splits a resource path such as /root/workers/w1 into segments; a
// '*' segment matches any name.
func ParsePath(path string) ([]string, error) {
	cursor := parsly.NewCursor("", []byte(path), 0)
	var segments []string
	for cursor.Pos < cursor.InputSize {
		matched := cursor.MatchOne(slashToken)
		if matched.Code != slashToken.Code {
			return nil, cursor.NewError(slashToken)
		}
		if cursor.Pos >= cursor.InputSize {
			if len(segments) == 0 {
				return segments, nil
			}
			return nil, fmt.Errorf("invalid path %q: trailing slash", path)
		}
		matched = cursor.MatchAny(wildcardToken, segmentToken)
		switch matched.Code {
		case wildcardToken.Code:
			segments = append(segments, Wildcard)
		case segmentToken.Code:
			segments = append(segments, matched.Text(cursor))
		default:
			return nil, cursor.NewError(segmentToken)
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("invalid path %q: empty", path)
	}
	return segments, nil
}

// Find returns nodes of the tree matching the path; the first segment
// addresses the tree root itself.
func Find(node *Node, path string) ([]*Node, error) {
	segments, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return []*Node{node}, nil
	}
	return find([]*Node{node}, segments), nil
}

func find(candidates []*Node, segments []string) []*Node {
	var matched []*Node
	for _, candidate := range candidates {
		if segments[0] == Wildcard || segments[0] == candidate.Name {
			matched = append(matched, candidate)
		}
	}
	if len(segments) == 1 {
		return matched
	}
	var children []*Node
	for _, node := range matched {
		children = append(children, node.Children...)
	}
	return find(children, segments[1:])
}
