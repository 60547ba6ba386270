package declaration

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota
	identifierCode
	openSquareBracketCode
	closeSquareBracketCode
	openParenCode
	closeParenCode
	slashCode
	dataTypeCode
	classCode
	sourceCode
)

var (
	whitespaceToken         = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	identifierToken         = parsly.NewToken(identifierCode, "Identifier", &identifierMatcher{})
	openSquareBracketToken  = parsly.NewToken(openSquareBracketCode, "[", matcher.NewByte('['))
	closeSquareBracketToken = parsly.NewToken(closeSquareBracketCode, "]", matcher.NewByte(']'))
	openParenToken          = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken         = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	slashToken              = parsly.NewToken(slashCode, "/", matcher.NewByte('/'))
	dataTypeToken           = parsly.NewToken(dataTypeCode, "DataType", &dataTypeMatcher{})
	classToken              = parsly.NewToken(classCode, "Class", &untilMatcher{stops: "/)"})
	sourceToken             = parsly.NewToken(sourceCode, "Source", &untilMatcher{stops: ")"})
)

// identifierMatcher matches a letter or underscore followed by letters, digits, underscores or dots
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos >= cursor.InputSize {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < cursor.InputSize; i++ {
		c := input[i]
		if isLetter(c) || isDigit(c) || c == '_' || c == '.' {
			matched++
			continue
		}
		break
	}
	return matched
}

// dataTypeMatcher captures a type name up to the balanced closing bracket, e.g. []map[string]int
type dataTypeMatcher struct{}

func (m *dataTypeMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	depth := 0
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		switch input[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return matched
			}
			depth--
		}
		matched++
	}
	return 0
}

// untilMatcher captures a non-empty run up to any stop byte
type untilMatcher struct {
	stops string
}

func (m *untilMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		if m.isStop(input[i]) {
			break
		}
		matched++
	}
	return matched
}

func (m *untilMatcher) isStop(c byte) bool {
	for i := 0; i < len(m.stops); i++ {
		if m.stops[i] == c {
			return true
		}
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
