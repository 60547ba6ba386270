package declaration

import (
	"fmt"

	bstate "github.com/viant/bindly/state"
	"github.com/viant/parsly"
	"github.com/viant/sector/model/state"
)

// Parse parses a parameter declaration in the format: name[dataType](class/source)
//
// The class part is optional (an empty "()" declares a requisite); the source
// part, when present, is recorded as the parameter location.
func Parse(input []byte) (*state.Parameter, error) {
	cursor := parsly.NewCursor("", input, 0)
	parameter := &state.Parameter{Class: state.ClassRequisite, Location: &bstate.Location{}}

	matched := cursor.MatchAfterOptional(whitespaceToken, identifierToken)
	if matched.Code != identifierToken.Code {
		return nil, cursor.NewError(identifierToken)
	}
	parameter.Name = matched.Text(cursor)

	matched = cursor.MatchOne(openSquareBracketToken)
	if matched.Code != openSquareBracketToken.Code {
		return nil, cursor.NewError(openSquareBracketToken)
	}
	matched = cursor.MatchOne(dataTypeToken)
	if matched.Code != dataTypeToken.Code {
		return nil, cursor.NewError(dataTypeToken)
	}
	parameter.DataType = matched.Text(cursor)
	matched = cursor.MatchOne(closeSquareBracketToken)
	if matched.Code != closeSquareBracketToken.Code {
		return nil, cursor.NewError(closeSquareBracketToken)
	}

	matched = cursor.MatchAfterOptional(whitespaceToken, openParenToken)
	if matched.Code != openParenToken.Code {
		return nil, cursor.NewError(openParenToken)
	}

	matched = cursor.MatchAny(classToken, closeParenToken)
	switch matched.Code {
	case closeParenToken.Code:
		parameter.Location.Kind = string(parameter.Class)
		return parameter, nil
	case classToken.Code:
	default:
		return nil, cursor.NewError(classToken)
	}
	class, err := state.ParseClass(matched.Text(cursor))
	if err != nil {
		return nil, fmt.Errorf("invalid declaration %q: %w", input, err)
	}
	parameter.Class = class
	parameter.Location.Kind = string(class)

	if matched = cursor.MatchOne(slashToken); matched.Code == slashToken.Code {
		matched = cursor.MatchOne(sourceToken)
		if matched.Code != sourceToken.Code {
			return nil, cursor.NewError(sourceToken)
		}
		parameter.Location.In = matched.Text(cursor)
	}

	matched = cursor.MatchOne(closeParenToken)
	if matched.Code != closeParenToken.Code {
		return nil, cursor.NewError(closeParenToken)
	}
	return parameter, nil
}

// ParseAll parses every declaration, stopping at the first malformed one
func ParseAll(declarations ...string) (state.Parameters, error) {
	result := make(state.Parameters, 0, len(declarations))
	for _, declaration := range declarations {
		parameter, err := Parse([]byte(declaration))
		if err != nil {
			return nil, err
		}
		result = append(result, parameter)
	}
	return result, nil
}
