package transaction

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/viant/sector/model/state"
	"github.com/viant/toolbox"
)

// coerce converts a value to the declared data type
func (t *Transaction) coerce(value interface{}, dataType string) (interface{}, error) {
	if value == nil || dataType == "" {
		return value, nil
	}
	switch strings.TrimSpace(dataType) {
	case "string":
		return toolbox.AsString(value), nil
	case "int":
		return toolbox.ToInt(value)
	case "int64":
		v, err := toolbox.ToInt(value)
		return int64(v), err
	case "float64":
		return toolbox.ToFloat(value)
	case "bool":
		return toolbox.ToBoolean(value)
	case "duration":
		return asDuration(value)
	case "any", "interface{}":
		return value, nil
	}
	rType := t.types.Lookup(dataType)
	if rType == nil {
		return nil, fmt.Errorf("unknown data type: %s", dataType)
	}
	if reflect.TypeOf(value) == rType {
		return value, nil
	}
	target := reflect.New(rType)
	if err := t.converter.Convert(value, target.Interface()); err != nil {
		return nil, err
	}
	return target.Elem().Interface(), nil
}

// coerceParameter converts a declared value and default to the parameter data type
func (t *Transaction) coerceParameter(param *state.Parameter) error {
	if param.DataType == "" {
		return nil
	}
	value, err := t.coerce(param.Value, param.DataType)
	if err != nil {
		return newParameterError(ErrInvalidParameter, param.Name, param.Class, "%v", err)
	}
	param.Value = value
	if param.Default, err = t.coerce(param.Default, param.DataType); err != nil {
		return newParameterError(ErrInvalidParameter, param.Name, param.Class, "default: %v", err)
	}
	return nil
}

func asDuration(value interface{}) (time.Duration, error) {
	switch actual := value.(type) {
	case time.Duration:
		return actual, nil
	case string:
		return time.ParseDuration(actual)
	}
	n, err := toolbox.ToInt(value)
	if err != nil {
		return 0, err
	}
	return time.Duration(n), nil
}
