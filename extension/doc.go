// Package extension provides the run-time data type registry used to coerce
// parameter values declared with a DataType.
//
// Builtin scalar names (string, int, bool, duration ...) are always known;
// user-defined Go types are registered through viant/x and looked up by their
// qualified name, optionally prefixed with [] or map[string] modifiers.
package extension
