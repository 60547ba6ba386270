package transaction

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sector/model/state"
)

func TestTransaction_EnvironmentFixedAtDefinition(t *testing.T) {
	parent, err := New("parent", nil, WithEnvironment(state.Environment("X", "v")))
	require.NoError(t, err)
	child, err := parent.Derive("child", nil)
	require.NoError(t, err)

	binding, err := child.Resolve("X")
	require.NoError(t, err)
	assert.Equal(t, "v", binding.Value)
	assert.Equal(t, state.ClassEnvironment, binding.Class)
	assert.Equal(t, parent.ID(), binding.Source)

	require.NoError(t, parent.SetEnvironment("X", "v2"))

	value, err := parent.Value("X")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	value, err = child.Value("X")
	require.NoError(t, err)
	assert.Equal(t, "v", value, "already derived child keeps value fixed at definition")

	later, err := parent.Derive("later", nil)
	require.NoError(t, err)
	value, err = later.Value("X")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)
}

func TestTransaction_ConfiguredObservedAfterUpdate(t *testing.T) {
	txn, err := New("proc", nil, WithConfigured(state.Configured("X", 1)))
	require.NoError(t, err)

	var mux sync.Mutex
	var notified []interface{}
	txn.OnConfigured(func(name string, oldValue, newValue interface{}) {
		mux.Lock()
		defer mux.Unlock()
		notified = append(notified, oldValue, newValue)
		value, err := txn.Value(name)
		assert.NoError(t, err)
		assert.Equal(t, newValue, value)
	})

	binding, err := txn.Resolve("X")
	require.NoError(t, err)
	assert.Equal(t, 1, binding.Value)
	assert.Equal(t, state.ClassDefault, binding.Class)

	require.NoError(t, txn.SetConfigured("X", 2))
	binding, err = txn.Resolve("X")
	require.NoError(t, err)
	assert.Equal(t, 2, binding.Value)
	assert.Equal(t, state.ClassConfigured, binding.Class)

	require.NoError(t, txn.SetConfigured("X", 3))
	value, err := txn.Int("X")
	require.NoError(t, err)
	assert.Equal(t, 3, value)
	assert.Equal(t, []interface{}{1, 2, 2, 3}, notified)
}

func TestTransaction_Resolve(t *testing.T) {
	root, err := New("root", nil, WithEnvironment(state.Environment("region", "us"), state.Environment("zone", "a")))
	require.NoError(t, err)
	child, err := root.Derive("child",
		state.Parameters{{Name: "port", Value: "8080", DataType: "int"}},
		WithEnvironment(state.Environment("rack", "r1")),
		WithConfigured(&state.Parameter{Name: "limit", DataType: "int", Default: 10}),
	)
	require.NoError(t, err)
	grandChild, err := child.Derive("grandChild", nil)
	require.NoError(t, err)

	testCases := []struct {
		description string
		txn         *Transaction
		name        string
		expected    interface{}
		class       state.Class
		err         error
	}{
		{description: "requisite coerced", txn: child, name: "port", expected: 8080, class: state.ClassRequisite},
		{description: "environment from root", txn: child, name: "region", expected: "us", class: state.ClassEnvironment},
		{description: "environment from nearest level", txn: grandChild, name: "rack", expected: "r1", class: state.ClassEnvironment},
		{description: "environment two levels up", txn: grandChild, name: "zone", expected: "a", class: state.ClassEnvironment},
		{description: "configured default", txn: child, name: "limit", expected: 10, class: state.ClassDefault},
		{description: "requisite is local", txn: grandChild, name: "port", err: ErrUnresolvedParameter},
		{description: "unknown name", txn: child, name: "missing", err: ErrUnresolvedParameter},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			binding, err := tc.txn.Resolve(tc.name)
			if tc.err != nil {
				assert.True(t, errors.Is(err, tc.err), "%v", err)
				var paramErr *ParameterError
				assert.True(t, errors.As(err, &paramErr))
				assert.Equal(t, tc.name, paramErr.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, binding.Value)
			assert.Equal(t, tc.class, binding.Class)
		})
	}
}

func TestTransaction_ClassFixity(t *testing.T) {
	root, err := New("root", state.Parameters{state.Requisite("name", "svc")},
		WithEnvironment(state.Environment("region", "us")),
		WithConfigured(state.Configured("limit", 1)))
	require.NoError(t, err)

	testCases := []struct {
		description string
		run         func() error
		expected    error
	}{
		{
			description: "requisite cannot be configured",
			run:         func() error { return root.SetConfigured("name", "other") },
			expected:    ErrParameterClass,
		},
		{
			description: "environment cannot be configured",
			run:         func() error { return root.SetConfigured("region", "eu") },
			expected:    ErrParameterClass,
		},
		{
			description: "configured cannot become environment",
			run:         func() error { return root.SetEnvironment("limit", 3) },
			expected:    ErrParameterClass,
		},
		{
			description: "child cannot redefine inherited environment as requisite",
			run: func() error {
				_, err := root.Derive("child", state.Parameters{state.Requisite("region", "eu")})
				return err
			},
			expected: ErrInvalidRequisiteParameters,
		},
		{
			description: "child cannot redefine inherited environment",
			run: func() error {
				child, err := root.Derive("child", nil)
				if err != nil {
					return err
				}
				return child.SetEnvironment("region", "eu")
			},
			expected: ErrParameterClass,
		},
		{
			description: "child cannot declare inherited environment as configured",
			run: func() error {
				_, err := root.Derive("child", nil, WithConfigured(state.Configured("region", "eu")))
				return err
			},
			expected: ErrParameterClass,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.ErrorIs(t, tc.run(), tc.expected)
		})
	}
}

func TestTransaction_InvalidRequisites(t *testing.T) {
	testCases := []struct {
		description string
		requisites  state.Parameters
		options     []Option
	}{
		{description: "empty name", requisites: state.Parameters{{Value: 1}}},
		{description: "duplicate name", requisites: state.Parameters{state.Requisite("a", 1), state.Requisite("a", 2)}},
		{description: "wrong class", requisites: state.Parameters{state.Environment("a", 1)}},
		{description: "no value", requisites: state.Parameters{{Name: "a"}}},
		{description: "not convertible", requisites: state.Parameters{{Name: "a", Value: "abc", DataType: "int"}}},
		{description: "unknown data type", requisites: state.Parameters{{Name: "a", Value: "abc", DataType: "foo.Bar"}}},
		{description: "missing required", requisites: state.Parameters{state.Requisite("a", 1)}, options: []Option{WithRequired("a", "b")}},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			_, err := Anonymous().Derive("child", tc.requisites, tc.options...)
			assert.ErrorIs(t, err, ErrInvalidRequisiteParameters)
		})
	}
}

func TestTransaction_Defaults(t *testing.T) {
	txn, err := New("svc", state.Parameters{{Name: "timeout", Default: "2s", DataType: "duration"}})
	require.NoError(t, err)
	timeout, err := txn.Duration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, timeout)
}

func TestTransaction_InvalidConfigured(t *testing.T) {
	txn, err := New("svc", nil, WithConfigured(&state.Parameter{Name: "limit", DataType: "int", Default: 1}))
	require.NoError(t, err)
	assert.ErrorIs(t, txn.SetConfigured("limit", "many"), ErrInvalidParameter)
	require.NoError(t, txn.SetConfigured("limit", "5"))
	limit, err := txn.Int("limit")
	require.NoError(t, err)
	assert.Equal(t, 5, limit)
}

func TestTransaction_TypedDefinitions(t *testing.T) {
	txn, err := New("svc", nil,
		WithEnvironment(&state.Parameter{Name: "workers", Value: "4", DataType: "int"}),
		WithConfigured(&state.Parameter{Name: "rate", Value: "2.5", DataType: "float64"}))
	require.NoError(t, err)
	workers, err := txn.Value("workers")
	require.NoError(t, err)
	assert.Equal(t, 4, workers)

	_, err = New("svc", nil, WithEnvironment(&state.Parameter{Name: "workers", Value: "four", DataType: "int"}))
	assert.ErrorIs(t, err, ErrInvalidParameter)
	_, err = New("svc", nil, WithConfigured(&state.Parameter{Name: "rate", Value: "abc", DataType: "float64"}))
	assert.ErrorIs(t, err, ErrInvalidParameter)
}

func TestAnonymous(t *testing.T) {
	txn := Anonymous()
	assert.True(t, txn.IsAnonymous())
	assert.Nil(t, txn.Parent())
	assert.Empty(t, txn.Bindings())
	_, err := txn.Resolve("anything")
	assert.ErrorIs(t, err, ErrUnresolvedParameter)
	assert.NotEqual(t, txn.ID(), Anonymous().ID())
}

func TestTransaction_Bindings(t *testing.T) {
	root, err := New("root", nil, WithEnvironment(state.Environment("region", "us")))
	require.NoError(t, err)
	child, err := root.Derive("child", state.Parameters{state.Requisite("port", 80)}, WithConfigured(state.Configured("limit", 5)))
	require.NoError(t, err)

	bindings := child.Bindings()
	require.Len(t, bindings, 3)
	assert.Equal(t, "limit", bindings[0].Name)
	assert.Equal(t, "port", bindings[1].Name)
	assert.Equal(t, "region", bindings[2].Name)
	assert.Equal(t, state.ClassConfigured, child.ClassOf("limit"))
}
