package source

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/sector/model/state"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/runtime/transaction"
)

func newTransaction(t *testing.T) *transaction.Transaction {
	t.Helper()
	txn, err := transaction.New("svc", state.Parameters{state.Requisite("input", "a.txt")},
		transaction.WithEnvironment(state.Environment("region", "us")),
		transaction.WithConfigured(state.Configured("rate", 1)))
	require.NoError(t, err)
	return txn
}

func upload(t *testing.T, fs afs.Service, URL, content string) {
	t.Helper()
	require.NoError(t, fs.Upload(context.Background(), URL, file.DefaultFileOsMode, strings.NewReader(content)))
}

func TestFile_Load(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	testCases := []struct {
		description string
		URL         string
		content     string
		expectNames []string
		expectRate  int
		expectErr   bool
	}{
		{
			description: "configured values",
			URL:         "mem://localhost/sector/config/limits.yaml",
			content:     "rate: 5\nlimit: 10\n",
			expectNames: []string{"limit", "rate"},
			expectRate:  5,
		},
		{
			description: "environment cannot be configured",
			URL:         "mem://localhost/sector/config/region.yaml",
			content:     "region: eu\n",
			expectErr:   true,
		},
		{
			description: "requisite cannot be configured",
			URL:         "mem://localhost/sector/config/input.yaml",
			content:     "input: b.txt\n",
			expectErr:   true,
		},
		{
			description: "not a map",
			URL:         "mem://localhost/sector/config/list.yaml",
			content:     "- a\n- b\n",
			expectErr:   true,
		},
		{
			description: "missing document",
			URL:         "mem://localhost/sector/config/missing.yaml",
			expectErr:   true,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			if testCase.content != "" {
				upload(t, fs, testCase.URL, testCase.content)
			}
			txn := newTransaction(t)
			names, err := NewFile(fs, testCase.URL).Load(ctx, txn)
			if testCase.expectErr {
				assert.Error(t, err)
				region, _ := txn.String("region")
				assert.Equal(t, "us", region)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expectNames, names)
			rate, err := txn.Int("rate")
			require.NoError(t, err)
			assert.Equal(t, testCase.expectRate, rate)
			binding, err := txn.Resolve("rate")
			require.NoError(t, err)
			assert.Equal(t, state.ClassConfigured, binding.Class)
			require.NotNil(t, binding.Location)
			assert.Equal(t, testCase.URL, binding.Location.In)
		})
	}
}

func TestFile_Watch(t *testing.T) {
	fs := afs.New()
	URL := "mem://localhost/sector/config/watch.yaml"
	upload(t, fs, URL, "rate: 5\n")
	txn := newTransaction(t)

	var changes []interface{}
	changed := make(chan struct{}, 10)
	txn.OnConfigured(func(name string, oldValue, newValue interface{}) {
		changes = append(changes, newValue)
		changed <- struct{}{}
	})

	watcher := NewFile(fs, URL).Watch(txn, 5*time.Millisecond, processor.WithArena(processor.NewArena()))
	assert.Equal(t, []string{ReloadBreakPoint}, watcher.BreakPoints())
	require.NoError(t, watcher.Start(context.Background()))

	waitChange := func() {
		select {
		case <-changed:
		case <-time.After(5 * time.Second):
			t.Fatal("configuration was not pushed")
		}
	}
	waitChange()
	upload(t, fs, URL, "rate: 7\n")
	waitChange()
	rate, err := txn.Int("rate")
	require.NoError(t, err)
	assert.Equal(t, 7, rate)

	require.NoError(t, watcher.Terminate())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report, err := watcher.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, processor.StateTerminated, report.State)
	assert.Equal(t, []interface{}{5, 7}, changes)
}

func TestSecret_Missing(t *testing.T) {
	secret := NewSecret("mem://localhost/sector/secrets/missing.json", "blowfish://default")
	_, err := secret.Load(context.Background(), newTransaction(t))
	assert.Error(t, err)
}

func TestFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("SECTOR_RATE", "9")
	fs := afs.New()
	URL := "mem://localhost/sector/config/env.yaml"
	upload(t, fs, URL, "rate: ${env.SECTOR_RATE}\n")
	txn := newTransaction(t)
	_, err := NewFile(fs, URL).Load(context.Background(), txn)
	require.NoError(t, err)
	rate, err := txn.Int("rate")
	require.NoError(t, err)
	assert.Equal(t, 9, rate)
}
