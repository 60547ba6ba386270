package inspect

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/sector/runtime/processor"
)

func blocking() processor.TaskFunc {
	return func(ctx context.Context, ex *processor.Execution) error {
		<-ctx.Done()
		return ctx.Err()
	}
}

func tree(t *testing.T) (*processor.Sector, *processor.Processor) {
	t.Helper()
	arena := processor.NewArena()
	root := processor.NewSector(nil, processor.WithName("root"), processor.WithArena(arena), processor.WithPersistent())
	require.NoError(t, root.Start(context.Background()))
	t.Cleanup(func() {
		root.Interrupt()
		<-root.Done()
	})
	w1 := processor.New(blocking(), processor.WithName("w1"))
	require.NoError(t, root.Dispatch(w1))
	workers := processor.NewSector(nil, processor.WithName("workers"), processor.WithPersistent())
	require.NoError(t, root.Dispatch(workers))
	require.NoError(t, workers.Dispatch(processor.New(blocking(), processor.WithName("w2"))))
	return root, w1
}

func TestSnapshot(t *testing.T) {
	root, _ := tree(t)
	node := Snapshot(root)
	assert.Equal(t, 4, node.Len())
	assert.Equal(t, "/root", node.Path)
	assert.Equal(t, "sector", node.Kind)
	assert.Equal(t, processor.StateRunning, node.State)
	require.NotNil(t, node.Progress)
	assert.Equal(t, 2, node.Progress.Running)
	require.Len(t, node.Children, 2)
	assert.Equal(t, "/root/w1", node.Children[0].Path)
	assert.Nil(t, node.Children[0].Progress)
	assert.Equal(t, "/root/workers/w2", node.Children[1].Children[0].Path)

	expect := `root [sector] running running=2 terminated=0 interrupted=0
  w1 [processor] running
  workers [sector] running running=1 terminated=0 interrupted=0
    w2 [processor] running
`
	assert.Equal(t, expect, Format(node))
}

func TestDiff(t *testing.T) {
	root, w1 := tree(t)
	before := Snapshot(root)
	patch, stats, err := Diff(before, before)
	require.NoError(t, err)
	assert.Empty(t, patch)
	assert.Equal(t, DiffStats{}, stats)

	w1.Interrupt()
	<-w1.Done()
	require.Eventually(t, func() bool { return root.Len() == 1 }, 5*time.Second, time.Millisecond)
	after := Snapshot(root)

	patch, stats, err = Diff(before, after)
	require.NoError(t, err)
	assert.True(t, strings.Contains(patch, "-  w1 [processor] running"), patch)
	assert.Equal(t, 1, stats.Hunks)
	assert.Equal(t, 2, stats.Removed)
	assert.Equal(t, 1, stats.Added)
}

func TestParsePath(t *testing.T) {
	testCases := []struct {
		description string
		path        string
		expect      []string
		expectErr   bool
	}{
		{description: "nested", path: "/root/workers/w1", expect: []string{"root", "workers", "w1"}},
		{description: "wildcard", path: "/root/*/w2", expect: []string{"root", "*", "w2"}},
		{description: "generated name", path: "/sector-1a2b/processor-3c4d", expect: []string{"sector-1a2b", "processor-3c4d"}},
		{description: "tree root", path: "/", expect: nil},
		{description: "relative", path: "root/w1", expectErr: true},
		{description: "empty segment", path: "/root//w1", expectErr: true},
		{description: "trailing slash", path: "/root/", expectErr: true},
		{description: "empty", path: "", expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			segments, err := ParsePath(testCase.path)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expect, segments)
		})
	}
}

func TestFind(t *testing.T) {
	root, _ := tree(t)
	node := Snapshot(root)

	found, err := Find(node, "/root/workers/w2")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "/root/workers/w2", found[0].Path)

	found, err = Find(node, "/root/*")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = Find(node, "/root/missing")
	require.NoError(t, err)
	assert.Empty(t, found)

	found, err = Find(node, "/")
	require.NoError(t, err)
	assert.Equal(t, []*Node{node}, found)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	root, _ := tree(t)
	node := Snapshot(root)
	store := NewStore(afs.New(), "mem://localhost/sector/snapshots")

	URL, err := store.Save(ctx, "initial", node)
	require.NoError(t, err)
	assert.Equal(t, "mem://localhost/sector/snapshots/initial.json", URL)

	loaded, err := store.Load(ctx, "initial.json")
	require.NoError(t, err)
	assert.Equal(t, Format(node), Format(loaded))
	assert.Equal(t, node.Children[1].Children[0].ID, loaded.Children[1].Children[0].ID)

	_, err = store.Load(ctx, "missing")
	assert.Error(t, err)
}
