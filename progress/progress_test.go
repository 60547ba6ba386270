package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress_Update(t *testing.T) {
	var observed []Progress
	tracker := New("s1", "/root", func(p Progress) { observed = append(observed, p) })
	tracker.Update(Delta{Attached: 2, Running: 2})
	tracker.Update(Delta{Running: -1, Interrupted: 1})
	tracker.Update(Delta{Running: -1, Terminated: 1, Failed: 1})

	snapshot := tracker.Snapshot()
	assert.Equal(t, 2, snapshot.Attached)
	assert.Equal(t, 0, snapshot.Running)
	assert.Equal(t, 2, snapshot.Exited())
	assert.Equal(t, 1, snapshot.Failed)
	assert.Len(t, observed, 3)
	assert.Equal(t, 2, observed[0].Running)
}

func TestProgress_Context(t *testing.T) {
	_, ok := GetSnapshot(context.Background())
	assert.False(t, ok)

	tracker := New("s1", "/root", nil)
	ctx := WithTracker(context.Background(), tracker)
	tracker.Update(Delta{Attached: 1})
	snapshot, ok := GetSnapshot(ctx)
	assert.True(t, ok)
	assert.Equal(t, 1, snapshot.Attached)

	var nilTracker *Progress
	nilTracker.Update(Delta{Attached: 1})
	assert.Equal(t, 0, nilTracker.Snapshot().Attached)
}
