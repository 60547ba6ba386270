package fs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/sector/runtime/processor"
	"github.com/viant/sector/service/dao"
	"github.com/viant/sector/service/dao/criteria"
)

func TestService(t *testing.T) {
	ctx := context.Background()
	srv, err := New(afs.New(), "mem://localhost/sector/reports", nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	now := time.Now().UTC()
	require.NoError(t, srv.Save(ctx, &processor.Report{ID: "1", Path: "/root/a", State: processor.StateInterrupted, Cause: processor.CauseFaulted, Err: boom, Error: boom.Error(), FinishedAt: now}))
	require.NoError(t, srv.Save(ctx, &processor.Report{ID: "2", Path: "/root", Kind: "sector", State: processor.StateTerminated, FinishedAt: now.Add(time.Second),
		Interrupted: []processor.Note{{ID: "1", Path: "/root/a", Cause: processor.CauseFaulted}}}))
	assert.ErrorIs(t, srv.Save(ctx, nil), dao.ErrNilEntity)

	loaded, err := srv.Load(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "boom", loaded.Error)
	assert.Nil(t, loaded.Err)
	assert.Equal(t, processor.CauseFaulted, loaded.Cause)

	listed, err := srv.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "1", listed[0].ID)
	assert.True(t, listed[1].Noted("1"))

	listed, err = srv.List(ctx, dao.NewParameter(criteria.State, string(processor.StateTerminated)))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "2", listed[0].ID)

	require.NoError(t, srv.Delete(ctx, "1"))
	_, err = srv.Load(ctx, "1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	assert.ErrorIs(t, srv.Delete(ctx, "1"), dao.ErrNotFound)
}
