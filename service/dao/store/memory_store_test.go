package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sector/service/dao"
)

type entry struct {
	ID   string
	Name string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryStore[string, entry](func(e *entry) string { return e.ID })
	var _ dao.Service[string, entry] = srv

	require.NoError(t, srv.Save(ctx, &entry{ID: "1", Name: "a"}))
	require.NoError(t, srv.Save(ctx, &entry{ID: "1", Name: "b"}))
	require.NoError(t, srv.Save(ctx, &entry{ID: "2", Name: "c"}))
	assert.ErrorIs(t, srv.Save(ctx, nil), dao.ErrNilEntity)
	assert.Equal(t, 2, srv.Len())

	loaded, err := srv.Load(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "b", loaded.Name)

	require.NoError(t, srv.Delete(ctx, "1"))
	loaded, err = srv.Load(ctx, "1")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	items, err := srv.List(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
