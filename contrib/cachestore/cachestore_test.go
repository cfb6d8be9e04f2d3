package cachestore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sortable"
	"github.com/syssam/sortable/store/memstore"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestMemory(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "tasks:row:1", []byte("a"), time.Minute))
	require.NoError(t, m.Set(ctx, "tasks:row:2", []byte("b"), 0))
	require.NoError(t, m.Set(ctx, "notes:row:1", []byte("c"), 0))

	b, err := m.Get(ctx, "tasks:row:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), b)
	b[0] = 'z'
	b, err = m.Get(ctx, "tasks:row:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), b, "values are copied")

	now = now.Add(time.Minute)
	b, err = m.Get(ctx, "tasks:row:1")
	require.NoError(t, err)
	assert.Nil(t, b, "expired")
	assert.Equal(t, 2, m.Len())

	require.NoError(t, m.DeletePrefix(ctx, "tasks:"))
	b, err = m.Get(ctx, "tasks:row:2")
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Delete(ctx, "notes:row:1"))
	assert.Zero(t, m.Len())

	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, m.Clear(ctx))
	assert.Zero(t, m.Len())
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := New[int64](NewMemory(), "tasks", WithLogger(quiet))

	s.Put(ctx, sortable.NewRecord[int64](0, 1))
	_, ok := s.Get(ctx, 0)
	assert.False(t, ok, "new records are not cached")

	rec := sortable.Hydrate[int64](3, 2, sortable.Scope{1}, map[string]any{"title": "a", "n": 7})
	s.Put(ctx, rec)

	got, ok := s.Get(ctx, 3)
	require.True(t, ok)
	assert.NotSame(t, rec, got, "entries are decoded copies")
	assert.Equal(t, int64(3), got.ID)
	assert.Equal(t, 2, got.Rank())
	assert.False(t, got.IsNew())
	assert.True(t, got.Scope().Equal(sortable.Scope{1}))
	assert.Equal(t, "a", got.Get("title"))
	assert.Equal(t, int64(7), got.Get("n"))

	other := sortable.Hydrate[int64](4, 1, sortable.Scope{2}, nil)
	s.Put(ctx, other)

	require.NoError(t, s.InvalidateScope(ctx, sortable.Scope{int64(1)}))
	_, ok = s.Get(ctx, 3)
	assert.False(t, ok, "invalidated scope")
	_, ok = s.Get(ctx, 4)
	assert.True(t, ok, "other scopes stay current")

	s.Put(ctx, rec)
	_, ok = s.Get(ctx, 3)
	assert.True(t, ok, "a Put after the invalidation is current")

	s.Evict(ctx, 3)
	_, ok = s.Get(ctx, 3)
	assert.False(t, ok)

	require.NoError(t, s.Clear(ctx))
	_, ok = s.Get(ctx, 4)
	assert.False(t, ok)
}

func TestStoreSharedBetweenLedgers(t *testing.T) {
	ctx := context.Background()
	shared := NewMemory()
	st := memstore.New[int64]([]string{"list_id"})
	a := sortable.New[int64](st, New[int64](shared, "tasks", WithLogger(quiet)))
	b := sortable.New[int64](st, New[int64](shared, "tasks", WithLogger(quiet)))

	for range 3 {
		require.NoError(t, a.Save(ctx, sortable.NewRecord[int64](0, 1)))
	}
	cached, err := b.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, cached.Rank())

	// A shift through one ledger is seen by the other.
	p, err := a.InsertAtTop(ctx, sortable.NewRecord[int64](0, 1))
	require.NoError(t, err)
	_, err = a.Commit(ctx, p)
	require.NoError(t, err)

	got, err := b.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Rank())
}

type failingCache struct{ Memory }

var errDown = errors.New("cache down")

func (failingCache) Get(context.Context, string) ([]byte, error) { return nil, errDown }

func (failingCache) Set(context.Context, string, []byte, time.Duration) error { return errDown }

func TestStoreFailures(t *testing.T) {
	ctx := context.Background()
	s := New[int64](&failingCache{}, "tasks", WithLogger(quiet))

	s.Put(ctx, sortable.Hydrate[int64](1, 1, nil, nil))
	_, ok := s.Get(ctx, 1)
	assert.False(t, ok, "failures read as misses")
	require.ErrorIs(t, s.InvalidateScope(ctx, nil), errDown)

	// The ledger reports the failed invalidation once the write has committed.
	st := memstore.New[int64](nil)
	l := sortable.New[int64](st, s, sortable.WithLogger(quiet))
	require.NoError(t, l.Save(ctx, sortable.NewRecord[int64](0)))
	p, err := l.InsertAtTop(ctx, sortable.NewRecord[int64](0))
	require.NoError(t, err)
	_, err = l.Commit(ctx, p)
	require.ErrorIs(t, err, errDown)
	assert.Equal(t, 2, st.Len())
}
