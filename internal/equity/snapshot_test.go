package equity

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"etfbot/internal/ledger"
)

func newTestSnapshotStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := ledger.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewSnapshotStore(db)
	require.NoError(t, err)
	return store
}

func TestSnapshotWriteAndGet(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "2026-03-02", 100500, false))
	got, ok, err := store.Get(ctx, "2026-03-02")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 100500, got, 1e-9)

	_, ok, err = store.Get(ctx, "2026-03-03")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotWriteIsIdempotent(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "2026-03-02", 100500, false))
	err := store.Write(ctx, "2026-03-02", 200000, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSnapshotExists))

	// The stored value is untouched.
	got, _, err := store.Get(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.InDelta(t, 100500, got, 1e-9)

	// Explicit overwrite replaces it.
	require.NoError(t, store.Write(ctx, "2026-03-02", 99000, true))
	got, _, err = store.Get(ctx, "2026-03-02")
	require.NoError(t, err)
	assert.InDelta(t, 99000, got, 1e-9)
}

func TestSnapshotInvalidDateRejected(t *testing.T) {
	store := newTestSnapshotStore(t)
	err := store.Write(context.Background(), "03/02/2026", 1000, false)
	assert.Error(t, err)
}

func TestSnapshotLatestAndLatestBefore(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "2026-03-01", 100000, false))
	require.NoError(t, store.Write(ctx, "2026-03-03", 101000, false))
	require.NoError(t, store.Write(ctx, "2026-03-02", 100500, false))

	date, equity, ok, err := store.Latest(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-03-03", date)
	assert.InDelta(t, 101000, equity, 1e-9)

	date, equity, ok, err = store.LatestBefore(ctx, "2026-03-03")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2026-03-02", date)
	assert.InDelta(t, 100500, equity, 1e-9)

	_, _, ok, err = store.LatestBefore(ctx, "2026-03-01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSnapshotAllOrdered(t *testing.T) {
	store := newTestSnapshotStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "2026-03-03", 3, false))
	require.NoError(t, store.Write(ctx, "2026-03-01", 1, false))
	require.NoError(t, store.Write(ctx, "2026-03-02", 2, false))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2026-03-01", all[0].Date)
	assert.Equal(t, "2026-03-03", all[2].Date)
}
