package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}

func TestStoreAppendAndListUpTo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, buyTrade(2, "AAA", 10, 100, 1, 98999)))
	require.NoError(t, store.Append(ctx, buyTrade(1, "BBB", 20, 50, 1, 97998)))
	require.NoError(t, store.Append(ctx, sellTrade(5, "AAA", 11, 50, 1, 98547)))

	got, err := store.ListUpTo(ctx, ts(3))
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Chronological, not insertion, order.
	assert.Equal(t, "BBB", got[0].Code)
	assert.Equal(t, "AAA", got[1].Code)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestStoreAppendValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Append(ctx, Trade{Code: "", Action: ActionBuy, Price: 10, Quantity: 1})
	assert.Error(t, err)

	err = store.Append(ctx, Trade{Code: "AAA", Action: "hold", Price: 10, Quantity: 1})
	assert.Error(t, err)

	err = store.Append(ctx, Trade{Code: "AAA", Action: ActionSell, Price: -1, Quantity: 1})
	assert.Error(t, err)
}

func TestStoreDefaultsTimestampAndID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, Trade{
		Code: "AAA", Action: ActionBuy, Price: 10, Quantity: 100, GrossValue: 1000,
	}))
	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.WithinDuration(t, time.Now(), all[0].Timestamp, time.Minute)
}
