package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storeWith(t *testing.T, events ...Event) *Store {
	t.Helper()
	store, err := NewStore(NewRepositoryStub())
	require.NoError(t, err)
	for _, e := range events {
		require.NoError(t, store.Add(e))
	}
	return store
}

func TestSuggestFreeSlot(t *testing.T) {
	t.Run("empty calendar returns the first candidate", func(t *testing.T) {
		store := storeWith(t)

		slot, ok := store.SuggestFreeSlot(at(1, 10, 0), 60)

		require.True(t, ok)
		assert.Equal(t, at(1, 10, 30), slot)
	})

	t.Run("skips past an existing event", func(t *testing.T) {
		store := storeWith(t, mustEvent(t, "Busy", at(1, 10, 0), 60))

		slot, ok := store.SuggestFreeSlot(at(1, 10, 0), 60)

		require.True(t, ok)
		assert.Equal(t, at(1, 11, 0), slot)
		assert.False(t, slot.Before(at(1, 11, 0)))
	})

	t.Run("candidate may touch the following event", func(t *testing.T) {
		store := storeWith(t,
			mustEvent(t, "Morning", at(1, 9, 0), 60),
			mustEvent(t, "Later", at(1, 10, 30), 60),
		)

		slot, ok := store.SuggestFreeSlot(at(1, 9, 0), 30)

		require.True(t, ok)
		assert.Equal(t, at(1, 10, 0), slot)
	})

	t.Run("gives up when the attempt budget is exhausted", func(t *testing.T) {
		store := storeWith(t, mustEvent(t, "Conference", at(1, 0, 0), 3*24*60))

		_, ok := store.SuggestFreeSlot(at(1, 8, 0), 30)

		assert.False(t, ok)
	})

	t.Run("non-positive duration has no suggestion", func(t *testing.T) {
		store := storeWith(t)

		_, ok := store.SuggestFreeSlot(at(1, 8, 0), 0)

		assert.False(t, ok)
	})
}

func TestSlotSearch_CustomBudget(t *testing.T) {
	store, err := NewStore(NewRepositoryStub(), WithSlotSearch(SlotSearch{
		Offset:      15 * time.Minute,
		Step:        15 * time.Minute,
		MaxAttempts: 2,
	}))
	require.NoError(t, err)
	require.NoError(t, store.Add(mustEvent(t, "Block", at(1, 9, 0), 60)))

	_, ok := store.SuggestFreeSlot(at(1, 9, 0), 30) // tries 09:15 and 09:30 only
	assert.False(t, ok)

	slot, ok := store.SuggestFreeSlot(at(1, 9, 30), 30) // 09:45 busy, 10:00 free
	require.True(t, ok)
	assert.Equal(t, at(1, 10, 0), slot)
}
