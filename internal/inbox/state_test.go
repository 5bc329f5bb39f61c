package inbox_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/milkfeed/internal/inbox"
	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/tests/testutil"
)

var base = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func note(id string, minute int, read bool) model.Notification {
	return model.Notification{
		ID:        id,
		Message:   "message " + id,
		Kind:      model.KindInfo,
		CreatedAt: base.Add(time.Duration(minute) * time.Minute),
		IsRead:    read,
	}
}

func ids(entries []model.Notification) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestRenderInitialSortsNewestFirstAndCountsUnread(t *testing.T) {
	f := inbox.NewFeedState()
	f.RenderInitial([]model.Notification{
		note("a", 1, false),
		note("c", 3, true),
		note("b", 2, false),
		note("d", 3, false),
	})

	assert.Equal(t, []string{"d", "c", "b", "a"}, ids(f.Entries()))
	assert.Equal(t, 3, f.Badge())
	assert.Equal(t, 4, f.Len())
}

func TestRenderInitialReplacesPreviousEntries(t *testing.T) {
	f := inbox.NewFeedState()
	f.RenderInitial([]model.Notification{note("a", 1, false), note("b", 2, false)})
	f.RenderInitial([]model.Notification{note("z", 9, true)})

	assert.Equal(t, []string{"z"}, ids(f.Entries()))
	assert.Equal(t, 0, f.Badge())
}

func TestRenderIncomingPrependsInArrivalOrder(t *testing.T) {
	f := inbox.NewFeedState()
	f.RenderInitial([]model.Notification{note("old", 0, true)})

	assert.True(t, f.RenderIncoming(note("n1", 5, false)))
	assert.True(t, f.RenderIncoming(note("n2", 6, false)))
	assert.True(t, f.RenderIncoming(note("n3", 7, true)))

	assert.Equal(t, []string{"n3", "n2", "n1", "old"}, ids(f.Entries()))
	assert.Equal(t, 2, f.Badge())
}

func TestRenderIncomingIgnoresDisplayedID(t *testing.T) {
	f := inbox.NewFeedState()
	require.True(t, f.RenderIncoming(note("n1", 1, false)))
	assert.False(t, f.RenderIncoming(note("n1", 1, false)))

	assert.Equal(t, 1, f.Len())
	assert.Equal(t, 1, f.Badge())
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := inbox.NewFeedState()
	f.RenderInitial([]model.Notification{note("a", 1, false), note("b", 2, false)})

	assert.True(t, f.MarkRead("a"))
	assert.Equal(t, 1, f.Badge())

	assert.False(t, f.MarkRead("a"))
	assert.Equal(t, 1, f.Badge())

	assert.False(t, f.MarkRead("missing"))
	assert.Equal(t, 1, f.Badge())

	entries := f.Entries()
	assert.Equal(t, "b", entries[0].ID)
	assert.False(t, entries[0].IsRead)
	assert.True(t, entries[1].IsRead)
}

func TestMarkAllRead(t *testing.T) {
	for _, unread := range []int{0, 1, 5} {
		t.Run(fmt.Sprintf("%d unread", unread), func(t *testing.T) {
			f := inbox.NewFeedState()
			records := []model.Notification{note("read", 0, true)}
			for i := 0; i < unread; i++ {
				records = append(records, note(fmt.Sprintf("u%d", i), i+1, false))
			}
			f.RenderInitial(records)
			require.Equal(t, unread, f.Badge())

			changed := f.MarkAllRead()
			assert.Len(t, changed, unread)
			assert.Equal(t, 0, f.Badge())
			assert.Empty(t, f.Unread())
			assert.Equal(t, unread+1, f.Len())

			assert.Empty(t, f.MarkAllRead())
		})
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	f := inbox.NewFeedState()
	f.RenderInitial([]model.Notification{note("a", 1, false)})

	entries := f.Entries()
	entries[0].IsRead = true

	assert.Equal(t, 1, f.Badge())
	got, ok := f.At(0)
	require.True(t, ok)
	assert.False(t, got.IsRead)

	_, ok = f.At(1)
	assert.False(t, ok)
}

func TestReloadMatchesStore(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for i, read := range []bool{false, true, false, false, true} {
		require.NoError(t, s.Put(ctx, note(fmt.Sprintf("n%d", i), i, read)))
	}
	_, err := s.MarkRead(ctx, "n2")
	require.NoError(t, err)

	all, err := s.GetAll(ctx)
	require.NoError(t, err)

	f := inbox.NewFeedState()
	f.RenderInitial(all)

	assert.Equal(t, []string{"n4", "n3", "n2", "n1", "n0"}, ids(f.Entries()))
	unread, err := s.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, unread, f.Badge())
	assert.Equal(t, 2, f.Badge())
}

func TestPickupScenario(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	f := inbox.NewFeedState()
	f.RenderInitial(nil)
	require.Equal(t, 0, f.Badge())

	arrival := model.Notification{
		ID:        "0192f3a0-0000-7000-8000-000000000042",
		Message:   "Pickup #42 confirmed",
		Kind:      model.KindCollection,
		CreatedAt: base,
	}
	require.NoError(t, s.Put(ctx, arrival))
	f.RenderIncoming(arrival)
	assert.Equal(t, 1, f.Badge())

	require.True(t, f.MarkRead(arrival.ID))
	changed, err := s.MarkRead(ctx, arrival.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, f.Badge())

	stored, err := s.GetByID(ctx, arrival.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsRead)
}
