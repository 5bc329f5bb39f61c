package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/milkfeed/internal/model"
	"github.com/nhle/milkfeed/internal/store"
	"github.com/nhle/milkfeed/tests/testutil"
)

func newNotification(id, msg string, at time.Time) model.Notification {
	return model.Notification{
		ID:        id,
		Message:   msg,
		Kind:      model.KindInfo,
		Source:    model.TransportWebSocket,
		CreatedAt: at,
	}
}

func TestPutAndGetByID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 6, 30, 0, 123000000, time.UTC)

	n := newNotification("n-1", "Pickup #42 confirmed", at)
	n.Kind = model.KindCollection
	require.NoError(t, s.Put(ctx, n))

	got, err := s.GetByID(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, "Pickup #42 confirmed", got.Message)
	assert.Equal(t, model.KindCollection, got.Kind)
	assert.Equal(t, model.TransportWebSocket, got.Source)
	assert.False(t, got.IsRead)
	assert.True(t, at.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, at)
}

func TestGetByIDNotFound(t *testing.T) {
	s := testutil.NewTestStore(t)

	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPutRejectsEmptyID(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.Put(context.Background(), newNotification("", "x", time.Now()))
	assert.Error(t, err)
}

func TestPutOverwritesByID(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	require.NoError(t, s.Put(ctx, newNotification("n-1", "first", at)))
	require.NoError(t, s.Put(ctx, newNotification("n-1", "second", at)))

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "second", all[0].Message)
}

func TestPutNeverClearsReadFlag(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	n := newNotification("n-1", "Tanker 7 arrived", time.Now())
	n.IsRead = true
	require.NoError(t, s.Put(ctx, n))

	n.IsRead = false
	require.NoError(t, s.Put(ctx, n))

	got, err := s.GetByID(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)
}

func TestMarkRead(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, newNotification("n-1", "Quality check failed", time.Now())))

	changed, err := s.MarkRead(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.MarkRead(ctx, "n-1")
	require.NoError(t, err)
	assert.False(t, changed, "second mark-read must be a no-op")

	got, err := s.GetByID(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, got.IsRead)

	_, err = s.MarkRead(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCountUnread(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Put(ctx, newNotification(id, "msg "+id, now)))
	}
	_, err := s.MarkRead(ctx, "b")
	require.NoError(t, err)

	count, err := s.CountUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestConcurrentMarkReadOnDistinctIDs(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	ids := []string{"a", "b", "c", "d", "e", "f"}
	for _, id := range ids {
		require.NoError(t, s.Put(ctx, newNotification(id, "msg", time.Now())))
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.MarkRead(ctx, id)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	count, err := s.CountUnread(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReopenKeepsRecords(t *testing.T) {
	path := t.TempDir() + "/notifications.db"
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, newNotification("n-1", "Route 3 delayed", time.Now())))
	_, err = s.MarkRead(ctx, "n-1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsRead)
}
