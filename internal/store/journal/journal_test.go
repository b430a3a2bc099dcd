package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPutAndLoadEvents(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, db.PutEvent(ctx, Event{TS: now.Add(-time.Minute), RunID: "r1", Type: TypeFetch, User: "_b_axe", Fields: map[string]any{"count": 2}}))
	require.NoError(t, db.PutEvent(ctx, Event{TS: now, RunID: "r1", Type: TypeReply, User: "_b_axe", TweetID: "1218642707586977797"}))

	all, err := db.LoadEventsRange(ctx, now.Add(-time.Hour), now.Add(time.Hour), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, TypeFetch, all[0].Type)
	assert.Equal(t, float64(2), all[0].Fields["count"])
	assert.Nil(t, all[1].Fields)

	replies, err := db.LoadEventsRange(ctx, now.Add(-time.Hour), now.Add(time.Hour), TypeReply)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, "1218642707586977797", replies[0].TweetID)
}

func TestCountByType(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, db.PutEvent(ctx, Event{TS: old, Type: TypeReply}))
	require.NoError(t, db.PutEvent(ctx, Event{Type: TypeReply}))
	require.NoError(t, db.PutEvent(ctx, Event{Type: TypeCaptureFailed}))

	counts, err := db.CountByType(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{TypeReply: 1, TypeCaptureFailed: 1}, counts)
}

func TestLastEvent(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	_, ok, err := db.LastEvent(ctx, TypeRun)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.PutEvent(ctx, Event{TS: time.Now().Add(-time.Hour), RunID: "old", Type: TypeRun}))
	require.NoError(t, db.PutEvent(ctx, Event{RunID: "new", Type: TypeRun, Fields: map[string]any{"users": 3, "posted": 1}}))
	e, ok, err := db.LastEvent(ctx, TypeRun)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "new", e.RunID)
	assert.Equal(t, map[string]any{"users": float64(3), "posted": float64(1)}, e.Fields)
}
