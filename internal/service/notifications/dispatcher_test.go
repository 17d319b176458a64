package notifications_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/cache"
	"github.com/matchadev/matcha-engine/internal/config"
	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/service/notifications"
)

// setupDispatcher spins up an in-memory SQLite DB, a miniredis, and wires
// a Dispatcher. Each test gets its own isolated DB + Redis.
func setupDispatcher(t *testing.T) *notifications.Dispatcher {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(dbase))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(func() { mr.Close() })

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	return notifications.NewDispatcher(app.New(dbase, redisCache, logger))
}

func likeEvent(recipient, actor uint64, source string) notifications.Event {
	return notifications.Event{
		Type:          notifications.TypeLike,
		RecipientID:   recipient,
		ActorID:       actor,
		SourceEventID: source,
		Payload:       notifications.LikePayload{LikeID: 1},
	}
}

func TestDispatchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d := setupDispatcher(t)

	created, err := d.Dispatch(ctx, likeEvent(1, 2, "like:1"))
	require.NoError(t, err)
	assert.True(t, created)

	// same logical event replayed: one stored row
	created, err = d.Dispatch(ctx, likeEvent(1, 2, "like:1"))
	require.NoError(t, err)
	assert.False(t, created)

	count, err := d.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDispatchRejectsMismatchedPayload(t *testing.T) {
	ctx := context.Background()
	d := setupDispatcher(t)

	_, err := d.Dispatch(ctx, notifications.Event{
		Type:          notifications.TypeMatch,
		RecipientID:   1,
		ActorID:       2,
		SourceEventID: "match:1",
		Payload:       notifications.LikePayload{LikeID: 1}, // wrong shape
	})
	assert.Error(t, err)
}

func TestMarkRead(t *testing.T) {
	ctx := context.Background()
	d := setupDispatcher(t)

	_, err := d.Dispatch(ctx, likeEvent(1, 2, "like:1"))
	require.NoError(t, err)

	notifs, _, err := d.List(ctx, 1, nil, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)

	// wrong user
	err = d.MarkRead(ctx, notifs[0].ID, 99)
	assert.True(t, errors.Is(err, apperrors.ErrNotRecipient))

	require.NoError(t, d.MarkRead(ctx, notifs[0].ID, 1))
	// repeat is a no-op
	require.NoError(t, d.MarkRead(ctx, notifs[0].ID, 1))

	count, err := d.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	err = d.MarkRead(ctx, 9999, 1)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestUnreadCountCacheFallsBackToDB(t *testing.T) {
	ctx := context.Background()
	d := setupDispatcher(t)

	for i := 1; i <= 3; i++ {
		_, err := d.Dispatch(ctx, likeEvent(1, uint64(i+1), fmt.Sprintf("like:%d", i)))
		require.NoError(t, err)
	}

	// first call populates the cache from the DB, second hits the cache
	count, err := d.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	count, err = d.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	// a fresh dispatch keeps the cached counter in step
	_, err = d.Dispatch(ctx, likeEvent(1, 9, "like:9"))
	require.NoError(t, err)
	count, err = d.UnreadCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestSubscribeDeliversBestEffort(t *testing.T) {
	ctx := context.Background()
	d := setupDispatcher(t)

	sub := d.Subscribe(1)
	defer d.Unsubscribe(sub)

	_, err := d.Dispatch(ctx, likeEvent(1, 2, "like:1"))
	require.NoError(t, err)

	select {
	case notif := <-sub.C:
		assert.Equal(t, notifications.TypeLike, notif.Type)
		assert.Equal(t, uint64(1), notif.RecipientID)
	case <-time.After(time.Second):
		t.Fatal("expected live delivery")
	}

	// replay produces no second signal
	_, err = d.Dispatch(ctx, likeEvent(1, 2, "like:1"))
	require.NoError(t, err)
	select {
	case <-sub.C:
		t.Fatal("duplicate event must not signal subscribers")
	case <-time.After(50 * time.Millisecond):
	}
}
