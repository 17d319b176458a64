package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchadev/matcha-engine/internal/db"
	"github.com/matchadev/matcha-engine/internal/repository"
)

func TestConversationCreateIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	const attempts = 8
	var wg sync.WaitGroup
	ids := make(chan uint64, attempts)
	errs := make(chan error, attempts)

	// replayed match events provision the same pair N times concurrently
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, _, err := repo.CreateIfAbsent(ctx, 2, 1)
			if err != nil {
				errs <- err
				return
			}
			ids <- conv.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := map[uint64]bool{}
	for id := range ids {
		seen[id] = true
	}
	assert.Len(t, seen, 1) // everyone got the same row

	var count int64
	require.NoError(t, dbase.Model(&db.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestConversationReturnedRegardlessOfActiveState(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	conv, _, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)
	_, err = repo.Deactivate(ctx, conv.ID)
	require.NoError(t, err)

	// ensure after deactivation returns the old row, it does not recreate
	again, created, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, conv.ID, again.ID)
	assert.False(t, again.IsActive)
}

func TestSetLastMessageNeverRegresses(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	conv, _, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.SetLastMessage(ctx, conv.ID, 10, 2, now))
	// a racing earlier append completes late; pointer must hold
	require.NoError(t, repo.SetLastMessage(ctx, conv.ID, 9, 1, now))

	got, err := repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageID)
	assert.Equal(t, uint64(10), *got.LastMessageID)
	assert.Equal(t, uint64(2), got.LastMessageSeq)
}

func TestSetLastReadMonotonicPerMember(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewConversationRepository(dbase)

	conv, _, err := repo.CreateIfAbsent(ctx, 1, 2)
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, repo.SetLastRead(ctx, conv.ID, true, 50, 5, now))
	// stale markRead with an older message: zero rows affected
	require.NoError(t, repo.SetLastRead(ctx, conv.ID, true, 30, 3, now))

	got, err := repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FirstLastReadMsgID)
	assert.Equal(t, uint64(50), *got.FirstLastReadMsgID)
	assert.Equal(t, uint64(5), got.FirstLastReadSeq)

	// the other member's pointer is independent
	assert.Nil(t, got.SecondLastReadMsgID)
	require.NoError(t, repo.SetLastRead(ctx, conv.ID, false, 30, 3, now))
	got, err = repo.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), got.SecondLastReadSeq)
	assert.Equal(t, uint64(5), got.FirstLastReadSeq)
}
