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

func TestMatchCreateIfAbsentCanonicalizes(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	// submitted in reverse order, stored canonical
	match, created, err := repo.CreateIfAbsent(ctx, 7, 3, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, uint64(3), match.User1ID)
	assert.Equal(t, uint64(7), match.User2ID)
	assert.True(t, match.IsActive)

	// the opposite direction resolves to the same row
	again, created, err := repo.CreateIfAbsent(ctx, 3, 7, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, match.ID, again.ID)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// Both like directions detect the match at the same time; the pair unique
// index must let exactly one insert through.
func TestMatchCreateIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan bool, attempts)
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := uint64(1), uint64(2)
			if i%2 == 1 {
				a, b = b, a // half detect from the reverse direction
			}
			_, created, err := repo.CreateIfAbsent(ctx, a, b, time.Now().UTC())
			if err != nil {
				errs <- err
				return
			}
			results <- created
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	winners := 0
	for created := range results {
		if created {
			winners++
		}
	}
	assert.Equal(t, 1, winners)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMatchDeactivate(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	match, _, err := repo.CreateIfAbsent(ctx, 1, 2, time.Now().UTC())
	require.NoError(t, err)

	changed, err := repo.Deactivate(ctx, match.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.Deactivate(ctx, match.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	// row survives deactivation
	got, err := repo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := repo.HasActiveForPair(ctx, 2, 1)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMatchListForUser(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	_, _, err := repo.CreateIfAbsent(ctx, 1, 2, time.Now().UTC())
	require.NoError(t, err)
	_, _, err = repo.CreateIfAbsent(ctx, 3, 1, time.Now().UTC())
	require.NoError(t, err)
	inactive, _, err := repo.CreateIfAbsent(ctx, 1, 4, time.Now().UTC())
	require.NoError(t, err)
	_, err = repo.Deactivate(ctx, inactive.ID)
	require.NoError(t, err)

	matches, err := repo.ListForUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}
