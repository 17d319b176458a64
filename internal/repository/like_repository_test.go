package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchadev/matcha-engine/internal/db"
	"github.com/matchadev/matcha-engine/internal/repository"
)

func TestLikeCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, created, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	// duplicate submission is a no-op, not an error
	like, created, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, created)
	require.NotNil(t, like)

	var count int64
	require.NoError(t, dbase.Model(&db.Like{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestLikeDirectionsAreDistinct(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, created, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, created)

	_, created, err = repo.Create(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, created)

	ok, err := repo.Exists(ctx, 2, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLikeDelete(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, _, err := repo.Create(ctx, 1, 2)
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, deleted)

	// second delete finds nothing
	deleted, err = repo.Delete(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestGetLikersPagination(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	for liker := uint64(1); liker <= 5; liker++ {
		_, _, err := repo.Create(ctx, liker, 99)
		require.NoError(t, err)
	}

	first, next, err := repo.GetLikers(ctx, 99, nil, 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, next)
	assert.Equal(t, uint64(5), first[0].LikerID) // newest first

	rest, next, err := repo.GetLikers(ctx, 99, next, 3)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Nil(t, next)
	assert.Equal(t, uint64(1), rest[1].LikerID)
}

func TestCountLikers(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewLikeRepository(dbase)

	_, _, err := repo.Create(ctx, 1, 99)
	require.NoError(t, err)
	_, _, err = repo.Create(ctx, 2, 99)
	require.NoError(t, err)
	_, _, err = repo.Create(ctx, 99, 1) // outbound, must not count
	require.NoError(t, err)

	count, err := repo.CountLikers(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
