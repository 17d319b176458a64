package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matchadev/matcha-engine/internal/db"
	"github.com/matchadev/matcha-engine/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model. It is
// the only writer of like rows.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Create inserts a like for liker -> target if absent.
//
// Behavior:
//   - Insert-if-absent on the (liker_id, target_id) unique index via
//     ON CONFLICT DO NOTHING; a duplicate submission is a no-op.
//   - created is derived from RowsAffected, so concurrent duplicate
//     submissions report created=true exactly once.
//
// Example:
//
//	like, created, err := repo.Create(ctx, 1, 2) // user 1 likes user 2
func (r *LikeRepository) Create(
	ctx context.Context,
	likerID, targetID uint64,
) (*db.Like, bool, error) {
	like := db.Like{
		LikerID:  likerID,
		TargetID: targetID,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "liker_id"}, {Name: "target_id"}},
			DoNothing: true,
		}).
		Create(&like)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// lost to an earlier/concurrent submission; fetch the winner's row
		existing, err := r.Get(ctx, likerID, targetID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return &like, true, nil
}

// Get returns the like row for the ordered (liker, target) pair.
func (r *LikeRepository) Get(
	ctx context.Context,
	likerID, targetID uint64,
) (*db.Like, error) {
	var like db.Like
	err := r.db.WithContext(ctx).
		Where("liker_id = ? AND target_id = ?", likerID, targetID).
		Take(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// Exists reports whether liker has liked target. Used for the reverse-like
// check in match detection.
func (r *LikeRepository) Exists(
	ctx context.Context,
	likerID, targetID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("liker_id = ? AND target_id = ?", likerID, targetID).
		Count(&count).Error
	return count > 0, err
}

// Delete removes a like row. Returns whether a row was actually deleted.
func (r *LikeRepository) Delete(
	ctx context.Context,
	likerID, targetID uint64,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("liker_id = ? AND target_id = ?", likerID, targetID).
		Delete(&db.Like{})
	return res.RowsAffected > 0, res.Error
}

// GetLikers returns users who liked the given target, newest first.
//
// Behavior:
//   - Ordered by id DESC (insertion order, stable under equal timestamps).
//   - Supports cursor-based pagination via paginationToken.
//
// Example:
//
//	likes, next, err := repo.GetLikers(ctx, 42, nil, 20)
func (r *LikeRepository) GetLikers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 {
		query = query.Where("id < ?", cursor.ID)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{ID: last.ID})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// CountLikers returns how many users liked the given target. Used as the
// DB fallback behind the Redis received-like counter.
func (r *LikeRepository) CountLikers(
	ctx context.Context,
	targetID uint64,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("target_id = ?", targetID).
		Count(&count).Error
	return count, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
