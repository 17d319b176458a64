package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matchadev/matcha-engine/internal/db"
)

// MatchRepository provides data access methods for the Match model. It is
// the sole writer of match rows.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent atomically creates the match for an unordered user pair.
//
// Behavior:
//   - The pair is canonicalized (smaller id first) and inserted under the
//     ux_match_pair unique index with ON CONFLICT DO NOTHING. This is the
//     compare-and-swap that resolves the concurrent A→B / B→A detection
//     race: exactly one row results no matter how many detectors fire.
//   - The loser observes RowsAffected == 0 and fetches the winner's row.
//
// Example:
//
//	match, created, err := repo.CreateIfAbsent(ctx, 2, 1, now)
func (r *MatchRepository) CreateIfAbsent(
	ctx context.Context,
	userA, userB uint64,
	matchedAt time.Time,
) (*db.Match, bool, error) {
	u1, u2 := db.CanonicalPair(userA, userB)
	match := db.Match{
		User1ID:   u1,
		User2ID:   u2,
		MatchedAt: matchedAt,
		IsActive:  true,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.GetByPair(ctx, u1, u2)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}
	return &match, true, nil
}

// GetByPair returns the match for an unordered pair, active or not.
func (r *MatchRepository) GetByPair(
	ctx context.Context,
	userA, userB uint64,
) (*db.Match, error) {
	u1, u2 := db.CanonicalPair(userA, userB)
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Take(&match).Error
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// GetByID returns a match by surrogate key.
func (r *MatchRepository) GetByID(ctx context.Context, id uint64) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).Take(&match, id).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// HasActiveForPair reports whether an active match exists for the pair.
func (r *MatchRepository) HasActiveForPair(
	ctx context.Context,
	userA, userB uint64,
) (bool, error) {
	u1, u2 := db.CanonicalPair(userA, userB)
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("user1_id = ? AND user2_id = ? AND is_active = ?", u1, u2, true).
		Count(&count).Error
	return count > 0, err
}

// Deactivate flips is_active off. Idempotent: deactivating an already
// inactive match reports changed=false.
func (r *MatchRepository) Deactivate(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("is_active", false)
	return res.RowsAffected > 0, res.Error
}

// ListForUser returns all active matches involving the given user.
func (r *MatchRepository) ListForUser(
	ctx context.Context,
	userID uint64,
) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user1_id = ? OR user2_id = ?) AND is_active = ?", userID, userID, true).
		Order("matched_at DESC").
		Find(&matches).Error
	return matches, err
}
