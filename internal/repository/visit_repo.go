package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/matchadev/matcha-engine/internal/db"
	"github.com/matchadev/matcha-engine/internal/utils/pagination"
)

// VisitRepository provides data access methods for the Visit model.
type VisitRepository struct {
	db *gorm.DB
}

// NewVisitRepository creates a new repository bound to the given DB connection.
func NewVisitRepository(database *gorm.DB) *VisitRepository {
	return &VisitRepository{db: database}
}

// Create stores a visit. Repeat visits are distinct rows; there is no
// uniqueness constraint here.
func (r *VisitRepository) Create(
	ctx context.Context,
	visitorID, visitedID uint64,
	isHidden bool,
	at time.Time,
) (*db.Visit, error) {
	visit := db.Visit{
		VisitorID: visitorID,
		VisitedID: visitedID,
		VisitedAt: at,
		IsHidden:  isHidden,
	}
	if err := r.db.WithContext(ctx).Create(&visit).Error; err != nil {
		return nil, err
	}
	return &visit, nil
}

// ListForVisited returns visits received by a user, newest first, hidden
// ones included (hiding suppresses dispatch, not storage), cursor-paged.
func (r *VisitRepository) ListForVisited(
	ctx context.Context,
	visitedID uint64,
	paginationToken *string,
	limit int,
) ([]db.Visit, *string, error) {
	var visits []db.Visit

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("visited_id = ?", visitedID).
		Order("id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 {
		query = query.Where("id < ?", cursor.ID)
	}

	if err := query.Find(&visits).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(visits) > limit {
		last := visits[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{ID: last.ID})
		nextToken = &token
		visits = visits[:limit]
	}

	return visits, nextToken, nil
}
