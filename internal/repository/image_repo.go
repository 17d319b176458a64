package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matchadev/matcha-engine/internal/db"
)

// ImageRepository provides data access for profile images and image likes.
// Upload and CDN delivery live outside the engine; only the records are
// managed here.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new repository bound to the given DB connection.
func NewImageRepository(database *gorm.DB) *ImageRepository {
	return &ImageRepository{db: database}
}

// Create stores an image reference for a user.
func (r *ImageRepository) Create(ctx context.Context, img *db.Image) error {
	return r.db.WithContext(ctx).Create(img).Error
}

// GetByID returns an image by surrogate key.
func (r *ImageRepository) GetByID(ctx context.Context, id uint64) (*db.Image, error) {
	var img db.Image
	if err := r.db.WithContext(ctx).Take(&img, id).Error; err != nil {
		return nil, err
	}
	return &img, nil
}

// ListForUser returns a user's images, main image first.
func (r *ImageRepository) ListForUser(ctx context.Context, userID uint64) ([]db.Image, error) {
	var imgs []db.Image
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_main DESC, id ASC").
		Find(&imgs).Error
	return imgs, err
}

// CreateLikeIfAbsent records a user liking an image. Composite PK
// (user_id, image_id) plus ON CONFLICT DO NOTHING makes re-likes no-ops.
func (r *ImageRepository) CreateLikeIfAbsent(
	ctx context.Context,
	userID, imageID uint64,
) (bool, error) {
	like := db.ImageLike{
		UserID:  userID,
		ImageID: imageID,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "image_id"}},
			DoNothing: true,
		}).
		Create(&like)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
