package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matchadev/matcha-engine/internal/db"
	"github.com/matchadev/matcha-engine/internal/utils/pagination"
)

// NotificationRepository provides data access methods for the Notification
// model.
type NotificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new repository bound to the given DB connection.
func NewNotificationRepository(database *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: database}
}

// CreateIfAbsent stores a notification if its dedup key is unseen.
//
// Behavior:
//   - ON CONFLICT DO NOTHING on ux_notif_dedupe(recipient, type, actor,
//     source_event_id): the uniqueness constraint, not application
//     locking, collapses concurrent duplicate dispatches to one row.
//   - created=false means the same logical event was already fanned out.
func (r *NotificationRepository) CreateIfAbsent(
	ctx context.Context,
	notif *db.Notification,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "recipient_id"},
				{Name: "type"},
				{Name: "actor_user_id"},
				{Name: "source_event_id"},
			},
			DoNothing: true,
		}).
		Create(notif)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// GetByID returns a notification by surrogate key.
func (r *NotificationRepository) GetByID(ctx context.Context, id uint64) (*db.Notification, error) {
	var notif db.Notification
	if err := r.db.WithContext(ctx).Take(&notif, id).Error; err != nil {
		return nil, err
	}
	return &notif, nil
}

// MarkRead flips is_read for a notification owned by recipientID.
// Returns whether a row changed; zero rows with a matching id means the
// notification was already read.
func (r *NotificationRepository) MarkRead(
	ctx context.Context,
	id, recipientID uint64,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		UpdateColumn("is_read", true)
	return res.RowsAffected > 0, res.Error
}

// CountUnread returns the recipient's unread notification count. DB
// fallback behind the Redis counter.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&count).Error
	return count, err
}

// ListForRecipient returns a recipient's notifications, newest first,
// cursor-paged.
func (r *NotificationRepository) ListForRecipient(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Notification, *string, error) {
	var notifs []db.Notification

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("id DESC").
		Limit(limit + 1)

	if cursor.ID > 0 {
		query = query.Where("id < ?", cursor.ID)
	}

	if err := query.Find(&notifs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(notifs) > limit {
		last := notifs[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{ID: last.ID})
		nextToken = &token
		notifs = notifs[:limit]
	}

	return notifs, nextToken, nil
}
