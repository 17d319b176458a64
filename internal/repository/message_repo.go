package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/utils/pagination"
)

// MessageRepository provides data access methods for the Message model.
// It owns message rows and the per-conversation sequence allocator.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Append inserts a message with a freshly allocated position.
//
// Behavior:
//   - Runs in a transaction. The conversation's message_seq counter is
//     incremented with a guarded UPDATE that also checks is_active; the
//     row lock this takes serializes concurrent senders, so positions are
//     unique and strictly reflect arrival order as observed here (not
//     client-claimed timestamps).
//   - The allocated seq is read back inside the same transaction and
//     assigned to msg.Seq before the insert.
//   - A zero-row update means the conversation is missing (ErrNotFound
//     via the fetch) or deactivated (ErrConversationInactive).
func (r *MessageRepository) Append(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&db.Conversation{}).
			Where("id = ? AND is_active = ?", msg.ConversationID, true).
			UpdateColumn("message_seq", gorm.Expr("message_seq + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var conv db.Conversation
			if err := tx.Take(&conv, msg.ConversationID).Error; err != nil {
				return apperrors.Map(err)
			}
			return apperrors.ErrConversationInactive
		}

		var conv db.Conversation
		if err := tx.Select("message_seq").Take(&conv, msg.ConversationID).Error; err != nil {
			return err
		}
		msg.Seq = conv.MessageSeq

		return tx.Create(msg).Error
	})
}

// GetByID returns a message by surrogate key, tombstones included.
func (r *MessageRepository) GetByID(ctx context.Context, id uint64) (*db.Message, error) {
	var msg db.Message
	if err := r.db.WithContext(ctx).Take(&msg, id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// SetEdited replaces content and stamps edited_at. Seq and created_at are
// never touched, so the message keeps its position.
func (r *MessageRepository) SetEdited(
	ctx context.Context,
	id uint64,
	content string,
	at time.Time,
) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"content":   content,
			"edited_at": at,
		}).Error
}

// SetDeleted stamps deleted_at, turning the row into a tombstone. Content
// is retained internally; read paths withhold it. Idempotent: an already
// deleted message affects zero rows.
func (r *MessageRepository) SetDeleted(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("id = ? AND deleted_at IS NULL", id).
		UpdateColumn("deleted_at", at).Error
}

// ListAfterSeq returns a conversation's messages with seq > after, in
// increasing seq order, with cursor pagination for restartable reads.
//
// Example:
//
//	msgs, next, err := repo.ListAfterSeq(ctx, convID, 0, nil, 50)
func (r *MessageRepository) ListAfterSeq(
	ctx context.Context,
	convID uint64,
	after uint64,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	var msgs []db.Message

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}
	if cursor.Seq > after {
		after = cursor.Seq
	}

	query := r.db.WithContext(ctx).
		Where("conversation_id = ? AND seq > ?", convID, after).
		Order("seq ASC").
		Limit(limit + 1)

	if err := query.Find(&msgs).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(msgs) > limit {
		last := msgs[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{Seq: last.Seq})
		nextToken = &token
		msgs = msgs[:limit]
	}

	return msgs, nextToken, nil
}

// CountInConversation returns the number of stored messages, tombstones
// included (deletion preserves conversation length).
func (r *MessageRepository) CountInConversation(ctx context.Context, convID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("conversation_id = ?", convID).
		Count(&count).Error
	return count, err
}
