package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/matchadev/matcha-engine/internal/db"
)

// ConversationRepository provides data access methods for the Conversation
// model. It is the sole writer of conversation rows; pointer fields only
// move through the guarded updates below.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given DB connection.
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// CreateIfAbsent atomically provisions the conversation for a member pair.
//
// Behavior:
//   - Canonicalized pair, ON CONFLICT DO NOTHING on ux_conv_pair — the
//     same compare-and-swap shape as match creation, so replayed match
//     events provision at most one conversation.
//   - The loser fetches the winner's row, whatever its active state, to
//     preserve message history across deactivation.
func (r *ConversationRepository) CreateIfAbsent(
	ctx context.Context,
	userA, userB uint64,
) (*db.Conversation, bool, error) {
	u1, u2 := db.CanonicalPair(userA, userB)
	conv := db.Conversation{
		FirstMemberID:  u1,
		SecondMemberID: u2,
		IsActive:       true,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "first_member_id"}, {Name: "second_member_id"}},
			DoNothing: true,
		}).
		Create(&conv)
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
	return &conv, true, nil
}

// GetByPair returns the conversation for an unordered pair, active or not.
func (r *ConversationRepository) GetByPair(
	ctx context.Context,
	userA, userB uint64,
) (*db.Conversation, error) {
	u1, u2 := db.CanonicalPair(userA, userB)
	var conv db.Conversation
	err := r.db.WithContext(ctx).
		Where("first_member_id = ? AND second_member_id = ?", u1, u2).
		Take(&conv).Error
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetByID returns a conversation by surrogate key.
func (r *ConversationRepository) GetByID(ctx context.Context, id uint64) (*db.Conversation, error) {
	var conv db.Conversation
	if err := r.db.WithContext(ctx).Take(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// SetLastMessage advances the last-message pointer.
//
// Behavior:
//   - Guarded on last_message_seq < seq so racing appends can never move
//     the pointer backward regardless of completion order. RowsAffected=0
//     means a newer message already holds the pointer; that is success.
func (r *ConversationRepository) SetLastMessage(
	ctx context.Context,
	convID, messageID, seq uint64,
	at time.Time,
) error {
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ? AND last_message_seq < ?", convID, seq).
		UpdateColumns(map[string]interface{}{
			"last_message_id":  messageID,
			"last_message_seq": seq,
			"last_message_at":  at,
		}).Error
}

// SetLastRead advances one member's read pointer, monotonically.
//
// Behavior:
//   - first selects which member slot to update (canonical first/second
//     member, matching the column layout).
//   - Guarded on the stored seq being <= the new one: a stale markRead
//     (seq 3 after seq 5) affects zero rows and the pointer keeps the
//     maximum, which is exactly the concurrent-update resolution §5 asks
//     for.
func (r *ConversationRepository) SetLastRead(
	ctx context.Context,
	convID uint64,
	first bool,
	messageID, seq uint64,
	at time.Time,
) error {
	cols := map[string]interface{}{
		"first_last_read_msg_id": messageID,
		"first_last_read_seq":    seq,
		"first_last_read_at":     at,
	}
	guard := "id = ? AND first_last_read_seq <= ?"
	if !first {
		cols = map[string]interface{}{
			"second_last_read_msg_id": messageID,
			"second_last_read_seq":    seq,
			"second_last_read_at":     at,
		}
		guard = "id = ? AND second_last_read_seq <= ?"
	}
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where(guard, convID, seq).
		UpdateColumns(cols).Error
}

// Deactivate flips is_active off. Idempotent.
func (r *ConversationRepository) Deactivate(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("is_active", false)
	return res.RowsAffected > 0, res.Error
}

// DeactivateByPair deactivates the conversation for a pair, if present.
// Used by the match-deactivation cascade.
func (r *ConversationRepository) DeactivateByPair(ctx context.Context, userA, userB uint64) error {
	u1, u2 := db.CanonicalPair(userA, userB)
	return r.db.WithContext(ctx).
		Model(&db.Conversation{}).
		Where("first_member_id = ? AND second_member_id = ? AND is_active = ?", u1, u2, true).
		UpdateColumn("is_active", false).Error
}
