// Package conversations owns conversation rows: lazy provisioning from
// match events, activity state, and the last-message / per-member read
// pointers.
package conversations

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/repository"
)

// Manager is the sole writer of conversation rows and the sole mutator of
// their pointer fields.
type Manager struct {
	appCtx   *app.AppContext
	convRepo *repository.ConversationRepository
	msgRepo  *repository.MessageRepository
}

// NewManager creates a new Manager with dependencies from AppContext.
func NewManager(appCtx *app.AppContext) *Manager {
	return &Manager{
		appCtx:   appCtx,
		convRepo: repository.NewConversationRepository(appCtx.DB),
		msgRepo:  repository.NewMessageRepository(appCtx.DB),
	}
}

// EnsureConversation returns the conversation for an unordered pair,
// creating it on first call.
//
// Behavior:
//   - Safe under concurrent invocation for the same pair: creation is a
//     compare-and-swap on the canonical pair key, the loser retrieves the
//     winner's row.
//   - An existing conversation is returned regardless of active state so
//     message history survives deactivation.
//   - A lost race whose follow-up fetch misses (should not happen under
//     a committed winner) surfaces ErrConflictRetryable; one retry is
//     always enough.
func (m *Manager) EnsureConversation(ctx context.Context, userA, userB uint64) (*db.Conversation, error) {
	if userA == userB {
		return nil, apperrors.Invalid("conversation members must differ")
	}
	conv, created, err := m.convRepo.CreateIfAbsent(ctx, userA, userB)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrConflictRetryable
	}
	if err != nil {
		return nil, apperrors.Map(err)
	}
	if created {
		m.appCtx.Logger.Info("conversation provisioned",
			"conversation", conv.ID, "member1", conv.FirstMemberID, "member2", conv.SecondMemberID)
	}
	return conv, nil
}

// Get returns a conversation by id.
func (m *Manager) Get(ctx context.Context, convID uint64) (*db.Conversation, error) {
	conv, err := m.convRepo.GetByID(ctx, convID)
	if err != nil {
		return nil, apperrors.Map(err)
	}
	return conv, nil
}

// RecordDelivery advances the last-message pointer after an append. Called
// only by the message store, which has already serialized ordering; the
// guarded update additionally protects against out-of-order completion of
// racing appends.
func (m *Manager) RecordDelivery(ctx context.Context, convID, messageID, seq uint64, at time.Time) error {
	return apperrors.Map(m.convRepo.SetLastMessage(ctx, convID, messageID, seq, at))
}

// MarkRead advances readerID's read pointer to the given message.
//
// Behavior:
//   - Fails with ErrNotAMember if readerID is not one of the two members.
//   - The target message must belong to the conversation.
//   - The pointer never regresses: marking an older message than the
//     current pointer is a silent no-op, concurrent updates keep the
//     maximum.
func (m *Manager) MarkRead(ctx context.Context, convID, readerID, messageID uint64) error {
	conv, err := m.convRepo.GetByID(ctx, convID)
	if err != nil {
		return apperrors.Map(err)
	}
	if readerID != conv.FirstMemberID && readerID != conv.SecondMemberID {
		return apperrors.ErrNotAMember
	}

	msg, err := m.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return apperrors.Map(err)
	}
	if msg.ConversationID != convID {
		return apperrors.Invalid("message %d is not in conversation %d", messageID, convID)
	}

	first := readerID == conv.FirstMemberID
	return apperrors.Map(m.convRepo.SetLastRead(ctx, convID, first, msg.ID, msg.Seq, time.Now().UTC()))
}

// Deactivate turns the conversation off; subsequent appends fail with
// ErrConversationInactive. Idempotent, and never deletes messages.
func (m *Manager) Deactivate(ctx context.Context, convID uint64) error {
	changed, err := m.convRepo.Deactivate(ctx, convID)
	if err != nil {
		return apperrors.Map(err)
	}
	if changed {
		m.appCtx.Logger.Info("conversation deactivated", "conversation", convID)
	}
	return nil
}

// DeactivateForPair deactivates the pair's conversation if one exists.
// Cascade entry point for match deactivation.
func (m *Manager) DeactivateForPair(ctx context.Context, userA, userB uint64) error {
	return apperrors.Map(m.convRepo.DeactivateByPair(ctx, userA, userB))
}
