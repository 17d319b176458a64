// Package messages appends, edits, and soft-deletes messages inside a
// conversation under strict per-conversation ordering.
package messages

import (
	"context"
	"time"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/repository"
	"github.com/matchadev/matcha-engine/internal/service/conversations"
	"github.com/matchadev/matcha-engine/internal/service/notifications"
)

// previewLen bounds the content preview embedded in message notifications.
const previewLen = 80

// AppendInput carries one message append request. Metadata must match the
// content type tag (nil for text, ImageMetadata for image).
type AppendInput struct {
	ConversationID uint64
	SenderID       uint64
	ContentType    string
	Content        string
	Metadata       any
	IsSystem       bool
}

// View is the reader-facing shape of a message. Tombstones keep their
// position but carry no content or metadata.
type View struct {
	ID          uint64
	Seq         uint64
	SenderID    uint64
	ContentType string
	Content     string
	Metadata    any
	IsSystem    bool
	CreatedAt   time.Time
	EditedAt    *time.Time
	Deleted     bool
}

// Store is the sole writer of message rows and the only caller of the
// conversation manager's RecordDelivery.
type Store struct {
	appCtx     *app.AppContext
	msgRepo    *repository.MessageRepository
	convs      *conversations.Manager
	dispatcher *notifications.Dispatcher
}

// NewStore creates a new message store with dependencies from AppContext.
func NewStore(
	appCtx *app.AppContext,
	convs *conversations.Manager,
	dispatcher *notifications.Dispatcher,
) *Store {
	return &Store{
		appCtx:     appCtx,
		msgRepo:    repository.NewMessageRepository(appCtx.DB),
		convs:      convs,
		dispatcher: dispatcher,
	}
}

// Append inserts a message at the next position of the conversation.
//
// Behavior:
//   - ErrConversationInactive on a deactivated conversation, ErrNotFound
//     on a missing one.
//   - ErrNotAMember unless the sender is a member; system messages are
//     exempt and are stored under the reserved sentinel sender.
//   - The position (seq) is allocated by the repository inside a
//     serializing transaction, so concurrent senders interleave cleanly.
//   - On success the conversation's last-message pointer advances and the
//     other member gets a "message" notification (both members for system
//     messages).
func (s *Store) Append(ctx context.Context, in AppendInput) (*db.Message, error) {
	conv, err := s.convs.Get(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}

	senderID := in.SenderID
	if in.IsSystem {
		senderID = db.SystemSenderID
	} else if senderID != conv.FirstMemberID && senderID != conv.SecondMemberID {
		return nil, apperrors.ErrNotAMember
	}

	raw, err := encodeMetadata(in.ContentType, in.Metadata)
	if err != nil {
		return nil, apperrors.Invalid("%v", err)
	}

	msg := &db.Message{
		ConversationID: in.ConversationID,
		SenderID:       senderID,
		ContentType:    in.ContentType,
		Content:        in.Content,
		Metadata:       raw,
		IsSystem:       in.IsSystem,
	}
	if err := s.msgRepo.Append(ctx, msg); err != nil {
		return nil, apperrors.Map(err)
	}

	if err := s.convs.RecordDelivery(ctx, conv.ID, msg.ID, msg.Seq, msg.CreatedAt); err != nil {
		return nil, err
	}

	s.appCtx.Logger.Debug("message appended",
		"conversation", conv.ID, "message", msg.ID, "seq", msg.Seq, "system", in.IsSystem)

	recipients := []uint64{otherMember(conv, senderID)}
	if in.IsSystem {
		recipients = []uint64{conv.FirstMemberID, conv.SecondMemberID}
	}
	source := notifications.SourceID("message", msg.ID)
	for _, recipient := range recipients {
		if _, err := s.dispatcher.Dispatch(ctx, notifications.Event{
			Type:          notifications.TypeMessage,
			RecipientID:   recipient,
			ActorID:       senderID,
			SourceEventID: source,
			Payload: notifications.MessagePayload{
				ConversationID: conv.ID,
				MessageID:      msg.ID,
				Preview:        preview(in.ContentType, in.Content),
			},
		}); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

// Edit replaces a message's content.
//
// Behavior:
//   - ErrNotSender unless actorID authored the message.
//   - ErrAlreadyDeleted on a tombstone.
//   - editedAt is stamped; createdAt and the position never change.
func (s *Store) Edit(ctx context.Context, messageID uint64, newContent string, actorID uint64) (*db.Message, error) {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, apperrors.Map(err)
	}
	if msg.SenderID != actorID || msg.IsSystem {
		return nil, apperrors.ErrNotSender
	}
	if msg.DeletedAt != nil {
		return nil, apperrors.ErrAlreadyDeleted
	}

	now := time.Now().UTC()
	if err := s.msgRepo.SetEdited(ctx, messageID, newContent, now); err != nil {
		return nil, apperrors.Map(err)
	}
	msg.Content = newContent
	msg.EditedAt = &now
	return msg, nil
}

// Delete tombstones a message.
//
// Behavior:
//   - ErrNotSender unless actorID authored the message or asModerator is
//     set (moderation override).
//   - Content is retained internally but withheld from reads; the row
//     keeps its position so pointers referencing it resolve to a
//     tombstone instead of dangling.
//   - Deleting an already deleted message is a no-op.
func (s *Store) Delete(ctx context.Context, messageID, actorID uint64, asModerator bool) error {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return apperrors.Map(err)
	}
	if !asModerator && msg.SenderID != actorID {
		return apperrors.ErrNotSender
	}
	if msg.DeletedAt != nil {
		return nil
	}
	return apperrors.Map(s.msgRepo.SetDeleted(ctx, messageID, time.Now().UTC()))
}

// Read returns the conversation's messages with position > after, in
// strictly increasing position order, as a restartable cursor-paged
// sequence.
//
// Behavior:
//   - ErrNotAMember unless viewerID is a member.
//   - Tombstones appear in place with content withheld; edited messages
//     surface the latest content with editedAt exposed.
func (s *Store) Read(
	ctx context.Context,
	convID, viewerID uint64,
	after uint64,
	paginationToken *string,
	limit int,
) ([]View, *string, error) {
	conv, err := s.convs.Get(ctx, convID)
	if err != nil {
		return nil, nil, err
	}
	if viewerID != conv.FirstMemberID && viewerID != conv.SecondMemberID {
		return nil, nil, apperrors.ErrNotAMember
	}

	msgs, next, err := s.msgRepo.ListAfterSeq(ctx, convID, after, paginationToken, limit)
	if err != nil {
		return nil, nil, apperrors.Map(err)
	}

	views := make([]View, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, toView(m))
	}
	return views, next, nil
}

// Count returns the conversation's length, tombstones included.
func (s *Store) Count(ctx context.Context, convID uint64) (int64, error) {
	n, err := s.msgRepo.CountInConversation(ctx, convID)
	return n, apperrors.Map(err)
}

func toView(m db.Message) View {
	v := View{
		ID:          m.ID,
		Seq:         m.Seq,
		SenderID:    m.SenderID,
		ContentType: m.ContentType,
		IsSystem:    m.IsSystem,
		CreatedAt:   m.CreatedAt,
		EditedAt:    m.EditedAt,
		Deleted:     m.DeletedAt != nil,
	}
	if v.Deleted {
		return v
	}
	v.Content = m.Content
	if meta, err := decodeMetadata(m.ContentType, m.Metadata); err == nil {
		v.Metadata = meta
	}
	return v
}

func otherMember(conv *db.Conversation, senderID uint64) uint64 {
	if senderID == conv.FirstMemberID {
		return conv.SecondMemberID
	}
	return conv.FirstMemberID
}

func preview(contentType, content string) string {
	if contentType != ContentTypeText {
		return ""
	}
	if len(content) > previewLen {
		return content[:previewLen]
	}
	return content
}
