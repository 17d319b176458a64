package db

import (
	"time"
)

// SystemSenderID is the reserved sentinel actor for system messages.
// No real user row ever carries id 0.
const SystemSenderID uint64 = 0

// User table. The engine never mutates profile attributes; it references
// users by id only. Gender/preference are validated at the registration
// boundary and treated as opaque strings here.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	FirstName    string `gorm:"size:64"`
	LastName     string `gorm:"size:64"`
	Gender       string `gorm:"size:16"`
	SexualPref   string `gorm:"size:16;default:bisexual"`
	Bio          string `gorm:"type:text"`
	Interests    string `gorm:"type:text"` // comma-joined tags
	City         string `gorm:"size:64"`
	Country      string `gorm:"size:64"`
	FameRate     int    `gorm:"not null;default:0"`
	Active       bool   `gorm:"default:true"`
	LastLoginAt  time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// Image is a profile image record. Upload/CDN delivery happens outside the
// engine; we only keep the reference.
type Image struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    uint64    `gorm:"not null;index"`
	URL       string    `gorm:"size:512;not null"`
	IsMain    bool      `gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// ImageLike records a user liking a profile image.
//
// Composite PK (UserID, ImageID) makes re-liking the same image a no-op.
type ImageLike struct {
	UserID    uint64    `gorm:"primaryKey"`
	ImageID   uint64    `gorm:"primaryKey"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Like represents a directional like event from liker -> target.
//
// Unique index ux_liker_target(liker_id, target_id):
//   - At most one row per ordered pair; duplicate submissions hit
//     ON CONFLICT DO NOTHING and report created=false.
//
// Index idx_target_created(target_id, created_at DESC, liker_id):
//   - Optimizes "who liked me" listings with cursor pagination.
type Like struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	LikerID   uint64    `gorm:"not null;uniqueIndex:ux_liker_target,priority:1"`
	TargetID  uint64    `gorm:"not null;uniqueIndex:ux_liker_target,priority:2;index:idx_target_created,priority:1"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_target_created,priority:2,sort:desc"`
}

// Match is the mutual-like record for a canonical user pair.
//
// User1ID < User2ID always (canonical order), so the unique index
// ux_match_pair(user1_id, user2_id) is the single-row constraint that
// makes concurrent detection from both like directions collapse to
// exactly one row. Matches are deactivated, never deleted.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	User1ID   uint64    `gorm:"not null;uniqueIndex:ux_match_pair,priority:1;index"`
	User2ID   uint64    `gorm:"not null;uniqueIndex:ux_match_pair,priority:2;index"`
	MatchedAt time.Time `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Conversation is the message channel for a matched pair.
//
// Members are stored in canonical order (FirstMemberID < SecondMemberID)
// under unique index ux_conv_pair, mirroring the Match constraint: lazy
// provisioning from replayed match events creates at most one row.
//
// MessageSeq is the per-conversation sequence allocator: every append
// increments it inside a transaction holding this row, so two messages
// can never share a position. LastMessage*/LastRead* pointers only ever
// advance (guarded updates compare the stored seq first).
type Conversation struct {
	ID             uint64 `gorm:"primaryKey;autoIncrement"`
	FirstMemberID  uint64 `gorm:"not null;uniqueIndex:ux_conv_pair,priority:1;index"`
	SecondMemberID uint64 `gorm:"not null;uniqueIndex:ux_conv_pair,priority:2;index"`
	IsActive       bool   `gorm:"not null;default:true"`

	MessageSeq     uint64 `gorm:"not null;default:0"`
	LastMessageID  *uint64
	LastMessageSeq uint64 `gorm:"not null;default:0"`
	LastMessageAt  *time.Time

	FirstLastReadMsgID  *uint64
	FirstLastReadSeq    uint64 `gorm:"not null;default:0"`
	FirstLastReadAt     *time.Time
	SecondLastReadMsgID *uint64
	SecondLastReadSeq   uint64 `gorm:"not null;default:0"`
	SecondLastReadAt    *time.Time

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Message belongs to a conversation and is ordered solely by Seq.
//
// Unique index ux_conv_seq(conversation_id, seq) backs the ordering
// invariant. Soft deletion sets DeletedAt and keeps the row so pointers
// (e.g. a conversation's LastMessageID) resolve to a tombstone instead
// of dangling. Edits set EditedAt and never touch Seq or CreatedAt.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64    `gorm:"not null;uniqueIndex:ux_conv_seq,priority:1"`
	Seq            uint64    `gorm:"not null;uniqueIndex:ux_conv_seq,priority:2"`
	SenderID       uint64    `gorm:"not null;index"` // SystemSenderID for system messages
	ContentType    string    `gorm:"size:32;not null"`
	Content        string    `gorm:"type:text"`
	Metadata       []byte    `gorm:"type:json"` // tagged by ContentType, see messages.Metadata
	IsSystem       bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	EditedAt       *time.Time
	DeletedAt      *time.Time
}

// Notification is the durable fan-out record for like/match/message/visit
// events.
//
// Unique index ux_notif_dedupe(recipient_id, type, actor_user_id,
// source_event_id) is the idempotency key: concurrent duplicate dispatch
// attempts for the same logical event collapse to one row via
// ON CONFLICT DO NOTHING, not via application-level locking.
type Notification struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	RecipientID   uint64    `gorm:"not null;uniqueIndex:ux_notif_dedupe,priority:1;index:idx_recipient_read,priority:1"`
	Type          string    `gorm:"size:32;not null;uniqueIndex:ux_notif_dedupe,priority:2"`
	ActorUserID   uint64    `gorm:"not null;uniqueIndex:ux_notif_dedupe,priority:3"`
	SourceEventID string    `gorm:"size:64;not null;uniqueIndex:ux_notif_dedupe,priority:4"`
	Payload       []byte    `gorm:"type:json"` // tagged by Type, see notifications payload types
	IsRead        bool      `gorm:"not null;default:false;index:idx_recipient_read,priority:2"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// Visit records a profile visit. IsHidden suppresses notification
// dispatch only; the row is always stored and remains queryable.
type Visit struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	VisitorID uint64    `gorm:"not null;index"`
	VisitedID uint64    `gorm:"not null;index:idx_visited_at,priority:1"`
	VisitedAt time.Time `gorm:"not null;index:idx_visited_at,priority:2,sort:desc"`
	IsHidden  bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
