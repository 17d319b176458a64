package notifications

import (
	"encoding/json"
	"fmt"
)

// Notification types. The payload column is a tagged union keyed by this
// type; each tag has exactly one payload shape below.
const (
	TypeLike    = "like"
	TypeMatch   = "match"
	TypeMessage = "message"
	TypeVisit   = "visit"
)

// LikePayload accompanies TypeLike. ImageID is set when the like targets
// a profile image rather than the profile itself.
type LikePayload struct {
	LikeID  uint64  `json:"like_id,omitempty"`
	ImageID *uint64 `json:"image_id,omitempty"`
}

// MatchPayload accompanies TypeMatch. OtherUserID duplicates the actor
// for convenience of clients rendering "you matched with X".
type MatchPayload struct {
	MatchID     uint64 `json:"match_id"`
	OtherUserID uint64 `json:"other_user_id"`
}

// MessagePayload accompanies TypeMessage. Preview carries at most the
// first few words; tombstoned or non-text content leaves it empty.
type MessagePayload struct {
	ConversationID uint64 `json:"conversation_id"`
	MessageID      uint64 `json:"message_id"`
	Preview        string `json:"preview,omitempty"`
}

// VisitPayload accompanies TypeVisit.
type VisitPayload struct {
	VisitID uint64 `json:"visit_id"`
}

// encodePayload marshals a payload after checking it matches the type tag.
func encodePayload(notifType string, payload any) ([]byte, error) {
	ok := false
	switch notifType {
	case TypeLike:
		_, ok = payload.(LikePayload)
	case TypeMatch:
		_, ok = payload.(MatchPayload)
	case TypeMessage:
		_, ok = payload.(MessagePayload)
	case TypeVisit:
		_, ok = payload.(VisitPayload)
	default:
		return nil, fmt.Errorf("unknown notification type %q", notifType)
	}
	if !ok {
		return nil, fmt.Errorf("payload %T does not match notification type %q", payload, notifType)
	}
	return json.Marshal(payload)
}
