// Package matches turns directional like events into mutual matches and
// drives the downstream provisioning and fan-out that a new match implies.
package matches

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/repository"
	"github.com/matchadev/matcha-engine/internal/service/conversations"
	"github.com/matchadev/matcha-engine/internal/service/notifications"
)

// Detector is the sole writer of match rows.
type Detector struct {
	appCtx     *app.AppContext
	likeRepo   *repository.LikeRepository
	matchRepo  *repository.MatchRepository
	convs      *conversations.Manager
	dispatcher *notifications.Dispatcher
}

// NewDetector creates a new Detector with dependencies from AppContext.
// Conversation manager and dispatcher are shared with the other engine
// components, so they are injected rather than constructed here.
func NewDetector(
	appCtx *app.AppContext,
	convs *conversations.Manager,
	dispatcher *notifications.Dispatcher,
) *Detector {
	return &Detector{
		appCtx:     appCtx,
		likeRepo:   repository.NewLikeRepository(appCtx.DB),
		matchRepo:  repository.NewMatchRepository(appCtx.DB),
		convs:      convs,
		dispatcher: dispatcher,
	}
}

// OnLikeCreated checks whether the new like liker->target completes a
// mutual pair and, if so, forms the match.
//
// Behavior:
//   - No reverse like: no-op, returns (nil, false, nil).
//   - Reverse like present: creates the match via an insert-if-absent on
//     the canonical pair key. Likes from both directions may race here;
//     the loser observes the winner's row (created=false) and proceeds
//     identically, because all downstream effects are idempotent:
//     conversation provisioning is a CAS on the same pair key and the two
//     match notifications dedupe on sourceEventID = the match row.
//   - Replays (the like already matched earlier) take the same path and
//     change nothing.
func (d *Detector) OnLikeCreated(ctx context.Context, likerID, targetID uint64) (*db.Match, bool, error) {
	reverse, err := d.likeRepo.Exists(ctx, targetID, likerID)
	if err != nil {
		return nil, false, apperrors.Map(err)
	}
	if !reverse {
		return nil, false, nil
	}

	match, created, err := d.matchRepo.CreateIfAbsent(ctx, likerID, targetID, time.Now().UTC())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, apperrors.ErrConflictRetryable
	}
	if err != nil {
		return nil, false, apperrors.Map(err)
	}
	if created {
		d.appCtx.Logger.Info("match formed",
			"match", match.ID, "user1", match.User1ID, "user2", match.User2ID)
	}

	if _, err := d.convs.EnsureConversation(ctx, match.User1ID, match.User2ID); err != nil {
		return nil, false, err
	}

	source := notifications.SourceID("match", match.ID)
	for _, pair := range [2][2]uint64{
		{match.User1ID, match.User2ID},
		{match.User2ID, match.User1ID},
	} {
		recipient, actor := pair[0], pair[1]
		_, err := d.dispatcher.Dispatch(ctx, notifications.Event{
			Type:          notifications.TypeMatch,
			RecipientID:   recipient,
			ActorID:       actor,
			SourceEventID: source,
			Payload: notifications.MatchPayload{
				MatchID:     match.ID,
				OtherUserID: actor,
			},
		})
		if err != nil {
			return nil, false, err
		}
	}

	return match, created, nil
}

// DeactivateMatch is the explicit unmatch operation: it flips the match
// inactive and cascades to the conversation, which keeps its messages.
func (d *Detector) DeactivateMatch(ctx context.Context, matchID uint64) error {
	match, err := d.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return apperrors.Map(err)
	}
	changed, err := d.matchRepo.Deactivate(ctx, matchID)
	if err != nil {
		return apperrors.Map(err)
	}
	if changed {
		d.appCtx.Logger.Info("match deactivated", "match", matchID)
	}
	return d.convs.DeactivateForPair(ctx, match.User1ID, match.User2ID)
}

// HasActiveMatch reports whether an active match exists for the pair.
// The like store consults this before allowing like removal.
func (d *Detector) HasActiveMatch(ctx context.Context, userA, userB uint64) (bool, error) {
	ok, err := d.matchRepo.HasActiveForPair(ctx, userA, userB)
	return ok, apperrors.Map(err)
}

// GetForPair returns the pair's match, active or not.
func (d *Detector) GetForPair(ctx context.Context, userA, userB uint64) (*db.Match, error) {
	match, err := d.matchRepo.GetByPair(ctx, userA, userB)
	if err != nil {
		return nil, apperrors.Map(err)
	}
	return match, nil
}

// ListForUser returns the user's active matches, newest first.
func (d *Detector) ListForUser(ctx context.Context, userID uint64) ([]db.Match, error) {
	matches, err := d.matchRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Map(err)
	}
	return matches, nil
}
