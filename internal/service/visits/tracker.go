// Package visits records profile-visit events and their conditional
// notification fan-out.
package visits

import (
	"context"
	"time"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/repository"
	"github.com/matchadev/matcha-engine/internal/service/notifications"
)

// Tracker is the sole writer of visit rows.
type Tracker struct {
	appCtx     *app.AppContext
	visitRepo  *repository.VisitRepository
	dispatcher *notifications.Dispatcher
}

// NewTracker creates a new Tracker with dependencies from AppContext.
func NewTracker(appCtx *app.AppContext, dispatcher *notifications.Dispatcher) *Tracker {
	return &Tracker{
		appCtx:     appCtx,
		visitRepo:  repository.NewVisitRepository(appCtx.DB),
		dispatcher: dispatcher,
	}
}

// RecordVisit stores a visit of visitorID on visitedID's profile.
//
// Behavior:
//   - Fails with ErrInvalidOperation on a self-visit.
//   - The row is always stored; isHidden only suppresses the "visit"
//     notification, never storage. Hidden visits stay queryable in the
//     visited user's history.
func (t *Tracker) RecordVisit(ctx context.Context, visitorID, visitedID uint64, isHidden bool) (*db.Visit, error) {
	if visitorID == visitedID {
		return nil, apperrors.Invalid("cannot visit yourself")
	}

	visit, err := t.visitRepo.Create(ctx, visitorID, visitedID, isHidden, time.Now().UTC())
	if err != nil {
		return nil, apperrors.Map(err)
	}

	if !isHidden {
		if _, err := t.dispatcher.Dispatch(ctx, notifications.Event{
			Type:          notifications.TypeVisit,
			RecipientID:   visitedID,
			ActorID:       visitorID,
			SourceEventID: notifications.SourceID("visit", visit.ID),
			Payload:       notifications.VisitPayload{VisitID: visit.ID},
		}); err != nil {
			return nil, err
		}
	}

	return visit, nil
}

// History returns visits received by a user, newest first, hidden ones
// included, cursor-paged.
func (t *Tracker) History(
	ctx context.Context,
	visitedID uint64,
	paginationToken *string,
	limit int,
) ([]db.Visit, *string, error) {
	visits, next, err := t.visitRepo.ListForVisited(ctx, visitedID, paginationToken, limit)
	if err != nil {
		return nil, nil, apperrors.Map(err)
	}
	return visits, next, nil
}
