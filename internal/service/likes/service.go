// Package likes records directional like events (profile and image likes)
// and feeds match detection.
package likes

import (
	"context"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/repository"
	"github.com/matchadev/matcha-engine/internal/service/matches"
	"github.com/matchadev/matcha-engine/internal/service/notifications"
)

// Service is the sole writer of like rows.
type Service struct {
	appCtx     *app.AppContext
	likeRepo   *repository.LikeRepository
	imageRepo  *repository.ImageRepository
	detector   *matches.Detector
	dispatcher *notifications.Dispatcher
}

// NewService creates a new like service with dependencies from AppContext.
func NewService(
	appCtx *app.AppContext,
	detector *matches.Detector,
	dispatcher *notifications.Dispatcher,
) *Service {
	return &Service{
		appCtx:     appCtx,
		likeRepo:   repository.NewLikeRepository(appCtx.DB),
		imageRepo:  repository.NewImageRepository(appCtx.DB),
		detector:   detector,
		dispatcher: dispatcher,
	}
}

// RecordLike records liker -> target.
//
// Behavior:
//   - Fails with ErrInvalidOperation on a self-like.
//   - Idempotent: re-submitting an existing pair returns created=false
//     without error and triggers nothing downstream.
//   - On creation: bumps the target's cached like counter, fans out a
//     "like" notification, then runs match detection. The match returned
//     is non-nil when this like completed a mutual pair.
func (s *Service) RecordLike(ctx context.Context, likerID, targetID uint64) (bool, *db.Match, error) {
	if likerID == targetID {
		return false, nil, apperrors.Invalid("cannot like yourself")
	}

	like, created, err := s.likeRepo.Create(ctx, likerID, targetID)
	if err != nil {
		return false, nil, apperrors.Map(err)
	}
	if !created {
		return false, nil, nil
	}

	s.appCtx.Logger.Debug("like recorded", "liker", likerID, "target", targetID)

	key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
	if err := s.appCtx.RedisCache.BumpCounter(ctx, key, 1); err != nil {
		s.appCtx.Logger.Warn("like counter bump failed", "err", err)
	}

	if _, err := s.dispatcher.Dispatch(ctx, notifications.Event{
		Type:          notifications.TypeLike,
		RecipientID:   targetID,
		ActorID:       likerID,
		SourceEventID: notifications.SourceID("like", like.ID),
		Payload:       notifications.LikePayload{LikeID: like.ID},
	}); err != nil {
		return true, nil, err
	}

	match, _, err := s.detector.OnLikeCreated(ctx, likerID, targetID)
	if err != nil {
		return true, nil, err
	}
	return true, match, nil
}

// RemoveLike deletes a like.
//
// Behavior:
//   - Refused with ErrInvalidOperation while an active match exists for
//     the pair: unmatching is the explicit DeactivateMatch operation and
//     is never inferred from like removal, so the match/conversation
//     invariant cannot be corrupted from here.
//   - Removing a non-existent like is a no-op.
func (s *Service) RemoveLike(ctx context.Context, likerID, targetID uint64) error {
	active, err := s.detector.HasActiveMatch(ctx, likerID, targetID)
	if err != nil {
		return err
	}
	if active {
		return apperrors.Invalid("pair has an active match; deactivate the match first")
	}

	deleted, err := s.likeRepo.Delete(ctx, likerID, targetID)
	if err != nil {
		return apperrors.Map(err)
	}
	if deleted {
		key := s.appCtx.RedisCache.KeyForLikeCount(targetID)
		if err := s.appCtx.RedisCache.BumpCounter(ctx, key, -1); err != nil {
			s.appCtx.Logger.Warn("like counter bump failed", "err", err)
		}
	}
	return nil
}

// CountLikers returns how many users liked the target.
// Cache-first strategy: Redis counter with the DB as fallback; a DB fetch
// repopulates the cache with the standard TTL.
func (s *Service) CountLikers(ctx context.Context, targetID uint64) (int64, error) {
	key := s.appCtx.RedisCache.KeyForLikeCount(targetID)

	if n, ok, err := s.appCtx.RedisCache.GetCounter(ctx, key); err == nil && ok {
		return n, nil
	}

	count, err := s.likeRepo.CountLikers(ctx, targetID)
	if err != nil {
		return 0, apperrors.Map(err)
	}
	if err := s.appCtx.RedisCache.SetCounter(ctx, key, count); err != nil {
		s.appCtx.Logger.Warn("like counter set failed", "err", err)
	}
	return count, nil
}

// ListLikers returns users who liked the target, newest first, cursor-paged.
func (s *Service) ListLikers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	likes, next, err := s.likeRepo.GetLikers(ctx, targetID, paginationToken, limit)
	if err != nil {
		return nil, nil, apperrors.Map(err)
	}
	return likes, next, nil
}

// RecordImageLike records a like on a profile image.
//
// Behavior:
//   - Fails with ErrInvalidOperation when liking your own image.
//   - Idempotent per (user, image).
//   - On creation fans out a "like" notification to the image owner with
//     an image-tagged payload.
func (s *Service) RecordImageLike(ctx context.Context, userID, imageID uint64) (bool, error) {
	img, err := s.imageRepo.GetByID(ctx, imageID)
	if err != nil {
		return false, apperrors.Map(err)
	}
	if img.UserID == userID {
		return false, apperrors.Invalid("cannot like your own image")
	}

	created, err := s.imageRepo.CreateLikeIfAbsent(ctx, userID, imageID)
	if err != nil {
		return false, apperrors.Map(err)
	}
	if !created {
		return false, nil
	}

	_, err = s.dispatcher.Dispatch(ctx, notifications.Event{
		Type:          notifications.TypeLike,
		RecipientID:   img.UserID,
		ActorID:       userID,
		SourceEventID: notifications.SourceID("image_like", imageID),
		Payload:       notifications.LikePayload{ImageID: &img.ID},
	})
	return true, err
}
