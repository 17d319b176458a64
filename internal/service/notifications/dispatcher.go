package notifications

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/db"
	apperrors "github.com/matchadev/matcha-engine/internal/errors"
	"github.com/matchadev/matcha-engine/internal/repository"
)

// subscriberBuffer bounds the per-subscriber channel; a full channel drops
// the live signal, the stored row remains the source of truth.
const subscriberBuffer = 16

// Event is one logical fan-out request. SourceEventID identifies the
// originating like/match/message/visit row, so replays of the same event
// dedupe against the stored row.
type Event struct {
	Type          string
	RecipientID   uint64
	ActorID       uint64
	SourceEventID string
	Payload       any
}

// Subscription is a live, in-process delivery handle for one recipient.
// Delivery is best-effort; consumers that fall behind miss signals, never
// rows.
type Subscription struct {
	ID     string
	UserID uint64
	C      <-chan db.Notification

	ch chan db.Notification
}

// Dispatcher fans events out into durable per-recipient Notification rows
// and signals any live subscribers. It contains the business logic on top
// of the repository and cache layers.
type Dispatcher struct {
	appCtx *app.AppContext
	repo   *repository.NotificationRepository

	mu   sync.RWMutex
	subs map[uint64]map[string]*Subscription
}

// NewDispatcher creates a new Dispatcher with dependencies from AppContext.
func NewDispatcher(appCtx *app.AppContext) *Dispatcher {
	return &Dispatcher{
		appCtx: appCtx,
		repo:   repository.NewNotificationRepository(appCtx.DB),
		subs:   make(map[uint64]map[string]*Subscription),
	}
}

// Dispatch stores one notification for the event, idempotently.
//
// Behavior:
//   - At most one row ever exists per (recipient, type, actor,
//     sourceEventID); a replay returns created=false with no error.
//   - On creation the recipient's cached unread counter is bumped and any
//     live subscribers get a non-blocking signal.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) (bool, error) {
	raw, err := encodePayload(ev.Type, ev.Payload)
	if err != nil {
		return false, err
	}

	notif := db.Notification{
		RecipientID:   ev.RecipientID,
		Type:          ev.Type,
		ActorUserID:   ev.ActorID,
		SourceEventID: ev.SourceEventID,
		Payload:       raw,
	}
	created, err := d.repo.CreateIfAbsent(ctx, &notif)
	if err != nil {
		return false, apperrors.Map(err)
	}
	if !created {
		return false, nil
	}

	d.appCtx.Logger.Debug("notification dispatched",
		"type", ev.Type, "recipient", ev.RecipientID, "actor", ev.ActorID, "source", ev.SourceEventID)

	key := d.appCtx.RedisCache.KeyForUnreadCount(ev.RecipientID)
	if err := d.appCtx.RedisCache.BumpCounter(ctx, key, 1); err != nil {
		d.appCtx.Logger.Warn("unread counter bump failed", "err", err)
	}

	d.signal(notif)
	return true, nil
}

// MarkRead flips a notification to read on behalf of recipientID.
//
// Behavior:
//   - Fails with ErrNotRecipient if the notification belongs to someone
//     else, ErrNotFound if it does not exist.
//   - Marking an already-read notification is a no-op, not an error.
func (d *Dispatcher) MarkRead(ctx context.Context, notifID, recipientID uint64) error {
	changed, err := d.repo.MarkRead(ctx, notifID, recipientID)
	if err != nil {
		return apperrors.Map(err)
	}
	if !changed {
		notif, err := d.repo.GetByID(ctx, notifID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		if err != nil {
			return apperrors.Map(err)
		}
		if notif.RecipientID != recipientID {
			return apperrors.ErrNotRecipient
		}
		return nil // already read
	}

	key := d.appCtx.RedisCache.KeyForUnreadCount(recipientID)
	if err := d.appCtx.RedisCache.BumpCounter(ctx, key, -1); err != nil {
		d.appCtx.Logger.Warn("unread counter bump failed", "err", err)
	}
	return nil
}

// UnreadCount returns the recipient's unread notification count.
// Cache-first strategy:
//  1. Attempts to read from Redis (notif:unread:userID).
//  2. On cache miss, falls back to the DB count.
//  3. On DB fetch, updates Redis with the standard TTL.
func (d *Dispatcher) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	key := d.appCtx.RedisCache.KeyForUnreadCount(recipientID)

	if n, ok, err := d.appCtx.RedisCache.GetCounter(ctx, key); err == nil && ok {
		return n, nil
	}

	count, err := d.repo.CountUnread(ctx, recipientID)
	if err != nil {
		return 0, apperrors.Map(err)
	}
	if err := d.appCtx.RedisCache.SetCounter(ctx, key, count); err != nil {
		d.appCtx.Logger.Warn("unread counter set failed", "err", err)
	}
	return count, nil
}

// List returns the recipient's notifications, newest first, cursor-paged.
func (d *Dispatcher) List(
	ctx context.Context,
	recipientID uint64,
	paginationToken *string,
	limit int,
) ([]db.Notification, *string, error) {
	notifs, next, err := d.repo.ListForRecipient(ctx, recipientID, paginationToken, limit)
	if err != nil {
		return nil, nil, apperrors.Map(err)
	}
	return notifs, next, nil
}

// Subscribe registers a live delivery channel for userID. The caller must
// Unsubscribe when done; rows are durable either way.
func (d *Dispatcher) Subscribe(userID uint64) *Subscription {
	ch := make(chan db.Notification, subscriberBuffer)
	sub := &Subscription{
		ID:     uuid.NewString(),
		UserID: userID,
		C:      ch,
		ch:     ch,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.subs[userID] == nil {
		d.subs[userID] = make(map[string]*Subscription)
	}
	d.subs[userID][sub.ID] = sub
	return sub
}

// Unsubscribe removes a live subscription and closes its channel.
func (d *Dispatcher) Unsubscribe(sub *Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if m := d.subs[sub.UserID]; m != nil {
		if _, ok := m[sub.ID]; ok {
			delete(m, sub.ID)
			close(sub.ch)
		}
		if len(m) == 0 {
			delete(d.subs, sub.UserID)
		}
	}
}

// signal delivers to live subscribers without blocking.
func (d *Dispatcher) signal(notif db.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, sub := range d.subs[notif.RecipientID] {
		select {
		case sub.ch <- notif:
		default:
		}
	}
}

// SourceID formats the canonical sourceEventID for an entity row, e.g.
// SourceID("match", 7) -> "match:7". Using the entity id keeps replayed
// fan-out for the same row idempotent.
func SourceID(kind string, id uint64) string {
	return kind + ":" + strconv.FormatUint(id, 10)
}
