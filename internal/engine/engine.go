// Package engine wires the match-formation and conversation-consistency
// components into one synchronous call surface for the transport layer
// above it.
package engine

import (
	"github.com/matchadev/matcha-engine/internal/app"
	"github.com/matchadev/matcha-engine/internal/service/conversations"
	"github.com/matchadev/matcha-engine/internal/service/likes"
	"github.com/matchadev/matcha-engine/internal/service/matches"
	"github.com/matchadev/matcha-engine/internal/service/messages"
	"github.com/matchadev/matcha-engine/internal/service/notifications"
	"github.com/matchadev/matcha-engine/internal/service/visits"
)

// Engine bundles the six components. Callers pass authenticated user ids;
// the engine enforces the semantic constraints (self-like, membership,
// active state) itself.
type Engine struct {
	Likes         *likes.Service
	Matches       *matches.Detector
	Conversations *conversations.Manager
	Messages      *messages.Store
	Notifications *notifications.Dispatcher
	Visits        *visits.Tracker
}

// New constructs the engine from shared dependencies. Components that
// trigger each other share the same dispatcher and conversation manager.
func New(appCtx *app.AppContext) *Engine {
	dispatcher := notifications.NewDispatcher(appCtx)
	convs := conversations.NewManager(appCtx)
	detector := matches.NewDetector(appCtx, convs, dispatcher)

	return &Engine{
		Likes:         likes.NewService(appCtx, detector, dispatcher),
		Matches:       detector,
		Conversations: convs,
		Messages:      messages.NewStore(appCtx, convs, dispatcher),
		Notifications: dispatcher,
		Visits:        visits.NewTracker(appCtx, dispatcher),
	}
}
