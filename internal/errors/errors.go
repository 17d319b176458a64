// Package errors defines the engine's domain error taxonomy and a mapper
// that normalizes infra errors into it. Callers (the transport layer that
// sits above this library) match with errors.Is and decide user-facing
// messaging themselves.
package errors

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	// ErrInvalidOperation covers self-referential actions (liking
	// yourself, visiting yourself) and removing a like that backs an
	// active match.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrNotAMember is returned for a message or read action by a user
	// who is not one of the conversation's two members.
	ErrNotAMember = errors.New("not a conversation member")

	// ErrNotSender is returned for an edit/delete by a user other than
	// the message author.
	ErrNotSender = errors.New("not the message sender")

	// ErrAlreadyDeleted is returned when editing a tombstoned message.
	ErrAlreadyDeleted = errors.New("message already deleted")

	// ErrConversationInactive is returned for appends to a deactivated
	// conversation.
	ErrConversationInactive = errors.New("conversation inactive")

	// ErrNotRecipient is returned when a user marks someone else's
	// notification as read.
	ErrNotRecipient = errors.New("not the notification recipient")

	// ErrConflictRetryable signals a transient loss on a compare-and-swap
	// that the caller should retry once; the second attempt observes the
	// winner's row and proceeds idempotently.
	ErrConflictRetryable = errors.New("transient conflict, retry")

	// ErrNotFound is the normalized record-not-found error.
	ErrNotFound = errors.New("record not found")
)

// Map converts repo/infra errors into the domain taxonomy. Domain errors
// pass through untouched; context errors are preserved for the caller.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound

	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflictRetryable

	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return err

	default:
		return err
	}
}

// Invalid wraps ErrInvalidOperation with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidOperation}, args...)...)
}
