package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Identity
	ErrInvalidIdentity = fmt.Errorf("invalid username")
	ErrRoomRequired    = fmt.Errorf("room is required")
	ErrUsernameTaken   = fmt.Errorf("username is already taken")

	// Groups
	ErrInvalidGroupName = fmt.Errorf("group name cannot be empty")
	ErrGroupExists      = fmt.Errorf("group already exists")
	ErrGroupNotFound    = fmt.Errorf("group not found")
	ErrNotGroupMember   = fmt.Errorf("you are not a member of this group")

	// Messaging
	ErrRecipientOffline  = fmt.Errorf("user is not online")
	ErrCannotMessageSelf = fmt.Errorf("you cannot send a message to yourself")
	ErrNotInRoom         = fmt.Errorf("you are not in a room")
	ErrEmptyMessage      = fmt.Errorf("message cannot be empty")
	ErrMessageTooLong    = fmt.Errorf("message is too long")
	ErrInvalidTheme      = fmt.Errorf("invalid theme")

	// Transport
	ErrUnknownEvent     = fmt.Errorf("unknown event")
	ErrInvalidPayload   = fmt.Errorf("invalid payload")
	ErrSinkFull         = fmt.Errorf("connection buffer is full")
	ErrConnectionClosed = fmt.Errorf("connection is closed")
)

// Kind classifies a domain error for the client-facing taxonomy.
type Kind string

const (
	KindUnknown       Kind = "unknown"
	KindValidation    Kind = "validation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindAuthorization Kind = "authorization"
	KindState         Kind = "state"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidIdentity, KindValidation},
	{ErrRoomRequired, KindValidation},
	{ErrInvalidGroupName, KindValidation},
	{ErrEmptyMessage, KindValidation},
	{ErrMessageTooLong, KindValidation},
	{ErrInvalidTheme, KindValidation},
	{ErrCannotMessageSelf, KindValidation},
	{ErrUsernameTaken, KindConflict},
	{ErrGroupExists, KindConflict},
	{ErrGroupNotFound, KindNotFound},
	{ErrRecipientOffline, KindNotFound},
	{ErrNotGroupMember, KindAuthorization},
	{ErrNotInRoom, KindState},
}

// KindOf walks the wrap chain of err and returns the kind of the first known sentinel.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if stderrors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// Is mirrors the standard library so callers importing this package don't need both.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}
