// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"strings"
	"time"
)

// ConnectionID is assigned by the transport for the lifetime of one network session.
// The core references it but never owns it.
type ConnectionID string

// User is the identity bound to a live connection.
// A user is never mutated in place: a rename is a fresh join.
type User struct {
	ConnID   ConnectionID
	Username string
	Room     string
	JoinedAt time.Time
}

// CanonicalKey is the form used for case-insensitive uniqueness of usernames and group names.
func CanonicalKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Stats is a point-in-time snapshot of the coordinator state.
type Stats struct {
	Connections int
	Users       int
	Groups      int
	Channels    int
	Histories   int
}
