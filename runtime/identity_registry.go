package runtime

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"fmt"
	"github.com/samber/lo"
	"strings"
	"time"
)

// IdentityRegistry binds usernames to live connections.
// Bound usernames are unique case-insensitively among connected users.
// It is not safe for concurrent use, the coordinator serializes every call.
type IdentityRegistry struct {
	clock func() time.Time
	users []domain.User                    // join order
	keys  map[string]domain.ConnectionID // canonical username -> owner
}

func NewIdentityRegistry(clock func() time.Time) *IdentityRegistry {
	return &IdentityRegistry{
		clock: clock,
		keys:  make(map[string]domain.ConnectionID),
	}
}

// Join releases any identity the connection already holds, then validates the request,
// checks uniqueness against every other connection and binds the user.
// A rejected re-join leaves the connection unbound.
func (r *IdentityRegistry) Join(connID domain.ConnectionID, username, room string) (domain.User, error) {
	r.release(connID)
	name := strings.TrimSpace(username)
	roomName := strings.TrimSpace(room)

	if err := validateUsername(name); err != nil {
		return domain.User{}, err
	}
	if err := validateRoom(roomName); err != nil {
		return domain.User{}, err
	}

	key := domain.CanonicalKey(name)
	if owner, taken := r.keys[key]; taken && owner != connID {
		return domain.User{}, fmt.Errorf("%w: %q, please choose a different username", errors.ErrUsernameTaken, name)
	}

	user := domain.User{
		ConnID:   connID,
		Username: name,
		Room:     roomName,
		JoinedAt: r.clock(),
	}
	r.users = append(r.users, user)
	r.keys[key] = connID
	return user, nil
}

// Leave unbinds the connection. It returns false if nothing was bound.
func (r *IdentityRegistry) Leave(connID domain.ConnectionID) (domain.User, bool) {
	return r.release(connID)
}

func (r *IdentityRegistry) release(connID domain.ConnectionID) (domain.User, bool) {
	user, idx, ok := lo.FindIndexOf(r.users, func(u domain.User) bool {
		return u.ConnID == connID
	})
	if !ok {
		return domain.User{}, false
	}
	r.users = append(r.users[:idx], r.users[idx+1:]...)
	delete(r.keys, domain.CanonicalKey(user.Username))
	return user, true
}

func (r *IdentityRegistry) ByConnection(connID domain.ConnectionID) (domain.User, bool) {
	return lo.Find(r.users, func(u domain.User) bool {
		return u.ConnID == connID
	})
}

// ByUsername is case-insensitive.
func (r *IdentityRegistry) ByUsername(name string) (domain.User, bool) {
	connID, ok := r.keys[domain.CanonicalKey(name)]
	if !ok {
		return domain.User{}, false
	}
	return r.ByConnection(connID)
}

// All returns a copy, in join order.
func (r *IdentityRegistry) All() []domain.User {
	return append([]domain.User(nil), r.users...)
}

// InRoom matches the room name exactly, after trimming.
func (r *IdentityRegistry) InRoom(room string) []domain.User {
	roomName := strings.TrimSpace(room)
	return lo.Filter(r.users, func(u domain.User, _ int) bool {
		return u.Room == roomName
	})
}

func (r *IdentityRegistry) Count() int {
	return len(r.users)
}
