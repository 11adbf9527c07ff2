package runtime

import (
	"chat-hub/domain"
	"chat-hub/errors"
	"fmt"
	"github.com/samber/lo"
	"strings"
	"time"
)

// GroupDirectory owns named groups and their memberships.
// A group with no member is deleted in the same call that removed the member.
type GroupDirectory struct {
	clock  func() time.Time
	groups []*domain.Group // creation order
}

func NewGroupDirectory(clock func() time.Time) *GroupDirectory {
	return &GroupDirectory{clock: clock}
}

// Create registers a group with the creator as its only member.
func (d *GroupDirectory) Create(name, creator string, connID domain.ConnectionID) (domain.Group, time.Time, error) {
	groupName := strings.TrimSpace(name)
	if err := validateGroupName(groupName); err != nil {
		return domain.Group{}, time.Time{}, err
	}
	if _, ok := d.find(groupName); ok {
		return domain.Group{}, time.Time{}, fmt.Errorf("%w: %q", errors.ErrGroupExists, groupName)
	}

	joinedAt := d.clock()
	group := &domain.Group{
		Name:    groupName,
		Members: []domain.Member{{Username: creator, ConnID: connID, JoinedAt: joinedAt}},
	}
	d.groups = append(d.groups, group)
	return snapshot(group), joinedAt, nil
}

// Join is idempotent: a connection that is already a member gets its original joinedAt back.
func (d *GroupDirectory) Join(name, username string, connID domain.ConnectionID) (domain.Group, time.Time, error) {
	group, ok := d.find(name)
	if !ok {
		return domain.Group{}, time.Time{}, errors.ErrGroupNotFound
	}
	if member, exists := group.Member(connID); exists {
		return snapshot(group), member.JoinedAt, nil
	}

	joinedAt := d.clock()
	group.Members = append(group.Members, domain.Member{Username: username, ConnID: connID, JoinedAt: joinedAt})
	return snapshot(group), joinedAt, nil
}

// Leave returns false if the connection was not a member.
func (d *GroupDirectory) Leave(name string, connID domain.ConnectionID) bool {
	group, ok := d.find(name)
	if !ok {
		return false
	}
	_, idx, found := lo.FindIndexOf(group.Members, func(m domain.Member) bool {
		return m.ConnID == connID
	})
	if !found {
		return false
	}
	group.Members = append(group.Members[:idx], group.Members[idx+1:]...)
	if len(group.Members) == 0 {
		d.groups = lo.Without(d.groups, group)
	}
	return true
}

// Rename updates the username shown for the connection in every group it belongs to.
// It returns the number of memberships that changed.
func (d *GroupDirectory) Rename(connID domain.ConnectionID, username string) int {
	renamed := 0
	for _, g := range d.groups {
		for i := range g.Members {
			if g.Members[i].ConnID == connID && g.Members[i].Username != username {
				g.Members[i].Username = username
				renamed++
			}
		}
	}
	return renamed
}

// LeaveAll removes the connection from every group and returns the names of the groups it left.
func (d *GroupDirectory) LeaveAll(connID domain.ConnectionID) []string {
	names := lo.FilterMap(d.groups, func(g *domain.Group, _ int) (string, bool) {
		_, ok := g.Member(connID)
		return g.Name, ok
	})
	for _, name := range names {
		d.Leave(name, connID)
	}
	return names
}

func (d *GroupDirectory) IsMember(name string, connID domain.ConnectionID) bool {
	_, ok := d.Member(name, connID)
	return ok
}

func (d *GroupDirectory) Member(name string, connID domain.ConnectionID) (domain.Member, bool) {
	group, ok := d.find(name)
	if !ok {
		return domain.Member{}, false
	}
	return group.Member(connID)
}

// Get looks the group up case-insensitively.
func (d *GroupDirectory) Get(name string) (domain.Group, bool) {
	group, ok := d.find(name)
	if !ok {
		return domain.Group{}, false
	}
	return snapshot(group), true
}

// All never exposes connection ids.
func (d *GroupDirectory) All() []domain.GroupSummary {
	return lo.Map(d.groups, func(g *domain.Group, _ int) domain.GroupSummary {
		return summarize(g)
	})
}

func (d *GroupDirectory) Count() int {
	return len(d.groups)
}

func (d *GroupDirectory) find(name string) (*domain.Group, bool) {
	key := domain.CanonicalKey(name)
	if key == "" {
		return nil, false
	}
	return lo.Find(d.groups, func(g *domain.Group) bool {
		return domain.CanonicalKey(g.Name) == key
	})
}

func snapshot(g *domain.Group) domain.Group {
	return domain.Group{
		Name:    g.Name,
		Members: append([]domain.Member(nil), g.Members...),
	}
}

func summarize(g *domain.Group) domain.GroupSummary {
	return domain.GroupSummary{
		Name: g.Name,
		Members: lo.Map(g.Members, func(m domain.Member, _ int) string {
			return m.Username
		}),
		MemberCount: len(g.Members),
	}
}

func Summarize(g domain.Group) domain.GroupSummary {
	return summarize(&g)
}
