package domain

import (
	"time"
)

// Member is one participant of a group, tied to the connection that joined.
type Member struct {
	Username string
	ConnID   ConnectionID
	JoinedAt time.Time
}

// Group never exists with zero members.
type Group struct {
	Name    string
	Members []Member
}

// GroupSummary is the public projection of a group, connection ids never leave the directory.
type GroupSummary struct {
	Name        string
	Members     []string
	MemberCount int
}

func (g Group) Member(connID ConnectionID) (Member, bool) {
	for _, m := range g.Members {
		if m.ConnID == connID {
			return m, true
		}
	}
	return Member{}, false
}
