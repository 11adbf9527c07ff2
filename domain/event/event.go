package event

import (
	"chat-hub/domain"
	"github.com/samber/lo"
)

// Name is the wire name of an outbound event.
type Name string

const (
	JoinError           Name = "joinError"
	RoomHistory         Name = "roomHistory"
	Message             Name = "message"
	RoomUsers           Name = "roomUsers"
	AllUsers            Name = "allUsers"
	PrivateMessage      Name = "privateMessage"
	PrivateMessageError Name = "privateMessageError"
	PrivateHistory      Name = "privateHistory"
	GroupCreated        Name = "groupCreated"
	GroupJoinedSuccess  Name = "groupJoinedSuccess"
	GroupJoined         Name = "groupJoined"
	GroupMessage        Name = "groupMessage"
	GroupError          Name = "groupError"
	GroupHistory        Name = "groupHistory"
	AllGroups           Name = "allGroups"
	ThemePreference     Name = "themePreference"
)

// Event is what the coordinator hands to a connection sink.
type Event struct {
	Name    Name
	Payload any
}

func New(name Name, payload any) Event {
	return Event{Name: name, Payload: payload}
}

// Error carries the plain error string, clients render it as is.
func Error(name Name, err error) Event {
	return Event{Name: name, Payload: err.Error()}
}

type MessageView struct {
	Username  string `json:"username"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	CreatedAt int64  `json:"createdAt"`
}

func ToMessageView(m domain.Message) MessageView {
	return MessageView{
		Username:  m.Sender,
		Message:   m.Text,
		Timestamp: m.DisplayTime,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

func ToMessageViews(messages []domain.Message) []MessageView {
	return lo.Map(messages, func(m domain.Message, _ int) MessageView {
		return ToMessageView(m)
	})
}

type RoomHistoryPayload struct {
	Room     string        `json:"room"`
	Messages []MessageView `json:"messages"`
}

type RoomUsersPayload struct {
	Room  string     `json:"room"`
	Users []UserView `json:"users"`
}

type UserView struct {
	Username string `json:"username"`
	Room     string `json:"room"`
}

type AllUsersPayload struct {
	Users []UserView `json:"users"`
}

func ToUserViews(users []domain.User) []UserView {
	return lo.Map(users, func(u domain.User, _ int) UserView {
		return UserView{Username: u.Username, Room: u.Room}
	})
}

// PrivateMessagePayload is delivered to the recipient without To, and echoed to the sender with it.
type PrivateMessagePayload struct {
	From    string      `json:"from"`
	To      string      `json:"to,omitempty"`
	Message MessageView `json:"message"`
	Room    string      `json:"room"`
}

type PrivateHistoryPayload struct {
	OtherUsername string        `json:"otherUsername"`
	Messages      []MessageView `json:"messages"`
}

type GroupView struct {
	Name        string   `json:"name"`
	Members     []string `json:"members"`
	MemberCount int      `json:"memberCount"`
}

func ToGroupViews(groups []domain.GroupSummary) []GroupView {
	return lo.Map(groups, func(g domain.GroupSummary, _ int) GroupView {
		return GroupView{Name: g.Name, Members: g.Members, MemberCount: g.MemberCount}
	})
}

type AllGroupsPayload struct {
	Groups []GroupView `json:"groups"`
}

// GroupMembershipPayload answers both createGroup and joinGroup.
type GroupMembershipPayload struct {
	Group    GroupView `json:"group"`
	JoinTime int64     `json:"joinTime"`
}

type GroupJoinedPayload struct {
	GroupName string `json:"groupName"`
	Username  string `json:"username"`
}

type GroupMessagePayload struct {
	GroupName string      `json:"groupName"`
	Message   MessageView `json:"message"`
}

type GroupHistoryPayload struct {
	GroupName string        `json:"groupName"`
	Messages  []MessageView `json:"messages"`
}

type ThemePayload struct {
	Theme string `json:"theme"`
}
