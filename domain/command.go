package domain

// Command is one inbound client intent, always attributed to the connection that sent it.
type Command interface {
	Connection() ConnectionID
}

type JoinRoomCommand struct {
	ConnID   ConnectionID
	Username string
	Room     string
	Theme    string
}

type ChatMessageCommand struct {
	ConnID ConnectionID
	Text   string
}

type PrivateMessageCommand struct {
	ConnID     ConnectionID
	ToUsername string
	Text       string
}

type PrivateHistoryCommand struct {
	ConnID        ConnectionID
	OtherUsername string
}

type RoomHistoryCommand struct {
	ConnID ConnectionID
}

type CreateGroupCommand struct {
	ConnID    ConnectionID
	GroupName string
}

type JoinGroupCommand struct {
	ConnID    ConnectionID
	GroupName string
}

type GroupMessageCommand struct {
	ConnID    ConnectionID
	GroupName string
	Text      string
}

type GroupHistoryCommand struct {
	ConnID    ConnectionID
	GroupName string
}

type ListGroupsCommand struct {
	ConnID ConnectionID
}

type ChangeThemeCommand struct {
	ConnID ConnectionID
	Theme  string
}

type DisconnectCommand struct {
	ConnID ConnectionID
}

func (c JoinRoomCommand) Connection() ConnectionID       { return c.ConnID }
func (c ChatMessageCommand) Connection() ConnectionID    { return c.ConnID }
func (c PrivateMessageCommand) Connection() ConnectionID { return c.ConnID }
func (c PrivateHistoryCommand) Connection() ConnectionID { return c.ConnID }
func (c RoomHistoryCommand) Connection() ConnectionID    { return c.ConnID }
func (c CreateGroupCommand) Connection() ConnectionID    { return c.ConnID }
func (c JoinGroupCommand) Connection() ConnectionID      { return c.ConnID }
func (c GroupMessageCommand) Connection() ConnectionID   { return c.ConnID }
func (c GroupHistoryCommand) Connection() ConnectionID   { return c.ConnID }
func (c ListGroupsCommand) Connection() ConnectionID     { return c.ConnID }
func (c ChangeThemeCommand) Connection() ConnectionID    { return c.ConnID }
func (c DisconnectCommand) Connection() ConnectionID     { return c.ConnID }
