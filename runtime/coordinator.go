// Package runtime owns the live chat state: identities, groups, history and subscriptions.
// Every mutation goes through the Coordinator, a single goroutine that handles one command at a time.
package runtime

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/errors"
	"context"
	"fmt"
	"github.com/samber/lo"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultCommandBuffer    = 1024
	DefaultMaxContentLength = 2000
)

type CoordinatorConfig struct {
	HistoryLimit     int
	MaxContentLength int
	CommandBuffer    int
}

// Coordinator is the session state machine. Commands are queued by the transport
// and handled to completion, in order, by Run. Check-then-mutate sequences are
// therefore atomic without locks around the registries.
type Coordinator struct {
	log              *slog.Logger
	clock            func() time.Time
	identities       *IdentityRegistry
	groups           *GroupDirectory
	history          *HistoryStore
	channels         contract.IChannelRegistry
	themes           contract.ThemeStore
	filter           contract.TextFilter
	maxContentLength int
	commands         chan domain.Command
}

var _ contract.ICoordinator = (*Coordinator)(nil)
var _ contract.Worker = (*Coordinator)(nil)

// attachCommand registers the outbound sink of a new connection.
type attachCommand struct {
	connID domain.ConnectionID
	sink   contract.EventSink
}

func (c attachCommand) Connection() domain.ConnectionID { return c.connID }

type statsQuery struct {
	reply chan domain.Stats
}

func (q statsQuery) Connection() domain.ConnectionID { return "" }

// NewCoordinator builds the registries itself so that a coordinator never shares state with another one.
// A nil filter leaves text untouched. A nil clock means time.Now.
func NewCoordinator(log *slog.Logger, cfg CoordinatorConfig, channels contract.IChannelRegistry,
	themes contract.ThemeStore, filter contract.TextFilter, clock func() time.Time) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	if cfg.MaxContentLength <= 0 {
		cfg.MaxContentLength = DefaultMaxContentLength
	}
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultCommandBuffer
	}
	return &Coordinator{
		log:              log,
		clock:            clock,
		identities:       NewIdentityRegistry(clock),
		groups:           NewGroupDirectory(clock),
		history:          NewHistoryStore(cfg.HistoryLimit),
		channels:         channels,
		themes:           themes,
		filter:           filter,
		maxContentLength: cfg.MaxContentLength,
		commands:         make(chan domain.Command, cfg.CommandBuffer),
	}
}

// Connect queues the attachment of a connection sink. It must precede any command of that connection.
func (c *Coordinator) Connect(ctx context.Context, connID domain.ConnectionID, sink contract.EventSink) error {
	return c.Dispatch(ctx, attachCommand{connID: connID, sink: sink})
}

// Dispatch waits for room in the queue rather than dropping: a lost disconnect would leak an identity.
func (c *Coordinator) Dispatch(ctx context.Context, cmd domain.Command) error {
	select {
	case c.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats is answered by the coordinator goroutine, never read concurrently.
func (c *Coordinator) Stats(ctx context.Context) (domain.Stats, error) {
	reply := make(chan domain.Stats, 1)
	if err := c.Dispatch(ctx, statsQuery{reply: reply}); err != nil {
		return domain.Stats{}, err
	}
	select {
	case stats := <-reply:
		return stats, nil
	case <-ctx.Done():
		return domain.Stats{}, ctx.Err()
	}
}

// Queue exposes the command channel to capacity sampling. Nothing else may read from it.
func (c *Coordinator) Queue() any {
	return c.commands
}

func (c *Coordinator) Run(ctx context.Context) error {
	c.log.Info("Coordinator started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info("Coordinator stopped")
			return nil
		case cmd := <-c.commands:
			c.Handle(ctx, cmd)
		}
	}
}

// Handle processes one command synchronously.
func (c *Coordinator) Handle(ctx context.Context, cmd domain.Command) {
	switch cmd := cmd.(type) {
	case attachCommand:
		c.channels.Attach(cmd.connID, cmd.sink)
	case statsQuery:
		cmd.reply <- c.snapshot()
	case domain.JoinRoomCommand:
		c.handleJoinRoom(ctx, cmd)
	case domain.ChatMessageCommand:
		c.handleChatMessage(ctx, cmd)
	case domain.RoomHistoryCommand:
		c.handleRoomHistory(ctx, cmd)
	case domain.PrivateMessageCommand:
		c.handlePrivateMessage(ctx, cmd)
	case domain.PrivateHistoryCommand:
		c.handlePrivateHistory(ctx, cmd)
	case domain.CreateGroupCommand:
		c.handleCreateGroup(ctx, cmd)
	case domain.JoinGroupCommand:
		c.handleJoinGroup(ctx, cmd)
	case domain.GroupMessageCommand:
		c.handleGroupMessage(ctx, cmd)
	case domain.GroupHistoryCommand:
		c.handleGroupHistory(ctx, cmd)
	case domain.ListGroupsCommand:
		c.send(ctx, cmd.ConnID, c.allGroupsEvent())
	case domain.ChangeThemeCommand:
		c.handleChangeTheme(ctx, cmd)
	case domain.DisconnectCommand:
		c.handleDisconnect(ctx, cmd)
	default:
		c.log.Warn(fmt.Sprintf("Unknown command %T, dropping", cmd), "conn_id", cmd.Connection())
	}
}

func (c *Coordinator) handleJoinRoom(ctx context.Context, cmd domain.JoinRoomCommand) {
	previous, wasBound := c.identities.ByConnection(cmd.ConnID)
	user, err := c.identities.Join(cmd.ConnID, cmd.Username, cmd.Room)
	if err != nil {
		c.reject(ctx, cmd.ConnID, event.JoinError, err)
		// The previous identity is gone, the connection is back to unbound.
		if wasBound {
			c.channels.Unsubscribe(cmd.ConnID, domain.Derive(domain.RoomOf(previous.Room)))
			c.publishRoomUsers(ctx, previous.Room)
			c.publishAllUsers(ctx)
		}
		return
	}
	if wasBound && previous.Room != user.Room {
		c.channels.Unsubscribe(cmd.ConnID, domain.Derive(domain.RoomOf(previous.Room)))
		c.publishRoomUsers(ctx, previous.Room)
	}
	if wasBound && c.groups.Rename(cmd.ConnID, user.Username) > 0 {
		c.broadcastAll(ctx, c.allGroupsEvent())
	}

	theme := c.resolveTheme(ctx, user.Username, cmd.Theme)
	roomKey := domain.Derive(domain.RoomOf(user.Room))

	if messages := c.history.Query(roomKey, user.JoinedAt); len(messages) > 0 {
		c.send(ctx, cmd.ConnID, event.New(event.RoomHistory, event.RoomHistoryPayload{
			Room:     user.Room,
			Messages: event.ToMessageViews(messages),
		}))
	}
	c.send(ctx, cmd.ConnID, event.New(event.Message, event.ToMessageView(domain.WelcomeNotice(c.clock()))))

	joined := domain.JoinedNotice(user.Username, c.clock())
	c.history.Append(roomKey, joined)
	c.broadcast(ctx, roomKey, event.New(event.Message, event.ToMessageView(joined)), cmd.ConnID)
	c.channels.Subscribe(cmd.ConnID, roomKey)

	c.publishRoomUsers(ctx, user.Room)
	c.publishAllUsers(ctx)
	c.send(ctx, cmd.ConnID, c.allGroupsEvent())
	c.send(ctx, cmd.ConnID, event.New(event.ThemePreference, event.ThemePayload{Theme: string(theme)}))

	c.log.Info("User joined", "conn_id", cmd.ConnID, "username", user.Username, "room", user.Room)
}

// resolveTheme prefers the stored value, then a valid hint, then the default.
// A store failure degrades to the hint or the default, it never rejects the join.
func (c *Coordinator) resolveTheme(ctx context.Context, username, hint string) domain.Theme {
	key := domain.CanonicalKey(username)
	stored, found, err := c.themes.Get(ctx, key)
	if err != nil {
		c.log.Warn("Unable to read theme preference", "username", username, "error", err)
	}
	if err == nil && found && stored.IsValid() {
		return stored
	}

	theme := domain.DefaultTheme
	if candidate := domain.Theme(strings.TrimSpace(hint)); candidate.IsValid() {
		theme = candidate
	}
	if err := c.themes.Save(ctx, key, theme); err != nil {
		c.log.Warn("Unable to save theme preference", "username", username, "error", err)
	}
	return theme
}

func (c *Coordinator) handleChatMessage(ctx context.Context, cmd domain.ChatMessageCommand) {
	user, ok := c.identities.ByConnection(cmd.ConnID)
	if !ok {
		c.reject(ctx, cmd.ConnID, event.JoinError, errors.ErrNotInRoom)
		return
	}
	text, err := c.prepareText(cmd.Text)
	if err != nil {
		c.reject(ctx, cmd.ConnID, event.JoinError, err)
		return
	}

	roomKey := domain.Derive(domain.RoomOf(user.Room))
	msg := domain.NewMessage(user.Username, text, c.clock())
	c.history.Append(roomKey, msg)
	c.broadcast(ctx, roomKey, event.New(event.Message, event.ToMessageView(msg)))
}

func (c *Coordinator) handleRoomHistory(ctx context.Context, cmd domain.RoomHistoryCommand) {
	user, ok := c.identities.ByConnection(cmd.ConnID)
	if !ok {
		c.reject(ctx, cmd.ConnID, event.JoinError, errors.ErrNotInRoom)
		return
	}
	messages := c.history.Query(domain.Derive(domain.RoomOf(user.Room)), user.JoinedAt)
	c.send(ctx, cmd.ConnID, event.New(event.RoomHistory, event.RoomHistoryPayload{
		Room:     user.Room,
		Messages: event.ToMessageViews(messages),
	}))
}

func (c *Coordinator) handlePrivateMessage(ctx context.Context, cmd domain.PrivateMessageCommand) {
	sender, ok := c.identities.ByConnection(cmd.ConnID)
	if !ok {
		c.reject(ctx, cmd.ConnID, event.JoinError, errors.ErrNotInRoom)
		return
	}
	recipient, online := c.identities.ByUsername(cmd.ToUsername)
	if !online {
		c.reject(ctx, cmd.ConnID, event.PrivateMessageError,
			fmt.Errorf("%w: %s", errors.ErrRecipientOffline, strings.TrimSpace(cmd.ToUsername)))
		return
	}
	if recipient.ConnID == sender.ConnID {
		c.reject(ctx, cmd.ConnID, event.PrivateMessageError, errors.ErrCannotMessageSelf)
		return
	}
	text, err := c.prepareText(cmd.Text)
	if err != nil {
		c.reject(ctx, cmd.ConnID, event.PrivateMessageError, err)
		return
	}

	key := privateKey(sender.Username, recipient.Username)
	msg := domain.NewMessage(sender.Username, text, c.clock())
	c.history.Append(key, msg)

	view := event.ToMessageView(msg)
	c.send(ctx, recipient.ConnID, event.New(event.PrivateMessage, event.PrivateMessagePayload{
		From:    sender.Username,
		Message: view,
		Room:    key.String(),
	}))
	c.send(ctx, sender.ConnID, event.New(event.PrivateMessage, event.PrivateMessagePayload{
		From:    sender.Username,
		To:      recipient.Username,
		Message: view,
		Room:    key.String(),
	}))
}

// handlePrivateHistory never scopes by join time: the whole shared log is returned.
func (c *Coordinator) handlePrivateHistory(ctx context.Context, cmd domain.PrivateHistoryCommand) {
	user, ok := c.identities.ByConnection(cmd.ConnID)
	if !ok {
		c.reject(ctx, cmd.ConnID, event.JoinError, errors.ErrNotInRoom)
		return
	}
	other := strings.TrimSpace(cmd.OtherUsername)
	if peer, online := c.identities.ByUsername(other); online {
		other = peer.Username
	}
	messages := c.history.Query(privateKey(user.Username, other), time.Time{})
	c.send(ctx, cmd.ConnID, event.New(event.PrivateHistory, event.PrivateHistoryPayload{
		OtherUsername: other,
		Messages:      event.ToMessageViews(messages),
	}))
}

func (c *Coordinator) handleCreateGroup(ctx context.Context, cmd domain.CreateGroupCommand) {
	user, ok := c.identities.ByConnection(cmd.ConnID)
	if !ok {
		c.reject(ctx, cmd.ConnID, event.GroupError, errors.ErrNotInRoom)
		return
	}
	group, joinedAt, err := c.groups.Create(cmd.GroupName, user.Username, cmd.ConnID)
	if err != nil {
		c.reject(ctx, cmd.ConnID, event.GroupError, err)
		return
	}

	c.channels.Subscribe(cmd.ConnID, domain.Derive(domain.GroupOf(group.Name)))
	c.broadcastAll(ctx, c.allGroupsEvent())
	c.send(ctx, cmd.ConnID, event.New(event.GroupCreated, membershipPayload(group, joinedAt)))

	c.log.Info("Group created", "conn_id", cmd.ConnID, "username", user.Username, "group", group.Name)
}

// handleJoinGroup notifies members through their current identity, not through the group channel.
// A member whose connection is gone receives nothing.
func (c *Coordinator) handleJoinGroup(ctx context.Context, cmd domain.JoinGroupCommand) {
	user, ok := c.identities.ByConnection(cmd.ConnID)
	if !ok {
		c.reject(ctx, cmd.ConnID, event.GroupError, errors.ErrNotInRoom)
		return
	}
	group, joinedAt, err := c.groups.Join(cmd.GroupName, user.Username, cmd.ConnID)
	if err != nil {
		c.reject(ctx, cmd.ConnID, event.GroupError, err)
		return
	}

	c.channels.Subscribe(cmd.ConnID, domain.Derive(domain.GroupOf(group.Name)))

	notice := event.New(event.GroupJoined, event.GroupJoinedPayload{GroupName: group.Name, Username: user.Username})
	peers := lo.FilterMap(group.Members, func(m domain.Member, _ int) (domain.ConnectionID, bool) {
		peer, online := c.identities.ByUsername(m.Username)
		return peer.ConnID, online && peer.ConnID != cmd.ConnID
	})
	for _, connID := range lo.Uniq(peers) {
		c.send(ctx, connID, notice)
	}

	c.broadcastAll(ctx, c.allGroupsEvent())
	c.send(ctx, cmd.ConnID, event.New(event.GroupJoinedSuccess, membershipPayload(group, joinedAt)))
}

func (c *Coordinator) handleGroupMessage(ctx context.Context, cmd domain.GroupMessageCommand) {
	user, ok := c.identities.ByConnection(cmd.ConnID)
	if !ok {
		c.reject(ctx, cmd.ConnID, event.GroupError, errors.ErrNotInRoom)
		return
	}
	group, exists := c.groups.Get(cmd.GroupName)
	if !exists || !c.groups.IsMember(group.Name, cmd.ConnID) {
		c.reject(ctx, cmd.ConnID, event.GroupError, errors.ErrNotGroupMember)
		return
	}
	text, err := c.prepareText(cmd.Text)
	if err != nil {
		c.reject(ctx, cmd.ConnID, event.GroupError, err)
		return
	}

	key := domain.Derive(domain.GroupOf(group.Name))
	msg := domain.NewMessage(user.Username, text, c.clock())
	c.history.Append(key, msg)
	c.broadcast(ctx, key, event.New(event.GroupMessage, event.GroupMessagePayload{
		GroupName: group.Name,
		Message:   event.ToMessageView(msg),
	}))
}

func (c *Coordinator) handleGroupHistory(ctx context.Context, cmd domain.GroupHistoryCommand) {
	if _, ok := c.identities.ByConnection(cmd.ConnID); !ok {
		c.reject(ctx, cmd.ConnID, event.GroupError, errors.ErrNotInRoom)
		return
	}
	group, exists := c.groups.Get(cmd.GroupName)
	if !exists {
		c.reject(ctx, cmd.ConnID, event.GroupError, errors.ErrNotGroupMember)
		return
	}
	member, isMember := c.groups.Member(group.Name, cmd.ConnID)
	if !isMember {
		c.reject(ctx, cmd.ConnID, event.GroupError, errors.ErrNotGroupMember)
		return
	}

	messages := c.history.Query(domain.Derive(domain.GroupOf(group.Name)), member.JoinedAt)
	c.send(ctx, cmd.ConnID, event.New(event.GroupHistory, event.GroupHistoryPayload{
		GroupName: group.Name,
		Messages:  event.ToMessageViews(messages),
	}))
}

// handleChangeTheme silently ignores unbound connections and unknown themes.
func (c *Coordinator) handleChangeTheme(ctx context.Context, cmd domain.ChangeThemeCommand) {
	user, ok := c.identities.ByConnection(cmd.ConnID)
	theme := domain.Theme(strings.TrimSpace(cmd.Theme))
	if !ok || !theme.IsValid() {
		c.log.Debug("Theme change ignored", "conn_id", cmd.ConnID, "theme", cmd.Theme)
		return
	}
	if err := c.themes.Save(ctx, domain.CanonicalKey(user.Username), theme); err != nil {
		c.log.Warn("Unable to save theme preference", "username", user.Username, "error", err)
		return
	}
	c.send(ctx, cmd.ConnID, event.New(event.ThemePreference, event.ThemePayload{Theme: string(theme)}))
}

// handleDisconnect always releases the sink. The rest only applies to a bound connection.
func (c *Coordinator) handleDisconnect(ctx context.Context, cmd domain.DisconnectCommand) {
	user, ok := c.identities.Leave(cmd.ConnID)
	c.channels.Detach(cmd.ConnID)
	if !ok {
		return
	}

	roomKey := domain.Derive(domain.RoomOf(user.Room))
	left := domain.LeftNotice(user.Username, c.clock())
	c.history.Append(roomKey, left)
	c.broadcast(ctx, roomKey, event.New(event.Message, event.ToMessageView(left)))

	c.publishRoomUsers(ctx, user.Room)
	c.publishAllUsers(ctx)

	if groups := c.groups.LeaveAll(cmd.ConnID); len(groups) > 0 {
		c.log.Debug("Connection removed from groups", "conn_id", cmd.ConnID, "group", strings.Join(groups, ","))
	}
	c.broadcastAll(ctx, c.allGroupsEvent())

	c.log.Info("User left", "conn_id", cmd.ConnID, "username", user.Username, "room", user.Room)
}

// prepareText trims and filters user supplied text, then bounds what will be stored.
func (c *Coordinator) prepareText(text string) (string, error) {
	prepared := strings.TrimSpace(text)
	if prepared == "" {
		return "", errors.ErrEmptyMessage
	}
	if c.filter != nil {
		// Sanitizing may strip everything, e.g. a lone <script> tag.
		prepared = strings.TrimSpace(c.filter.Filter(prepared))
		if prepared == "" {
			return "", errors.ErrEmptyMessage
		}
	}
	if utf8.RuneCountInString(prepared) > c.maxContentLength {
		return "", fmt.Errorf("%w: %d characters max", errors.ErrMessageTooLong, c.maxContentLength)
	}
	return prepared, nil
}

// privateKey keys a conversation by canonical usernames, so the casing a client
// uses for an offline peer still finds the shared log.
func privateKey(userA, userB string) domain.ChannelKey {
	return domain.Derive(domain.PrivateOf(domain.CanonicalKey(userA), domain.CanonicalKey(userB)))
}

func (c *Coordinator) publishRoomUsers(ctx context.Context, room string) {
	c.broadcast(ctx, domain.Derive(domain.RoomOf(room)), event.New(event.RoomUsers, event.RoomUsersPayload{
		Room:  room,
		Users: event.ToUserViews(c.identities.InRoom(room)),
	}))
}

func (c *Coordinator) publishAllUsers(ctx context.Context) {
	c.broadcastAll(ctx, event.New(event.AllUsers, event.AllUsersPayload{
		Users: event.ToUserViews(c.identities.All()),
	}))
}

func (c *Coordinator) allGroupsEvent() event.Event {
	return event.New(event.AllGroups, event.AllGroupsPayload{Groups: event.ToGroupViews(c.groups.All())})
}

func membershipPayload(group domain.Group, joinedAt time.Time) event.GroupMembershipPayload {
	views := event.ToGroupViews([]domain.GroupSummary{Summarize(group)})
	return event.GroupMembershipPayload{Group: views[0], JoinTime: joinedAt.UnixMilli()}
}

// reject surfaces a client error to the originating connection only.
func (c *Coordinator) reject(ctx context.Context, connID domain.ConnectionID, name event.Name, err error) {
	c.log.Debug("Command rejected", "conn_id", connID, "event", name, "kind", errors.KindOf(err), "error", err)
	c.send(ctx, connID, event.Error(name, err))
}

func (c *Coordinator) send(ctx context.Context, connID domain.ConnectionID, evt event.Event) {
	sink, ok := c.channels.Sink(connID)
	if !ok {
		return
	}
	c.deliver(ctx, sink, evt)
}

func (c *Coordinator) broadcast(ctx context.Context, channel domain.ChannelKey, evt event.Event, except ...domain.ConnectionID) {
	for _, sink := range c.channels.SinksFor(channel, except...) {
		c.deliver(ctx, sink, evt)
	}
}

func (c *Coordinator) broadcastAll(ctx context.Context, evt event.Event) {
	for _, sink := range c.channels.All() {
		c.deliver(ctx, sink, evt)
	}
}

func (c *Coordinator) deliver(ctx context.Context, sink contract.EventSink, evt event.Event) {
	if err := sink.Consume(ctx, evt); err != nil {
		c.log.Warn("Event not delivered", "event", evt.Name, "error", err)
	}
}

func (c *Coordinator) snapshot() domain.Stats {
	return domain.Stats{
		Connections: c.channels.ConnectionCount(),
		Users:       c.identities.Count(),
		Groups:      c.groups.Count(),
		Channels:    c.channels.ChannelCount(),
		Histories:   c.history.Count(),
	}
}
