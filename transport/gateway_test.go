package transport

import (
	"chat-hub/domain"
	"chat-hub/domain/event"
	"chat-hub/repositories"
	"chat-hub/runtime"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func startServer(t *testing.T, cfg GatewayConfig) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctx, cancel := context.WithCancel(context.Background())
	coord := runtime.NewCoordinator(log, runtime.CoordinatorConfig{}, runtime.NewChannelRegistry(),
		repositories.NewMemoryThemeStore(), nil, nil)
	go func() { _ = coord.Run(ctx) }()

	srv := httptest.NewServer(NewRouter(log, coord, NewGateway(log, coord, cfg)))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, name string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"event": name, "data": data}))
}

// readUntil skips frames until one named name arrives.
func readUntil(t *testing.T, conn *websocket.Conn, name event.Name) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Event == string(name) {
			return f
		}
	}
}

func readMessageFrom(t *testing.T, conn *websocket.Conn, username string) event.MessageView {
	t.Helper()
	for {
		f := readUntil(t, conn, event.Message)
		var view event.MessageView
		require.NoError(t, json.Unmarshal(f.Data, &view))
		if view.Username == username {
			return view
		}
	}
}

func joinRoom(t *testing.T, conn *websocket.Conn, username, room string) {
	t.Helper()
	send(t, conn, JoinRoom, map[string]string{"username": username, "room": room})
	readUntil(t, conn, event.ThemePreference)
}

func TestGateway_Join_Sends_Welcome_And_Roster(t *testing.T) {
	req := require.New(t)

	// Given a running server and a client
	srv := startServer(t, GatewayConfig{})
	conn := dial(t, srv)

	// When the client joins a room
	send(t, conn, JoinRoom, map[string]string{"username": "alice", "room": "lobby"})

	// Then the welcome notice comes first
	welcome := readMessageFrom(t, conn, domain.BotName)
	req.Equal(domain.WelcomeText, welcome.Message)
	req.NotEmpty(welcome.Timestamp)

	// And the room roster lists the newcomer
	f := readUntil(t, conn, event.RoomUsers)
	var roster event.RoomUsersPayload
	req.NoError(json.Unmarshal(f.Data, &roster))
	req.Equal("lobby", roster.Room)
	req.Equal([]event.UserView{{Username: "alice", Room: "lobby"}}, roster.Users)

	// And the default theme is confirmed
	f = readUntil(t, conn, event.ThemePreference)
	var theme event.ThemePayload
	req.NoError(json.Unmarshal(f.Data, &theme))
	req.Equal(string(domain.DefaultTheme), theme.Theme)
}

func TestGateway_Chat_Message_Reaches_Room_Peer(t *testing.T) {
	req := require.New(t)

	// Given two clients in the same room
	srv := startServer(t, GatewayConfig{})
	alice := dial(t, srv)
	bob := dial(t, srv)
	joinRoom(t, alice, "alice", "lobby")
	joinRoom(t, bob, "bob", "lobby")

	// When alice chats
	send(t, alice, ChatMessage, "hello bob")

	// Then bob receives the message
	view := readMessageFrom(t, bob, "alice")
	req.Equal("hello bob", view.Message)
	req.NotZero(view.CreatedAt)
}

func TestGateway_Closing_A_Connection_Notifies_The_Room(t *testing.T) {
	req := require.New(t)

	// Given two clients in the same room
	srv := startServer(t, GatewayConfig{})
	alice := dial(t, srv)
	bob := dial(t, srv)
	joinRoom(t, alice, "alice", "lobby")
	joinRoom(t, bob, "bob", "lobby")

	// When bob goes away
	req.NoError(bob.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	_ = bob.Close()

	// Then alice is told bob left
	view := readMessageFrom(t, alice, domain.BotName)
	for view.Message != "bob has left the chat" {
		view = readMessageFrom(t, alice, domain.BotName)
	}
	req.Equal("bob has left the chat", view.Message)
}

func TestGateway_Unknown_Event_Is_Ignored(t *testing.T) {
	req := require.New(t)

	// Given a connected client
	srv := startServer(t, GatewayConfig{})
	conn := dial(t, srv)

	// When it sends garbage and an unknown event
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	send(t, conn, "dance", nil)

	// Then the connection still serves a join
	send(t, conn, JoinRoom, map[string]string{"username": "alice", "room": "lobby"})
	welcome := readMessageFrom(t, conn, domain.BotName)
	req.Equal(domain.WelcomeText, welcome.Message)
}

func TestGateway_Join_Error_Is_Reported(t *testing.T) {
	req := require.New(t)

	// Given a connected client
	srv := startServer(t, GatewayConfig{})
	conn := dial(t, srv)

	// When it joins without a room
	send(t, conn, JoinRoom, map[string]string{"username": "alice"})

	// Then a joinError frame carries the reason
	f := readUntil(t, conn, event.JoinError)
	var reason string
	req.NoError(json.Unmarshal(f.Data, &reason))
	req.Equal("room is required", reason)
}

func TestGateway_Oversized_Frame_Closes_Connection(t *testing.T) {
	req := require.New(t)

	// Given a server accepting small frames only
	srv := startServer(t, GatewayConfig{MaxMessageSize: 64})
	conn := dial(t, srv)

	// When the client sends a larger frame
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("x", 512))))

	// Then the server drops the connection
	req.NoError(conn.SetReadDeadline(time.Now().Add(3 * time.Second)))
	_, _, err := conn.ReadMessage()
	req.Error(err)
}

func TestGateway_Disallowed_Origin_Is_Rejected(t *testing.T) {
	req := require.New(t)

	// Given a server allowing a single origin
	srv := startServer(t, GatewayConfig{AllowedOrigins: []string{"https://chat.example"}})
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	// When a foreign origin dials
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)

	// Then the upgrade is refused
	req.Error(err)
	req.NotNil(resp)
	req.Equal(http.StatusForbidden, resp.StatusCode)
}

func TestRouter_Healthz_And_Stats(t *testing.T) {
	req := require.New(t)

	// Given a server with one joined client
	srv := startServer(t, GatewayConfig{})
	conn := dial(t, srv)
	joinRoom(t, conn, "alice", "lobby")

	// When probing the health endpoint
	resp, err := http.Get(srv.URL + "/healthz")
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	req.NoError(err)

	// Then it answers ok
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("ok", string(body))

	// When reading the stats
	resp, err = http.Get(srv.URL + "/stats")
	req.NoError(err)
	defer func() { _ = resp.Body.Close() }()
	var stats statsView
	req.NoError(json.NewDecoder(resp.Body).Decode(&stats))

	// Then the joined client is counted
	req.Equal(1, stats.Connections)
	req.Equal(1, stats.Users)
}
