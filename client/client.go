package main

import (
	"bufio"
	"chat-hub/domain/event"
	"chat-hub/transport"
	"context"
	"encoding/json"
	"fmt"
	"github.com/mama165/sdk-go/logs"
	"html"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/gorilla/websocket"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerURL string `env:"CHAT_SERVER_URL,default=ws://localhost:3000/ws"`
	Username  string `env:"CHAT_USERNAME,required=true"`
	Room      string `env:"CHAT_ROOM,default=lobby"`
	Theme     string `env:"CHAT_THEME"`
	LogLevel  string `env:"LOG_LEVEL,default=INFO"`
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run joins a room and relays stdin lines as chat messages until Ctrl+C or the server hangs up.
// A line "/pm <user> <text>" sends a private message instead.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Establish connection to the chat server.
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerURL, err)
	}
	defer func() {
		log.Info("Closing connection...")
		_ = conn.Close()
	}()

	if err := conn.WriteJSON(envelope(transport.JoinRoom, map[string]string{
		"username": config.Username, "room": config.Room, "theme": config.Theme,
	})); err != nil {
		return exitRuntime, fmt.Errorf("join failed: %w", err)
	}
	log.Info(fmt.Sprintf(">>> Connected to %s as %s in %s (Ctrl+C to quit)...",
		config.ServerURL, config.Username, config.Room))

	// 4. Stdin relay.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if err := conn.WriteJSON(toEnvelope(line)); err != nil {
				log.Error("Send failed", "error", err)
				stop()
				return
			}
		}
	}()

	// 5. Reception loop, closing the socket unblocks ReadJSON on shutdown.
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("stream error: %w", err)
		}
		fmt.Println(render(f))
	}
}

func envelope(name string, data any) map[string]any {
	return map[string]any{"event": name, "data": data}
}

func toEnvelope(line string) map[string]any {
	if rest, ok := strings.CutPrefix(line, "/pm "); ok {
		to, text, _ := strings.Cut(rest, " ")
		return envelope(transport.PrivateMessage, map[string]string{"toUsername": to, "message": text})
	}
	return envelope(transport.ChatMessage, line)
}

// render prints one frame. Chat text arrives HTML escaped, a terminal wants it plain.
func render(f frame) string {
	switch event.Name(f.Event) {
	case event.Message:
		var m event.MessageView
		if err := json.Unmarshal(f.Data, &m); err == nil {
			return fmt.Sprintf("[%s] %s: %s", m.Timestamp, m.Username, html.UnescapeString(m.Message))
		}
	case event.PrivateMessage:
		var pm event.PrivateMessagePayload
		if err := json.Unmarshal(f.Data, &pm); err == nil {
			return fmt.Sprintf("[%s] (pm) %s: %s", pm.Message.Timestamp, pm.From, html.UnescapeString(pm.Message.Message))
		}
	case event.JoinError, event.PrivateMessageError, event.GroupError:
		var reason string
		if err := json.Unmarshal(f.Data, &reason); err == nil {
			return fmt.Sprintf("!! %s: %s", f.Event, reason)
		}
	}
	return fmt.Sprintf("<%s> %s", f.Event, string(f.Data))
}
