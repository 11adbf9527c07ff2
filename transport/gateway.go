// Package transport carries the chat protocol over websockets.
// One connection owns two goroutines: the read pump decodes frames into commands,
// the write pump drains the connection sink.
package transport

import (
	"chat-hub/contract"
	"chat-hub/domain"
	"chat-hub/errors"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	DefaultConnectionBuffer = 256
	DefaultMaxMessageSize   = 4096
	DefaultWriteWait        = 10 * time.Second
	DefaultPongWait         = 60 * time.Second
)

type GatewayConfig struct {
	ConnectionBufferSize int
	MaxMessageSize       int64
	AllowedOrigins       []string
	WriteWait            time.Duration
	PongWait             time.Duration
}

type Gateway struct {
	log      *slog.Logger
	coord    contract.ICoordinator
	cfg      GatewayConfig
	upgrader websocket.Upgrader
}

func NewGateway(log *slog.Logger, coord contract.ICoordinator, cfg GatewayConfig) *Gateway {
	if cfg.ConnectionBufferSize <= 0 {
		cfg.ConnectionBufferSize = DefaultConnectionBuffer
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = DefaultWriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = DefaultPongWait
	}
	return &Gateway{
		log:   log,
		coord: coord,
		cfg:   cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewOriginPolicy(log, cfg.AllowedOrigins).Check,
		},
	}
}

// pingPeriod must stay below PongWait so the peer answers before the read deadline.
func (g *Gateway) pingPeriod() time.Duration {
	return g.cfg.PongWait * 9 / 10
}

// ServeHTTP upgrades the request and blocks for the lifetime of the connection.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	ctx := r.Context()
	connID := domain.ConnectionID(uuid.NewString())
	log := g.log.With("conn_id", connID, "remote", r.RemoteAddr)
	sink := NewSink(g.cfg.ConnectionBufferSize)

	if err := g.coord.Connect(ctx, connID, sink); err != nil {
		log.Error("Unable to register connection", "error", err)
		_ = conn.Close()
		return
	}
	log.Info("Connection opened")

	go g.writePump(ctx, conn, sink, log)
	g.readPump(ctx, conn, connID, log)

	sink.Close()
	disconnectCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.WriteWait)
	defer cancel()
	if err := g.coord.Dispatch(disconnectCtx, domain.DisconnectCommand{ConnID: connID}); err != nil {
		log.Error("Unable to dispatch disconnect", "error", err)
	}
	log.Info("Connection closed")
}

func (g *Gateway) readPump(ctx context.Context, conn *websocket.Conn, connID domain.ConnectionID, log *slog.Logger) {
	conn.SetReadLimit(g.cfg.MaxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait)); err != nil {
		log.Warn("Unable to set read deadline", "error", err)
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(g.cfg.PongWait))
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			logReadError(log, err, g.cfg.MaxMessageSize)
			return
		}
		cmd, err := Decode(connID, frame)
		if err != nil {
			log.Debug("Dropping inbound frame", "error", err)
			continue
		}
		if err := g.coord.Dispatch(ctx, cmd); err != nil {
			log.Warn("Unable to dispatch command", "error", err)
			return
		}
	}
}

func logReadError(log *slog.Logger, err error, limit int64) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn("Inbound frame exceeded maximum size", "limit", limit)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		log.Warn("Unexpected websocket close", "error", err)
	default:
		log.Debug("Websocket read stopped", "error", err)
	}
}

// writePump owns the connection close.
func (g *Gateway) writePump(ctx context.Context, conn *websocket.Conn, sink *Sink, log *slog.Logger) {
	ticker := time.NewTicker(g.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case e := <-sink.Events():
			frame, err := Encode(e)
			if err != nil {
				log.Error("Unable to encode event", "event", e.Name, "error", err)
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Debug("Websocket write failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug("Websocket ping failed", "error", err)
				return
			}
		case <-sink.Done():
			g.writeClose(conn, websocket.CloseNormalClosure)
			return
		case <-ctx.Done():
			g.writeClose(conn, websocket.CloseGoingAway)
			return
		}
	}
}

func (g *Gateway) writeClose(conn *websocket.Conn, code int) {
	msg := websocket.FormatCloseMessage(code, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(g.cfg.WriteWait))
}
