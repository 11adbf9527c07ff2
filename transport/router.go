package transport

import (
	"chat-hub/contract"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const statsTimeout = 2 * time.Second

type statsView struct {
	Connections int `json:"connections"`
	Users       int `json:"users"`
	Groups      int `json:"groups"`
	Channels    int `json:"channels"`
	Histories   int `json:"histories"`
}

// NewRouter mounts the websocket gateway and the operational probes.
func NewRouter(log *slog.Logger, coord contract.ICoordinator, gateway http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), statsTimeout)
		defer cancel()
		stats, err := coord.Stats(ctx)
		if err != nil {
			log.Warn("Stats unavailable", "request_id", middleware.GetReqID(req.Context()), "error", err)
			http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statsView{
			Connections: stats.Connections,
			Users:       stats.Users,
			Groups:      stats.Groups,
			Channels:    stats.Channels,
			Histories:   stats.Histories,
		})
	})

	r.Handle("/ws", gateway)
	return r
}
