// Package realtime pushes catalog state to connected storefront clients over
// websockets and accepts catalog mutations from admin sessions.
package realtime

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var realtimeSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "realtime_sessions",
		Help: "Current number of connected realtime sessions",
	},
)

// Hub owns the session registry and fans frames out to every session. All
// registry access happens on the Run goroutine.
type Hub struct {
	handler  *CommandHandler
	logger   *slog.Logger
	upgrader websocket.Upgrader

	sessions   map[*Session]struct{}
	register   chan *Session
	unregister chan *Session
	broadcast  chan []byte
}

// NewHub creates a hub for the given command handler.
func NewHub(handler *CommandHandler, logger *slog.Logger) *Hub {
	return &Hub{
		handler: handler,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS layer on the REST surface;
			// the push channel is open like the rest of the public API.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions:   make(map[*Session]struct{}),
		register:   make(chan *Session),
		unregister: make(chan *Session),
		broadcast:  make(chan []byte, 8),
	}
}

// Run processes registry events until ctx is cancelled. It must be running
// before any connection is accepted.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for s := range h.sessions {
				s.close()
				delete(h.sessions, s)
			}
			realtimeSessions.Set(0)
			return

		case s := <-h.register:
			h.sessions[s] = struct{}{}
			realtimeSessions.Set(float64(len(h.sessions)))
			h.logger.Info("realtime session connected", slog.Int("sessions", len(h.sessions)))

		case s := <-h.unregister:
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				s.close()
				realtimeSessions.Set(float64(len(h.sessions)))
				h.logger.Info("realtime session disconnected", slog.Int("sessions", len(h.sessions)))
			}

		case frame := <-h.broadcast:
			for s := range h.sessions {
				if s.trySend(frame) {
					continue
				}
				// Slow consumer: drop the session rather than block the hub.
				delete(h.sessions, s)
				s.close()
				realtimeSessions.Set(float64(len(h.sessions)))
			}
		}
	}
}

// BroadcastCatalog pushes the full refreshed catalog to every session. It is
// called from HTTP handlers after a successful mutation.
func (h *Hub) BroadcastCatalog(ctx context.Context) {
	h.enqueue(h.handler.catalogUpdated(ctx))
}

func (h *Hub) enqueue(frame []byte) {
	select {
	case h.broadcast <- frame:
	default:
		h.logger.Warn("realtime broadcast queue full, dropping frame")
	}
}

// ServeWS upgrades the connection, sends the catalog snapshot to the new
// session and starts its pumps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	s := newSession(h, conn)
	h.register <- s

	s.send <- h.handler.Snapshot(r.Context())

	go s.writePump()
	go s.readPump()
}
