package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/ImamSharif/Healthcare-analytics/internal/config"
	"github.com/ImamSharif/Healthcare-analytics/internal/infrastructure"
)

// Handler upgrades HTTP requests on the push endpoint.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	opts     ClientOptions
	logger   *slog.Logger
}

// NewHandler creates the /ws handler. An empty allowedOrigins list, or one
// containing "*", accepts every origin.
func NewHandler(hub *Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		opts:   ClientOptionsFrom(cfg),
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("origin", r.Header.Get("Origin")))
		return
	}

	client := NewClient(h.hub, WrapConn(conn), infrastructure.GetTraceID(r.Context()), h.opts, h.logger)
	if !h.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func originChecker(allowed []string) func(*http.Request) bool {
	wildcard := len(allowed) == 0
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			wildcard = true
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if wildcard || origin == "" {
			return true
		}
		if _, ok := set[origin]; ok {
			return true
		}
		// Same-host requests are always accepted.
		u, err := url.Parse(origin)
		return err == nil && strings.EqualFold(u.Host, r.Host)
	}
}
