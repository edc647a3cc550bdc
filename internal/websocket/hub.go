package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/ImamSharif/Healthcare-analytics/internal/infrastructure"
	"github.com/ImamSharif/Healthcare-analytics/internal/services"
	"github.com/ImamSharif/Healthcare-analytics/pkg/contracts/events"
)

// Message types pushed to clients.
const (
	TypeConnection      = events.TypeConnection
	TypeDatasetReloaded = events.TypeDatasetReloaded
)

// Message is the envelope of every pushed event.
type Message = events.Message

type outbound struct {
	msgType events.MessageType
	payload []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
// Clients are only added and removed by the Run loop.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	count   int
	running bool
	quit    chan struct{}
	done    chan struct{}

	metrics *HubMetrics
	logger  *slog.Logger
}

// NewHub creates a hub. metrics may be nil.
func NewHub(metrics *HubMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Start runs the hub loop in a goroutine. Calling it twice is a no-op.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return
	}
	h.running = true
	go h.run()
}

func (h *Hub) run() {
	defer close(h.done)
	for {
		select {
		case <-h.quit:
			h.logger.Info("Hub shutting down")
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.setCount(0)
			return

		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount(len(h.clients))
			ctx := c.context()
			h.metrics.connected(ctx)
			h.logger.InfoContext(ctx, "Client registered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", c.id),
				slog.String("remote_addr", c.remoteAddr))

			if payload, err := encode(ctx, TypeConnection, events.ConnectionEvent{Status: "connected", ClientID: c.id}); err == nil {
				select {
				case c.send <- payload:
				default:
				}
			}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; !ok {
				continue
			}
			delete(h.clients, c)
			close(c.send)
			h.setCount(len(h.clients))
			ctx := c.context()
			h.metrics.disconnected(ctx, time.Since(c.connectedAt))
			h.logger.InfoContext(ctx, "Client unregistered",
				slog.Int("total_clients", len(h.clients)),
				slog.String("client_id", c.id),
				slog.Duration("connection_duration", time.Since(c.connectedAt)))

		case msg := <-h.broadcast:
			sent, dropped := 0, 0
			for c := range h.clients {
				select {
				case c.send <- msg.payload:
					sent++
				default:
					// Slow client: drop it rather than block every other one.
					dropped++
					delete(h.clients, c)
					close(c.send)
					h.metrics.disconnected(c.context(), time.Since(c.connectedAt))
					h.logger.WarnContext(c.context(), "Client send buffer full, disconnecting",
						slog.String("client_id", c.id))
				}
			}
			h.setCount(len(h.clients))
			h.metrics.broadcast(context.Background(), string(msg.msgType), sent, dropped)
			h.logger.Debug("Broadcast delivered",
				slog.String("type", string(msg.msgType)),
				slog.Int("sent", sent),
				slog.Int("dropped", dropped))
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Register adds a client. It returns false when the hub is stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister removes a client and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}

// Broadcast queues data for every connected client. It never blocks past
// ctx or hub shutdown.
func (h *Hub) Broadcast(ctx context.Context, msgType events.MessageType, data any) error {
	payload, err := encode(ctx, msgType, data)
	if err != nil {
		h.logger.ErrorContext(ctx, "Error marshaling message",
			slog.String("error", err.Error()),
			slog.String("message_type", string(msgType)))
		return err
	}
	select {
	case h.broadcast <- outbound{msgType: msgType, payload: payload}:
		return nil
	case <-h.quit:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NotifyReload pushes a dataset.reloaded event.
func (h *Hub) NotifyReload(ctx context.Context, info services.DatasetInfo) {
	if err := h.Broadcast(ctx, TypeDatasetReloaded, info); err != nil {
		h.logger.WarnContext(ctx, "Reload notification not sent", slog.String("error", err.Error()))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Stop closes every client and waits for the hub loop to exit.
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
	<-h.done
}

func encode(ctx context.Context, msgType events.MessageType, data any) ([]byte, error) {
	return json.Marshal(Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC(),
		TraceID:   infrastructure.GetTraceID(ctx),
	})
}

var _ services.ReloadNotifier = (*Hub)(nil)
var _ services.ClientCounter = (*Hub)(nil)
