package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/websocket"

	"todo/internal/service"
)

// Event types sent on the feed.
const (
	EventConnected  = "connected"
	EventTaskUpdate = "task_update"
)

// Actions carried by task_update events.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionToggled = "toggled"
	ActionDeleted = "deleted"
)

// Event is one message on the change feed.
type Event struct {
	Type      string     `json:"type"`
	Action    string     `json:"action,omitempty"`
	ID        service.ID `json:"id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Hub fans change events out to connected WebSocket clients.
// Publish never blocks; when the queue is full the event is dropped.
type Hub struct {
	logger *log.Logger

	clients   map[*websocket.Conn]struct{}
	clientsMu sync.RWMutex

	queue chan Event

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewHub starts a hub. Call Close to stop it and drop all clients.
func NewHub(logger *log.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		logger:  logger,
		clients: make(map[*websocket.Conn]struct{}),
		queue:   make(chan Event, 100),
		ctx:     ctx,
		cancel:  cancel,
	}
	h.wg.Add(1)
	go h.loop()
	return h
}

// Publish queues ev for every client.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	select {
	case h.queue <- ev:
	case <-h.ctx.Done():
	default:
		h.logger.Warn("event queue full, dropping event", "action", ev.Action, "id", ev.ID)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and stops the broadcast loop.
func (h *Hub) Close() {
	h.once.Do(func() {
		h.cancel()

		h.clientsMu.Lock()
		for conn := range h.clients {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			delete(h.clients, conn)
		}
		h.clientsMu.Unlock()

		h.wg.Wait()
	})
}

// ServeHTTP upgrades the request and holds the connection until the
// client goes away or the hub closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "err", err)
		return
	}

	select {
	case <-h.ctx.Done():
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	default:
	}

	h.clientsMu.Lock()
	h.clients[conn] = struct{}{}
	n := len(h.clients)
	h.clientsMu.Unlock()
	h.logger.Debug("feed client connected", "clients", n)

	// Once the client has this it is registered for every later event.
	hello, _ := json.Marshal(Event{Type: EventConnected, Timestamp: time.Now().UTC()})
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	err = conn.Write(ctx, websocket.MessageText, hello)
	cancel()
	if err != nil {
		h.remove(conn)
		return
	}

	h.readLoop(conn)
}

func (h *Hub) loop() {
	defer h.wg.Done()

	for {
		select {
		case <-h.ctx.Done():
			return
		case ev := <-h.queue:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to marshal event", "err", err)
				continue
			}

			h.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(h.clients))
			for conn := range h.clients {
				clients = append(clients, conn)
			}
			h.clientsMu.RUnlock()

			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()
				if err != nil {
					h.logger.Debug("failed to send event", "err", err)
					h.remove(conn)
				}
			}
		}
	}
}

// readLoop discards client messages; it returns when the connection drops.
func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.remove(conn)
	for {
		if _, _, err := conn.Read(h.ctx); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.clientsMu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	n := len(h.clients)
	h.clientsMu.Unlock()

	if ok {
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug("feed client disconnected", "clients", n)
	}
}
