// Package feed pushes reaction cues to every open page over WebSocket.
package feed

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/marketconnect/catfart-gpt/app/domain/entities"
)

// Event types.
const (
	TypeFrame   = "frame"
	TypeSound   = "sound"
	TypeLoading = "loading"
	TypeStatus  = "status"
)

const (
	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

// Event is one message on the feed.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// Hub fans events out to connected pages. A page that falls behind loses
// events rather than stalling the sender.
type Hub struct {
	originPatterns []string

	mu         sync.RWMutex
	clients    map[*client]struct{}
	lastFrame  *Event
	lastStatus *Event
	closed     bool
}

// NewHub creates a hub. originPatterns are passed to websocket.Accept.
func NewHub(originPatterns ...string) *Hub {
	return &Hub{
		originPatterns: originPatterns,
		clients:        make(map[*client]struct{}),
	}
}

// ShowFrame broadcasts a frame and keeps it for pages that connect later.
func (h *Hub) ShowFrame(ev entities.FrameEvent) {
	e := Event{Type: TypeFrame, Data: ev}
	h.mu.Lock()
	h.lastFrame = &e
	h.mu.Unlock()
	h.broadcast(e)
}

// PlaySound broadcasts a sound cue.
func (h *Hub) PlaySound(ev entities.SoundEvent) {
	h.broadcast(Event{Type: TypeSound, Data: ev})
}

// SetLoading broadcasts the loader state.
func (h *Hub) SetLoading(on bool) {
	h.broadcast(Event{Type: TypeLoading, Data: on})
}

// PublishStatus broadcasts status and keeps it for pages that connect later.
func (h *Hub) PublishStatus(status any) {
	e := Event{Type: TypeStatus, Data: status}
	h.mu.Lock()
	h.lastStatus = &e
	h.mu.Unlock()
	h.broadcast(e)
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			slog.Debug("feed client lagging, event dropped", "type", e.Type)
		}
	}
}

func (h *Hub) register(conn *websocket.Conn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	c := &client{conn: conn, send: make(chan Event, sendBuffer)}
	if h.lastStatus != nil {
		c.send <- *h.lastStatus
	}
	if h.lastFrame != nil {
		c.send <- *h.lastFrame
	}
	h.clients[c] = struct{}{}
	slog.Info("feed client registered", "clients", len(h.clients))
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		slog.Info("feed client unregistered", "clients", len(h.clients))
	}
}

// ServeHTTP upgrades the request and streams events until either side leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "feed closed"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	c := h.register(conn)
	if c == nil {
		return
	}
	defer h.unregister(c)

	// The page never sends anything; CloseRead handles control frames and
	// cancels ctx when the connection goes away.
	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-c.send:
			if !ok {
				return
			}
			if err := h.write(ctx, conn, e); err != nil {
				slog.Debug("feed write failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, e Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, e)
}

// Close disconnects every page and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}
