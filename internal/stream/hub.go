// Package stream publishes live detection results over a websocket endpoint
// so any UI can subscribe. It is the display sink of the pipeline; the
// daemon never waits on a subscriber.
package stream

import (
	"encoding/json"
	log "log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"

	"empath/pkg/emotion"
)

// Event is one loop iteration's result on the wire.
type Event struct {
	Time  time.Time  `json:"time"`
	Face  *Detection `json:"face,omitempty"`
	Voice *Detection `json:"voice,omitempty"`
	Fused *Detection `json:"fused,omitempty"`
}

// Detection is the wire form of a prediction. The face box is flattened to
// x/y/w/h.
type Detection struct {
	Emotion    emotion.Label `json:"emotion"`
	Confidence float64       `json:"confidence"`
	Source     string        `json:"source,omitempty"`
	Model      string        `json:"model,omitempty"`
	X          int           `json:"x,omitempty"`
	Y          int           `json:"y,omitempty"`
	W          int           `json:"w,omitempty"`
	H          int           `json:"h,omitempty"`
}

func FromPrediction(p *emotion.Prediction) *Detection {
	if p == nil {
		return nil
	}
	return &Detection{
		Emotion:    p.Label,
		Confidence: p.Confidence,
		Source:     p.Source,
		Model:      p.Model,
		X:          p.Box.Min.X,
		Y:          p.Box.Min.Y,
		W:          p.Box.Dx(),
		H:          p.Box.Dy(),
	}
}

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub fans events out to connected subscribers. Slow subscribers get
// dropped rather than backpressuring the loop.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

type client struct {
	conn *ws.Conn
	send chan []byte
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// ServeHTTP upgrades the request and registers the subscriber.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("Websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 32)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	log.Info("Subscriber connected", "remote", conn.RemoteAddr().String(), "total", n)

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Publish sends the event to every subscriber without blocking.
func (h *Hub) Publish(e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		log.Error("Failed to marshal event", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// subscriber cannot keep up
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Subscribers reports the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
			h.drop(c)
			return
		}
	}
}

// readLoop exists only to notice the peer going away.
func (h *Hub) readLoop(c *client) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.drop(c)
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}
