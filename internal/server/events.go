package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

const (
	writeWait       = 10 * time.Second
	maxClientFrame  = 512
	clientQueueSize = 16
	broadcastQueue  = 64
)

// Event is the message pushed to websocket clients.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

type eventClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans model lifecycle events out to connected websocket clients. It
// never touches model state.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*eventClient]struct{}
	clientsMu  sync.RWMutex
	broadcast  chan []byte
	stop       chan struct{}
	stopOnce   sync.Once
	pingPeriod time.Duration
	gauge      prometheus.Gauge
}

// NewHub creates a hub that pings clients every pingPeriod. gauge tracks the
// number of connected clients and may be nil.
func NewHub(pingPeriod time.Duration, gauge prometheus.Gauge) *Hub {
	return &Hub{
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:    make(map[*eventClient]struct{}),
		broadcast:  make(chan []byte, broadcastQueue),
		stop:       make(chan struct{}),
		pingPeriod: pingPeriod,
		gauge:      gauge,
	}
}

// Run delivers published events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case msg := <-h.broadcast:
			h.fanOut(msg)
		case <-h.stop:
			return
		}
	}
}

// Stop ends Run and disconnects every client.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)

		h.clientsMu.Lock()
		for c := range h.clients {
			h.dropLocked(c)
		}
		h.clientsMu.Unlock()
	})
}

// Publish queues an event for broadcast. Events are dropped when the queue is
// full.
func (h *Hub) Publish(eventType string, payload any) {
	data, err := json.Marshal(Event{Type: eventType, Timestamp: time.Now().UTC(), Data: payload})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("Failed to marshal event")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		log.Warn().Str("type", eventType).Msg("Event queue full, dropping event")
	}
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	c := &eventClient{conn: conn, send: make(chan []byte, clientQueueSize)}

	h.clientsMu.Lock()
	select {
	case <-h.stop:
		h.clientsMu.Unlock()
		conn.Close()
		return
	default:
	}
	h.clients[c] = struct{}{}
	if h.gauge != nil {
		h.gauge.Inc()
	}
	h.clientsMu.Unlock()

	log.Debug().Str("remote", r.RemoteAddr).Msg("Event client connected")

	go h.writePump(c)
	h.readPump(c)

	h.remove(c)
	log.Debug().Str("remote", r.RemoteAddr).Msg("Event client disconnected")
}

func (h *Hub) fanOut(msg []byte) {
	var slow []*eventClient

	h.clientsMu.RLock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.clientsMu.RUnlock()

	for _, c := range slow {
		log.Warn().Msg("Event client too slow, disconnecting")
		h.remove(c)
	}
}

func (h *Hub) remove(c *eventClient) {
	h.clientsMu.Lock()
	h.dropLocked(c)
	h.clientsMu.Unlock()
}

// dropLocked requires clientsMu held for writing.
func (h *Hub) dropLocked(c *eventClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if h.gauge != nil {
		h.gauge.Dec()
	}
}

func (h *Hub) pongWait() time.Duration {
	return h.pingPeriod * 10 / 9
}

// readPump discards client frames and keeps the read deadline fresh on pong.
func (h *Hub) readPump(c *eventClient) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxClientFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(h.pongWait()))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("Event client read failed")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *eventClient) {
	ticker := time.NewTicker(h.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
