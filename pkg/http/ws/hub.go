package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Hub fans run events out to monitor connections. A watcher follows a single
// run, or every run when it registers with uuid.Nil. Traffic is one-way: the
// server pushes, clients only keep the socket alive.
type Hub struct {
	mu       sync.RWMutex
	watchers map[*Connection]uuid.UUID // connection -> watched run (uuid.Nil = all)
	logger   zerolog.Logger
}

// NewHub creates a monitor hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		watchers: make(map[*Connection]uuid.UUID),
		logger:   logger,
	}
}

// Register adds a watcher for the given run. Pass uuid.Nil to watch all runs.
func (h *Hub) Register(conn *Connection, runID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.watchers[conn] = runID
	h.logger.Info().Str("run_id", runID.String()).Int("watchers", len(h.watchers)).Msg("watcher registered")
}

// Unregister removes a watcher and closes its connection.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.watchers[conn]; exists {
		delete(h.watchers, conn)
		conn.Close()
		h.logger.Info().Int("watchers", len(h.watchers)).Msg("watcher unregistered")
	}
}

// BroadcastRun delivers a message to everyone watching the run, plus the
// watch-all connections.
func (h *Hub) BroadcastRun(runID uuid.UUID, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, watched := range h.watchers {
		if watched != runID && watched != uuid.Nil {
			continue
		}
		if err := conn.Send(msg); err != nil {
			h.logger.Warn().Err(err).Str("run_id", runID.String()).Msg("watcher send failed")
		}
	}
}

// WatcherCount reports the number of registered connections.
func (h *Hub) WatcherCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers)
}

// Keepalive tuning. Monitors never send data frames, so the server pings
// ahead of the read deadline to keep healthy idle connections open.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Connection wraps a WebSocket with a buffered send queue.
type Connection struct {
	conn         *websocket.Conn
	sendCh       chan Message
	pingInterval time.Duration
	mu           sync.Mutex
	closed       bool
	logger       zerolog.Logger
}

// NewConnection wraps a WebSocket connection.
func NewConnection(conn *websocket.Conn, logger zerolog.Logger) *Connection {
	return &Connection{
		conn:         conn,
		sendCh:       make(chan Message, 256),
		pingInterval: pingPeriod,
		logger:       logger,
	}
}

// Send queues a message for delivery.
func (c *Connection) Send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	select {
	case c.sendCh <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close shuts down the connection.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.sendCh)
	if c.conn != nil {
		c.conn.Close()
	}
}

// WritePump drains the send queue onto the socket and pings the peer while
// the queue is idle.
func (c *Connection) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ReadPump discards inbound frames and keeps the read deadline fresh. It
// returns when the peer disconnects.
func (c *Connection) ReadPump() {
	defer c.conn.Close()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			return
		}
	}
}

var (
	ErrConnectionClosed = &Error{Code: "connection_closed", Message: "Connection is closed"}
	ErrSendQueueFull    = &Error{Code: "send_queue_full", Message: "Send queue is full"}
)

type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}
