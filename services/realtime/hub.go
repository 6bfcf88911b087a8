package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/dating"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Event types
const (
	EventMatch   = "match"
	EventMessage = "message"
	EventError   = "error"
)

var ErrHubClosed = errors.New("hub closed")

type (
	// Event is pushed to clients as a JSON text frame.
	Event struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload"`
	}

	// Inbound is a frame sent by a client. Only chat messages are accepted.
	Inbound struct {
		Type    string `json:"type"`
		MatchID string `json:"match_id"`
		Body    string `json:"body"`
	}

	// InboundHandler handles the frames of userID's connection.
	InboundHandler func(ctx context.Context, userID string, in Inbound) error

	delivery struct {
		userID string
		data   []byte
	}

	// Hub fans events out to the websocket connections of each user.
	// The client map is only touched by the Run goroutine.
	Hub struct {
		logger     core.Logger
		clients    map[string]map[*client]struct{}
		register   chan *client
		unregister chan *client
		deliver    chan delivery
		count      chan chan int
		quit       chan struct{}
		done       chan struct{}
	}

	client struct {
		hub    *Hub
		conn   *websocket.Conn
		userID string
		send   chan []byte
	}
)

var _ dating.Notifier = (*Hub)(nil) // interface compliance check

func NewHub(logger core.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[string]map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		deliver:    make(chan delivery, 256),
		count:      make(chan chan int),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run owns the client map until Close is called.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			conns, ok := h.clients[c.userID]
			if !ok {
				conns = make(map[*client]struct{})
				h.clients[c.userID] = conns
			}
			conns[c] = struct{}{}

		case c := <-h.unregister:
			h.drop(c)

		case d := <-h.deliver:
			for c := range h.clients[d.userID] {
				select {
				case c.send <- d.data:
				default: // slow consumer
					h.drop(c)
				}
			}

		case reply := <-h.count:
			n := 0
			for _, conns := range h.clients {
				n += len(conns)
			}
			reply <- n

		case <-h.quit:
			for _, conns := range h.clients {
				for c := range conns {
					h.drop(c)
				}
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok = conns[c]; !ok {
		return
	}
	delete(conns, c)
	close(c.send)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
}

// Close disconnects every client and stops Run.
func (h *Hub) Close() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

// Connections returns the number of open connections.
func (h *Hub) Connections() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.quit:
		return 0
	}
}

func (h *Hub) NotifyMatch(userID string, m dating.Match) {
	h.push(userID, Event{Type: EventMatch, Payload: m})
}

func (h *Hub) NotifyMessage(userID string, msg dating.Message) {
	h.push(userID, Event{Type: EventMessage, Payload: msg})
}

func (h *Hub) push(userID string, ev Event) {
	if userID == "" {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error(fmt.Sprintf("marshalling %s event: %v", ev.Type, err), err)
		return
	}
	select {
	case h.deliver <- delivery{userID: userID, data: data}:
	case <-h.quit:
	}
}

// Serve attaches conn to userID and blocks until the connection is closed.
// Inbound frames are passed to handle; its errors are sent back as error events.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, userID string, handle InboundHandler) error {
	c := &client{hub: h, conn: conn, userID: userID, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-h.quit:
		_ = conn.Close()
		return ErrHubClosed
	}

	go c.writePump()
	c.readPump(ctx, handle)
	return nil
}

func (c *client) readPump(ctx context.Context, handle InboundHandler) {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.quit:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn(fmt.Sprintf("websocket closed unexpectedly: %v", err))
			}
			return
		}
		if handle == nil {
			continue
		}
		if err := handle(ctx, c.userID, in); err != nil {
			c.hub.push(c.userID, Event{Type: EventError, Payload: map[string]string{"error": err.Error()}})
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
