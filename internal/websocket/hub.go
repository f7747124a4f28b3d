package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/cx-tal-miterani/fare-booking/internal/events"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// Message is what subscribers of a booking receive
type Message struct {
	Type      events.Type  `json:"type"`
	BookingID string       `json:"bookingId"`
	Event     events.Event `json:"event"`
	Timestamp int64        `json:"timestamp"`
}

// Client is one websocket connection watching a booking
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	bookingID string
}

// Hub fans booking status changes out to the connections watching them
type Hub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	mu         sync.RWMutex
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// Run is the hub's main loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.bookingID] == nil {
				h.clients[client.bookingID] = make(map[*Client]bool)
			}
			h.clients[client.bookingID][client] = true
			h.mu.Unlock()
			h.logger.Debug("ws client registered", "booking_id", client.bookingID)

		case client := <-h.unregister:
			h.remove(client)

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("ws marshal failed", "error", err)
				continue
			}

			h.mu.RLock()
			targets := make([]*Client, 0, len(h.clients[message.BookingID]))
			for c := range h.clients[message.BookingID] {
				targets = append(targets, c)
			}
			h.mu.RUnlock()

			for _, client := range targets {
				select {
				case client.send <- data:
				default:
					h.remove(client)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.clients[client.bookingID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.clients, client.bookingID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, clients := range h.clients {
		for c := range clients {
			close(c.send)
		}
		delete(h.clients, id)
	}
}

// Publish queues the event for the booking's subscribers. It never blocks:
// when the queue is full the event is dropped for websocket delivery.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	msg := &Message{
		Type:      e.Type,
		BookingID: e.BookingID,
		Event:     e,
		Timestamp: time.Now().UnixMilli(),
	}
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast queue full, dropping event", "booking_id", e.BookingID, "type", e.Type)
	}
	return nil
}

// ClientCount returns the number of connections watching a booking
func (h *Hub) ClientCount(bookingID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[bookingID])
}

// ServeWS upgrades the request and subscribes the connection to bookingID.
// The caller is responsible for authorizing access to the booking.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, bookingID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "booking_id", bookingID, "error", err)
		return
	}
	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		bookingID: bookingID,
	}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump only consumes control frames so pongs and close are handled
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
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
