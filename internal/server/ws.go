package server

import (
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Hub fans scene frames out to websocket clients. Binary frames go through
// a one-deep slot per client, so a slow client skips frames instead of
// holding up the frame loop. Text messages are kept per kind; every client
// gets the latest of each kind on connect and whenever it changes.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	texts   map[string]textMessage
	seq     uint64
}

type textMessage struct {
	seq  uint64
	data []byte
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	wake chan struct{}
	done chan struct{}

	mu    sync.Mutex
	frame []byte
	sent  map[string]uint64
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		texts:   make(map[string]textMessage),
	}
}

// PublishFrame offers a binary frame to every client. frame is copied, so
// the caller may reuse it.
func (h *Hub) PublishFrame(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		return
	}
	data := append([]byte(nil), frame...)
	for c := range h.clients {
		c.offer(data)
	}
}

// PublishText replaces the latest message of kind and notifies every client.
func (h *Hub) PublishText(kind string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	h.texts[kind] = textMessage{seq: h.seq, data: msg}
	for c := range h.clients {
		c.signal()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade error: %v", err)
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		sent: make(map[string]uint64),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	c.signal()

	go c.writeLoop()

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()

	close(c.done)
	conn.Close()
}

func (c *client) offer(frame []byte) {
	c.mu.Lock()
	c.frame = frame
	c.mu.Unlock()
	c.signal()
}

func (c *client) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// pendingTexts returns the text messages this client has not seen yet, oldest first.
func (c *client) pendingTexts() []textMessage {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	var pending []textMessage
	for kind, msg := range c.hub.texts {
		if msg.seq > c.sent[kind] {
			pending = append(pending, msg)
			c.sent[kind] = msg.seq
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })
	return pending
}

func (c *client) takeFrame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	f := c.frame
	c.frame = nil
	return f
}

func (c *client) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}

		for _, msg := range c.pendingTexts() {
			if !c.write(websocket.TextMessage, msg.data) {
				return
			}
		}
		if frame := c.takeFrame(); frame != nil {
			if !c.write(websocket.BinaryMessage, frame) {
				return
			}
		}
	}
}

func (c *client) write(messageType int, data []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		log.Printf("websocket write error: %v", err)
		c.conn.Close()
		return false
	}
	return true
}
