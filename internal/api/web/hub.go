package web

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
)

// Hub buffer sizes.
const (
	hubBroadcastBuffer = 256
	clientSendBuffer   = 64
)

// Hub manages websocket clients and broadcasts messages to them.
type Hub struct {
	ctx     context.Context
	clients map[*client]struct{}
	mu      sync.RWMutex

	register   chan *client
	unregister chan *client
	broadcast  chan Message

	done     chan struct{}
	stopOnce sync.Once
}

// client is one connected stream consumer.
type client struct {
	send chan []byte
}

func newClient() *client {
	return &client{send: make(chan []byte, clientSendBuffer)}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(ctx context.Context) *Hub {
	return &Hub{
		ctx:        logger.WithName(ctx, "hub"),
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, hubBroadcastBuffer),
		done:       make(chan struct{}),
	}
}

// Run starts the hub event loop and returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			// Close all remaining clients on shutdown.
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()

			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()

			logger.DebugKV(h.ctx, "Stream client connected", "total", total)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()

			logger.DebugKV(h.ctx, "Stream client disconnected", "total", total)

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop signals the hub to shut down. Safe to call multiple times.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
	})
}

// Broadcast queues msg for every client without blocking.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		logger.Warn(h.ctx, "Stream broadcast channel full, dropping message")
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// join registers c. It returns false when the hub is stopped.
func (h *Hub) join(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters c.
func (h *Hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.ErrorKV(h.ctx, "Unable to encode stream message", "error", err)

		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*client

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Client too slow, mark for eviction.
			slow = append(slow, c)
		}
	}

	for _, c := range slow {
		delete(h.clients, c)
		close(c.send)
		logger.Warn(h.ctx, "Stream client evicted, too slow")
	}
}
