package ws

import "sync"

// Subscriber abstracts a connected signaling socket.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub tracks live signaling connections by connection id. Room membership
// lives in the signaling registry; the hub only resolves ids to sockets.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]Subscriber
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]Subscriber)}
}

// Register adds a connection under its id.
func (h *Hub) Register(connID string, client Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[connID] = client
}

// Unregister removes a connection.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, connID)
}

// Send delivers a payload to one connection. Failed sockets are dropped
// from the table; the read loop handles registry cleanup.
func (h *Hub) Send(connID string, payload []byte) {
	h.mu.RLock()
	client, ok := h.clients[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := client.Send(payload); err != nil {
		client.Close()
		h.mu.Lock()
		delete(h.clients, connID)
		h.mu.Unlock()
	}
}
