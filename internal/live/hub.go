package live

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub manages connected websocket clients and fans events out to them.
type Hub struct {
	clients  map[*Connection]struct{}
	mutex    sync.RWMutex
	upgrader websocket.Upgrader
}

// NewHub creates a hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Hub{
		clients: make(map[*Connection]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	conn := NewConnection(ws)
	h.add(conn)
	defer h.remove(conn)

	go conn.WritePump()
	conn.ReadPump()
}

func (h *Hub) add(conn *Connection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) remove(conn *Connection) {
	h.mutex.Lock()
	delete(h.clients, conn)
	h.mutex.Unlock()

	conn.Close()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Broadcast sends ev to every connected client. Clients whose queue is full
// are disconnected.
func (h *Hub) Broadcast(ev Event) {
	h.mutex.RLock()
	var dropped []*Connection
	for conn := range h.clients {
		if err := conn.SendMessage(ev); err != nil {
			log.Printf("Error broadcasting %s to client: %v", ev.Type, err)
			dropped = append(dropped, conn)
		}
	}
	h.mutex.RUnlock()

	for _, conn := range dropped {
		h.remove(conn)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
}
