package bridge

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/rfxcom/internal/logging"
	"github.com/muurk/rfxcom/internal/metrics"
)

// sendBuffer is how many envelopes a client may fall behind before it is
// disconnected
const sendBuffer = 64

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
}

// Hub fans envelopes out to every subscribed websocket client
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	metrics *metrics.DriverMetrics
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.DriverMetrics) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		metrics: m,
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.BridgeClients.Inc()
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)

	if h.metrics != nil {
		h.metrics.BridgeClients.Dec()
	}
}

// Broadcast sends env to every client. Clients whose buffer is full are
// dropped rather than allowed to stall the transceiver.
func (h *Hub) Broadcast(env Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logging.Error("Failed to marshal envelope", zap.String("kind", env.Kind), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("Dropping slow event client", zap.String("remote_addr", c.remote))
			h.removeLocked(c)
		}
	}
}

// Len returns the number of subscribed clients
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
