// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"sync"

	"github.com/wfunc/nightwatch/logger"
	"github.com/wfunc/nightwatch/network"
)

var (
	ErrConnectionNotFound = errors.New("connection not found")
)

// Hub 维护 connectionID -> 连接，按连接逐个投递
type Hub struct {
	connections map[string]network.Connection
	mutex       sync.RWMutex
	onDrop      func(connectionID, event string)
}

type Option func(*Hub)

// WithDropHook is called whenever a recipient's send queue is full.
func WithDropHook(fn func(connectionID, event string)) Option {
	return func(h *Hub) { h.onDrop = fn }
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		connections: make(map[string]network.Connection),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) Add(connectionID string, conn network.Connection) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.connections[connectionID] = conn
}

func (h *Hub) Remove(connectionID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.connections, connectionID)
}

func (h *Hub) Len() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.connections)
}

func (h *Hub) get(connectionID string) (network.Connection, bool) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	conn, ok := h.connections[connectionID]
	return conn, ok
}

// Send enqueues one event for one connection. It never blocks on a slow peer.
func (h *Hub) Send(connectionID, event string, payload interface{}) error {
	conn, ok := h.get(connectionID)
	if !ok {
		return ErrConnectionNotFound
	}

	err := conn.Send(event, payload)
	if errors.Is(err, network.ErrSendQueueFull) {
		logger.Log.Warnw("Dropping message for slow connection", "connection_id", connectionID, "event", event)
		if h.onDrop != nil {
			h.onDrop(connectionID, event)
		}
	}
	return err
}

// Close terminates a connection after its queued messages are flushed.
// The connection stays in the hub until the read loop calls Remove.
func (h *Hub) Close(connectionID string) error {
	conn, ok := h.get(connectionID)
	if !ok {
		return ErrConnectionNotFound
	}
	return conn.Close()
}

// CloseAll 服务器关闭时调用
func (h *Hub) CloseAll() {
	h.mutex.RLock()
	conns := make([]network.Connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.mutex.RUnlock()

	for _, c := range conns {
		c.Close()
	}
}
