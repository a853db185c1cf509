// network/connection.go
package network

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 64 << 10
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

type Connection interface {
	Send(event string, payload interface{}) error
	Close() error
	RemoteAddr() net.Addr
	SetHeartbeat(interval time.Duration)
	ReadEnvelope() (*Envelope, error)
}

// WSConnection 写操作通过队列交给独立协程，Send 永不阻塞
type WSConnection struct {
	conn      *websocket.Conn
	send      chan []byte
	quit      chan struct{}
	closeOnce sync.Once
	heartbeat time.Duration
	mutex     sync.Mutex
}

// NewWSConnection starts the write pump. A positive heartbeat enables pings
// before the pump starts.
func NewWSConnection(conn *websocket.Conn, queueSize int, heartbeat time.Duration) *WSConnection {
	if queueSize <= 0 {
		queueSize = 64
	}
	c := &WSConnection{
		conn: conn,
		send: make(chan []byte, queueSize),
		quit: make(chan struct{}),
	}
	conn.SetReadLimit(maxMessageSize)
	if heartbeat > 0 {
		c.SetHeartbeat(heartbeat)
	}
	go c.writePump()
	return c
}

func (c *WSConnection) Send(event string, payload interface{}) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}

	select {
	case <-c.quit:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- frame:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *WSConnection) ReadEnvelope() (*Envelope, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		return Decode(data)
	}
}

// SetHeartbeat enables pings; the peer must answer within two intervals.
func (c *WSConnection) SetHeartbeat(interval time.Duration) {
	c.mutex.Lock()
	c.heartbeat = interval
	c.mutex.Unlock()

	c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(interval * 2))
	})
}

// Close flushes queued frames, sends a close frame and closes the socket.
func (c *WSConnection) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
	})
	return nil
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// writePump 独立协程，负责从 send 队列写出到 WS
func (c *WSConnection) writePump() {
	defer c.conn.Close()

	var ping <-chan time.Time
	c.mutex.Lock()
	if c.heartbeat > 0 {
		ticker := time.NewTicker(c.heartbeat)
		defer ticker.Stop()
		ping = ticker.C
	}
	c.mutex.Unlock()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.quit:
			for {
				select {
				case frame := <-c.send:
					if err := c.write(websocket.TextMessage, frame); err != nil {
						return
					}
				default:
					c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

func (c *WSConnection) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
