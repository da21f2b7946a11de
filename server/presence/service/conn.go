package service

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the transport seam the gateway writes through. Production uses the
// websocket wrapper below; tests substitute in-memory connections.
type Conn interface {
	ID() string
	WriteJSON(v any) error
	Close() error
}

type wsConn struct {
	id   string
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSConn(conn *websocket.Conn) Conn {
	return &wsConn{id: newSocketID(), conn: conn}
}

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

func newSocketID() string {
	b := make([]byte, 12)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// outbound frames every server-to-client message.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
