// ABOUTME: WebSocket connection wrapper satisfying the registry's Conn interface.
// ABOUTME: Serializes writes so the delivery worker and handlers never interleave frames.

package socket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn wraps a gorilla connection with a write lock. Gorilla allows only
// one concurrent writer, and both the read-loop handler and the delivery
// worker write to the same connection.
type wsConn struct {
	mu           sync.Mutex
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func newWSConn(ws *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{ws: ws, writeTimeout: writeTimeout}
}

func (c *wsConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	return c.ws.WriteJSON(v)
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
