package ws

import (
	"sync"

	"github.com/gorilla/websocket"
)

// SocketConn оборачивает *websocket.Conn мьютексом на запись:
// gorilla не допускает конкурентных writer'ов, а в канал пишут и
// read-цикл сессии, и рассылки из Hub.
type SocketConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewSocketConn(conn *websocket.Conn) *SocketConn {
	return &SocketConn{conn: conn}
}

func (c *SocketConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *SocketConn) ReadMessage() (int, []byte, error) {
	return c.conn.ReadMessage()
}

func (c *SocketConn) Close() error {
	return c.conn.Close()
}
