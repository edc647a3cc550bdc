package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Connection is the part of *websocket.Conn the client pumps use. Tests
// substitute a mock.
type Connection interface {
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() string
}

// connWrapper adapts *websocket.Conn, whose RemoteAddr returns a net.Addr.
type connWrapper struct {
	*websocket.Conn
}

// WrapConn adapts a gorilla connection to Connection.
func WrapConn(conn *websocket.Conn) Connection {
	return connWrapper{Conn: conn}
}

func (c connWrapper) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
