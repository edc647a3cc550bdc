package websocket

import (
	"errors"
	"sync"
	"time"
)

// MockConnection is an in-memory Connection. ReadMessage blocks until the
// connection is closed.
type MockConnection struct {
	mu sync.Mutex

	WrittenMessages []MockMessage
	Closed          bool
	ReadLimit       int64
	ReadDeadline    time.Time
	WriteDeadline   time.Time
	PongHandler     func(string) error
	RemoteAddress   string
	WriteErr        error

	closed chan struct{}
	wrote  chan struct{}
}

// MockMessage is one frame written to a MockConnection.
type MockMessage struct {
	Type int
	Data []byte
}

func NewMockConnection() *MockConnection {
	return &MockConnection{
		RemoteAddress: "127.0.0.1:8080",
		closed:        make(chan struct{}),
		wrote:         make(chan struct{}, 64),
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return errors.New("connection closed")
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenMessages = append(m.WrittenMessages, MockMessage{Type: messageType, Data: data})
	select {
	case m.wrote <- struct{}{}:
	default:
	}
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	<-m.closed
	return 0, nil, errors.New("connection closed")
}

func (m *MockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.Closed {
		m.Closed = true
		close(m.closed)
	}
	return nil
}

func (m *MockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadDeadline = t
	return nil
}

func (m *MockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WriteDeadline = t
	return nil
}

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RemoteAddress
}

// Messages returns a copy of the frames written so far.
func (m *MockConnection) Messages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockMessage, len(m.WrittenMessages))
	copy(out, m.WrittenMessages)
	return out
}

func (m *MockConnection) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}
