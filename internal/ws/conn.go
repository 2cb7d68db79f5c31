package ws

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// socket is the subset of *websocket.Conn the hub writes to.
type socket interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Conn is one live websocket connection owned by a user. A user may own any
// number of simultaneous connections (tabs, devices).
type Conn struct {
	ID        string
	UserID    int
	CreatedAt time.Time

	// transport metadata carried on connect/disconnect/error events
	DeviceID  string
	IP        string
	RequestID string
	TraceID   string

	sock socket
	mu   sync.Mutex // gorilla allows a single concurrent writer
}

// NewConn wraps a websocket connection for a user.
func NewConn(userID int, sock socket) *Conn {
	return &Conn{
		ID:        newConnID(),
		UserID:    userID,
		CreatedAt: time.Now(),
		sock:      sock,
	}
}

func (c *Conn) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sock.WriteMessage(websocket.TextMessage, payload)
}

func (c *Conn) close() {
	_ = c.sock.Close()
}

func newConnID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
