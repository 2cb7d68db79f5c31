package ws

import (
	"sync"

	"github.com/samber/lo"
)

// Rooms tracks which connections subscribe to which group rooms. Membership
// is per connection, not per user: two tabs in the same group hold two
// independent entries. Rooms are created on first join and dropped when the
// last member leaves.
type Rooms struct {
	mu      sync.RWMutex
	members map[int]map[string]*Conn
	byConn  map[string]map[int]struct{} // reverse index for implicit cleanup
}

// NewRooms creates an empty room table.
func NewRooms() *Rooms {
	return &Rooms{
		members: make(map[int]map[string]*Conn),
		byConn:  make(map[string]map[int]struct{}),
	}
}

// Join adds the connection to the room; joining twice is a no-op.
func (m *Rooms) Join(roomID int, c *Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.members[roomID]
	if !ok {
		room = make(map[string]*Conn)
		m.members[roomID] = room
	}
	room[c.ID] = c

	rooms, ok := m.byConn[c.ID]
	if !ok {
		rooms = make(map[int]struct{})
		m.byConn[c.ID] = rooms
	}
	rooms[roomID] = struct{}{}
}

// Leave removes the connection from the room; absent membership is a no-op.
func (m *Rooms) Leave(roomID int, connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaveLocked(roomID, connID)
}

// MembersOf returns the connections currently subscribed to the room.
func (m *Rooms) MembersOf(roomID int) []*Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Values(m.members[roomID])
}

// RoomsOf returns the room ids the connection has joined.
func (m *Rooms) RoomsOf(connID string) []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.byConn[connID])
}

// DropConn removes the connection from every room it had joined. Called on
// unregister so network-level disconnects cannot leak membership.
func (m *Rooms) DropConn(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID := range m.byConn[connID] {
		m.leaveLocked(roomID, connID)
	}
}

func (m *Rooms) leaveLocked(roomID int, connID string) {
	if room, ok := m.members[roomID]; ok {
		delete(room, connID)
		if len(room) == 0 {
			delete(m.members, roomID)
		}
	}
	if rooms, ok := m.byConn[connID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(m.byConn, connID)
		}
	}
}
