package ws

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry exclusively owns the connection-to-user mapping. All operations
// are total: registering a known pair or unregistering an unknown connection
// is a no-op, never an error.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*Conn
	byUser map[int]map[string]*Conn
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]*Conn),
		byUser: make(map[int]map[string]*Conn),
	}
}

// Register records the connection under its user. It reports whether the
// user came online and, if so, returns the online-user snapshot taken under
// the same lock, so a presence broadcast can never observe state older than
// the mutation that produced it.
func (r *Registry) Register(c *Conn) (bool, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byConn[c.ID]; ok {
		return false, nil
	}
	r.byConn[c.ID] = c

	conns, ok := r.byUser[c.UserID]
	if !ok {
		conns = make(map[string]*Conn)
		r.byUser[c.UserID] = conns
	}
	cameOnline := len(conns) == 0
	conns[c.ID] = c

	if !cameOnline {
		return false, nil
	}
	return true, r.onlineLocked()
}

// Unregister removes a connection. It returns the removed connection,
// whether its user went offline, and in that case the online snapshot taken
// under the same lock. Unknown connection ids are a no-op.
func (r *Registry) Unregister(connID string) (*Conn, bool, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byConn[connID]
	if !ok {
		return nil, false, nil
	}
	delete(r.byConn, connID)

	conns := r.byUser[c.UserID]
	delete(conns, connID)
	if len(conns) > 0 {
		return c, false, nil
	}
	delete(r.byUser, c.UserID)
	return c, true, r.onlineLocked()
}

// ConnectionsFor returns the live connections of a user, empty when offline.
func (r *Registry) ConnectionsFor(userID int) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byUser[userID])
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// OnlineUsers returns the distinct user ids with at least one connection.
func (r *Registry) OnlineUsers() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onlineLocked()
}

// All returns every live connection.
func (r *Registry) All() []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.byConn)
}

func (r *Registry) onlineLocked() []int {
	online := lo.Keys(r.byUser)
	sort.Ints(online)
	return online
}
