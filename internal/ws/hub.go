package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/pushtisonawala/chat-app/internal/models"
	"github.com/pushtisonawala/chat-app/internal/observability"
)

const eventsRoutingKey = "ws_events.app"

// Hub is the process-wide realtime state: the connection registry, the room
// table and the presence broadcaster. It is the sole synchronization point
// for connection-event handlers.
type Hub struct {
	registry *Registry
	rooms    *Rooms

	// presenceMu holds across a registry mutation and its derived broadcast
	// so a presence broadcast can never race ahead of the mutation that
	// triggered it.
	presenceMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		rooms:    NewRooms(),
	}
}

// Registry exposes the connection registry for lookups.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Rooms exposes the room table for lookups.
func (h *Hub) Rooms() *Rooms {
	return h.rooms
}

// Register records a new connection and broadcasts the online-user list when
// the owning user came online. Registering a known connection is a no-op.
func (h *Hub) Register(c *Conn) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	cameOnline, online := h.registry.Register(c)
	if cameOnline {
		h.emitPresenceLocked(online)
	}
}

// Unregister removes a connection, drops it from every room it had joined
// and broadcasts the online-user list when its user went offline. Unknown
// connection ids are a no-op.
func (h *Hub) Unregister(connID string) {
	h.presenceMu.Lock()
	defer h.presenceMu.Unlock()

	c, wentOffline, online := h.registry.Unregister(connID)
	if c == nil {
		return
	}
	h.rooms.DropConn(connID)
	if wentOffline {
		h.emitPresenceLocked(online)
	}
}

// JoinGroup subscribes the connection to a group room.
func (h *Hub) JoinGroup(groupID int, c *Conn) {
	h.rooms.Join(groupID, c)
}

// LeaveGroup unsubscribes the connection from a group room.
func (h *Hub) LeaveGroup(groupID int, connID string) {
	h.rooms.Leave(groupID, connID)
}

// EmitToUser sends the event to every live connection of the user. An
// offline user receives nothing; the message stays discoverable via the next
// history fetch.
func (h *Hub) EmitToUser(userID int, event models.SocketEvent) {
	h.emit(h.registry.ConnectionsFor(userID), event)
}

// EmitToRoom sends the event to every member connection of the room, at most
// once per connection.
func (h *Hub) EmitToRoom(roomID int, event models.SocketEvent) {
	h.emit(h.rooms.MembersOf(roomID), event)
}

func (h *Hub) emit(conns []*Conn, event models.SocketEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("marshal socket event: %v", err)
		return
	}
	for _, c := range conns {
		if err := c.write(payload); err != nil {
			log.Printf("websocket write error: %v", err)
			c.close()
			h.Unregister(c.ID)
			publishWSEvent(c, "ws_error", err.Error())
			observability.IncWSEvent("ws_error")
		}
	}
}

// emitPresenceLocked broadcasts the full online-user list to every live
// connection. Caller holds the presence lock. Connections that fail the
// write are unregistered in place, re-broadcasting the updated list.
func (h *Hub) emitPresenceLocked(online []int) {
	for {
		observability.IncPresenceBroadcast()
		payload, err := json.Marshal(models.SocketEvent{Type: models.EventOnlineUsers, UserIDs: online})
		if err != nil {
			log.Printf("marshal presence event: %v", err)
			return
		}

		var failed []*Conn
		for _, c := range h.registry.All() {
			if err := c.write(payload); err != nil {
				log.Printf("websocket write error: %v", err)
				failed = append(failed, c)
			}
		}
		if len(failed) == 0 {
			return
		}

		changed := false
		for _, c := range failed {
			c.close()
			removed, wentOffline, snapshot := h.registry.Unregister(c.ID)
			if removed == nil {
				continue
			}
			h.rooms.DropConn(c.ID)
			publishWSEvent(c, "ws_error", "presence write failed")
			observability.IncWSEvent("ws_error")
			if wentOffline {
				changed = true
				online = snapshot
			}
		}
		if !changed {
			return
		}
	}
}

func publishWSEvent(c *Conn, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     c.ID,
			"duration_ms": time.Since(c.CreatedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   c.UserID,
			"device_id": c.DeviceID,
			"ip":        c.IP,
		},
	}

	headers := observability.BuildHeaders(c.RequestID, c.TraceID)
	_ = observability.PublishEvent(context.Background(), eventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, headers)
}
