package ws

import (
	"fmt"
	"sync"

	"github.com/pushtisonawala/chat-app/internal/models"
)

// Dispatcher fans persisted messages out to live connections. Callers invoke
// it only after a successful persistence write; emits for one conversation
// are serialized so delivery order matches persistence-completion order even
// when concurrent senders hit the same conversation.
type Dispatcher struct {
	hub *Hub

	mu    sync.Mutex
	convs map[string]*sync.Mutex
}

// NewDispatcher builds a Dispatcher over the hub.
func NewDispatcher(hub *Hub) *Dispatcher {
	return &Dispatcher{hub: hub, convs: make(map[string]*sync.Mutex)}
}

// DispatchDirect emits a persisted direct message to the recipient's and the
// sender's connections, so other open tabs of the sender see the sent
// message. An offline recipient receives nothing.
func (d *Dispatcher) DispatchDirect(msg models.Message) {
	if msg.SenderID == nil || msg.ReceiverID == nil {
		return
	}
	lock := d.convLock(directKey(*msg.SenderID, *msg.ReceiverID))
	lock.Lock()
	defer lock.Unlock()

	payload := models.NewMessagePayload(msg)
	event := models.SocketEvent{Type: models.EventNewMessage, Message: &payload}
	d.hub.EmitToUser(*msg.ReceiverID, event)
	if *msg.SenderID != *msg.ReceiverID {
		d.hub.EmitToUser(*msg.SenderID, event)
	}
}

// DispatchGroup emits a persisted group message to every member connection
// of the group room, at most once per connection.
func (d *Dispatcher) DispatchGroup(msg models.Message) {
	if msg.GroupID == nil {
		return
	}
	lock := d.convLock(groupKey(*msg.GroupID))
	lock.Lock()
	defer lock.Unlock()

	payload := models.NewMessagePayload(msg)
	d.hub.EmitToRoom(*msg.GroupID, models.SocketEvent{Type: models.EventNewGroupMessage, Message: &payload})
}

// NotifyTyping broadcasts the assistant typing indicator to the room. Typing
// signals are ephemeral: no delivery guarantee, no ordering lock.
func (d *Dispatcher) NotifyTyping(groupID int, typing bool) {
	d.hub.EmitToRoom(groupID, models.SocketEvent{Type: models.EventAITyping, GroupID: groupID, Typing: &typing})
}

// NotifyAIMessage emits a persisted assistant message to the room with the
// assistant display identity substituted for the sentinel sender.
func (d *Dispatcher) NotifyAIMessage(msg models.Message) {
	if msg.GroupID == nil {
		return
	}
	lock := d.convLock(groupKey(*msg.GroupID))
	lock.Lock()
	defer lock.Unlock()

	payload := models.NewMessagePayload(msg)
	d.hub.EmitToRoom(*msg.GroupID, models.SocketEvent{Type: models.EventAIMessage, Message: &payload})
}

// NotifyAIError broadcasts a room-visible assistant failure notice. The
// notice is not persisted.
func (d *Dispatcher) NotifyAIError(groupID int, message string) {
	d.hub.EmitToRoom(groupID, models.SocketEvent{Type: models.EventAIError, GroupID: groupID, Error: message})
}

func (d *Dispatcher) convLock(key string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.convs[key]
	if !ok {
		lock = &sync.Mutex{}
		d.convs[key] = lock
	}
	return lock
}

func directKey(a, b int) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("direct:%d:%d", a, b)
}

func groupKey(groupID int) string {
	return fmt.Sprintf("group:%d", groupID)
}
