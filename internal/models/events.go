package models

// Event names emitted to connected clients.
const (
	EventOnlineUsers     = "getOnlineUsers"
	EventNewMessage      = "newMessage"
	EventNewGroupMessage = "newGroupMessage"
	EventAITyping        = "aiTyping"
	EventAIMessage       = "receiveAIMessage"
	EventAIError         = "aiError"
)

// Frame types accepted from clients on an open connection.
const (
	FrameJoinGroup  = "joinGroup"
	FrameLeaveGroup = "leaveGroup"
)

// SocketEvent is the envelope written to websocket connections.
type SocketEvent struct {
	Type    string          `json:"type"`
	UserIDs []int           `json:"user_ids,omitempty"`
	Message *MessagePayload `json:"message,omitempty"`
	GroupID int             `json:"group_id,omitempty"`
	Typing  *bool           `json:"typing,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// ClientFrame is a frame read from a websocket connection.
type ClientFrame struct {
	Type    string `json:"type"`
	GroupID int    `json:"group_id"`
}
