package models

import "time"

// Assistant display identity substituted for assistant-authored messages.
const (
	AssistantName   = "Gemini AI"
	AssistantAvatar = "https://api.dicebear.com/7.x/bottts/svg?seed=gemini&backgroundColor=d1d5db&eyes=happy&mouth=smile"
)

// Message is a persisted chat message, either direct (ReceiverID set) or
// group (GroupID set). Exactly one of the two is non-nil; the database
// enforces this with a CHECK constraint. Assistant-authored messages carry a
// nil SenderID and IsAIMessage true.
type Message struct {
	ID             int       `db:"id" json:"id"`
	SenderID       *int      `db:"sender_id" json:"sender_id,omitempty"`
	ReceiverID     *int      `db:"receiver_id" json:"receiver_id,omitempty"`
	GroupID        *int      `db:"group_id" json:"group_id,omitempty"`
	Text           string    `db:"text" json:"text"`
	IsGroupMessage bool      `db:"is_group_message" json:"is_group_message"`
	IsAIMessage    bool      `db:"is_ai_message" json:"is_ai_message"`
	MentionedAI    bool      `db:"mentioned_ai" json:"mentioned_ai"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SenderKind tags the author of a message.
type SenderKind int

const (
	SenderHuman SenderKind = iota
	SenderAssistant
)

// Sender is the tagged author variant: a human user id or the assistant.
type Sender struct {
	Kind   SenderKind
	UserID int
}

// Sender returns the tagged author of the message.
func (m Message) Sender() Sender {
	if m.IsAIMessage || m.SenderID == nil {
		return Sender{Kind: SenderAssistant}
	}
	return Sender{Kind: SenderHuman, UserID: *m.SenderID}
}

// SenderInfo is the author identity carried on socket payloads. Assistant
// messages get the fixed display identity instead of a user id.
type SenderInfo struct {
	ID       *int   `json:"id,omitempty"`
	FullName string `json:"full_name,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// MessagePayload is the populated message shape emitted over websockets.
type MessagePayload struct {
	Message
	Sender SenderInfo `json:"sender"`
}

// NewMessagePayload populates the outbound shape for a persisted message.
func NewMessagePayload(m Message) MessagePayload {
	p := MessagePayload{Message: m}
	if m.Sender().Kind == SenderAssistant {
		p.Sender = SenderInfo{FullName: AssistantName, Avatar: AssistantAvatar}
		return p
	}
	p.Sender = SenderInfo{ID: m.SenderID}
	return p
}
