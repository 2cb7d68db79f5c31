package models

import "testing"

func intPtr(v int) *int { return &v }

func TestSenderTagging(t *testing.T) {
	human := Message{ID: 1, SenderID: intPtr(3)}
	if s := human.Sender(); s.Kind != SenderHuman || s.UserID != 3 {
		t.Fatalf("expected human sender 3, got %+v", s)
	}

	assistant := Message{ID: 2, IsAIMessage: true}
	if s := assistant.Sender(); s.Kind != SenderAssistant {
		t.Fatalf("expected assistant sender, got %+v", s)
	}

	// nil sender id is always the assistant, even without the flag
	orphan := Message{ID: 3}
	if s := orphan.Sender(); s.Kind != SenderAssistant {
		t.Fatalf("expected assistant for nil sender, got %+v", s)
	}
}

func TestNewMessagePayloadSubstitutesAssistantIdentity(t *testing.T) {
	p := NewMessagePayload(Message{ID: 1, GroupID: intPtr(7), Text: "hi", IsAIMessage: true})
	if p.Sender.FullName != AssistantName {
		t.Fatalf("expected %q, got %q", AssistantName, p.Sender.FullName)
	}
	if p.Sender.Avatar != AssistantAvatar {
		t.Fatalf("expected assistant avatar")
	}
	if p.Sender.ID != nil {
		t.Fatalf("assistant payload must not carry a user id")
	}
}

func TestNewMessagePayloadKeepsHumanSender(t *testing.T) {
	p := NewMessagePayload(Message{ID: 1, SenderID: intPtr(3), Text: "hi"})
	if p.Sender.ID == nil || *p.Sender.ID != 3 {
		t.Fatalf("expected sender id 3, got %+v", p.Sender)
	}
	if p.Sender.FullName != "" {
		t.Fatalf("human sender identity is resolved client side, got %q", p.Sender.FullName)
	}
}
