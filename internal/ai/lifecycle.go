package ai

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pushtisonawala/chat-app/internal/models"
	"github.com/pushtisonawala/chat-app/internal/observability"
	"github.com/pushtisonawala/chat-app/internal/repositories"
)

// ErrorNotice is the room-visible text broadcast when generation fails.
const ErrorNotice = "Gemini AI could not reply right now. Please try again."

// RoomNotifier delivers assistant lifecycle events to a group room.
type RoomNotifier interface {
	NotifyTyping(groupID int, typing bool)
	NotifyAIMessage(msg models.Message)
	NotifyAIError(groupID int, message string)
}

// Assistant coordinates the mention → typing → generate → reply lifecycle.
// Each in-flight request carries its own typing lifecycle: the room's typing
// indicator is cleared only when the last outstanding request for that room
// completes, so rapid successive mentions cannot clobber each other.
type Assistant struct {
	responder    Responder
	messages     repositories.MessageRepository
	notifier     RoomNotifier
	timeout      time.Duration
	historyLimit int

	mu       sync.Mutex
	inflight map[int]int // groupID → outstanding requests

	wg sync.WaitGroup
}

// NewAssistant builds the mention lifecycle coordinator.
func NewAssistant(responder Responder, messages repositories.MessageRepository, notifier RoomNotifier, timeout time.Duration, historyLimit int) *Assistant {
	return &Assistant{
		responder:    responder,
		messages:     messages,
		notifier:     notifier,
		timeout:      timeout,
		historyLimit: historyLimit,
		inflight:     make(map[int]int),
	}
}

// HandleMention starts an assistant turn when the group message mentions the
// assistant. The human message must already be persisted and dispatched;
// nothing in this path can fail it. Reports whether a turn was started.
func (a *Assistant) HandleMention(msg models.Message) bool {
	if msg.GroupID == nil || msg.IsAIMessage || !HasMention(msg.Text) {
		return false
	}

	groupID := *msg.GroupID
	a.begin(groupID)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.run(groupID, StripMention(msg.Text))
	}()
	return true
}

// Wait blocks until every in-flight assistant turn has completed. Used on
// shutdown and in tests.
func (a *Assistant) Wait() {
	a.wg.Wait()
}

func (a *Assistant) run(groupID int, prompt string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	// Best effort: a failed history fetch degrades context, not the turn.
	history, err := a.messages.RecentGroupMessages(ctx, groupID, a.historyLimit)
	if err != nil {
		log.Printf("assistant history fetch failed group=%d: %v", groupID, err)
		history = nil
	}

	text, err := a.responder.Generate(ctx, prompt, history)
	if err != nil {
		log.Printf("assistant generate failed group=%d: %v", groupID, err)
		a.fail(groupID, "generate")
		return
	}

	saved, err := a.messages.CreateAIMessage(ctx, groupID, text)
	if err != nil {
		log.Printf("assistant message persist failed group=%d: %v", groupID, err)
		a.fail(groupID, "persist")
		return
	}

	a.finish(groupID)
	a.notifier.NotifyAIMessage(saved)
	observability.IncAIRequest("ok")
}

// begin increments the room's in-flight counter; the 0→1 transition turns
// the typing indicator on. The broadcast happens under the counter lock so
// a completing turn's typing-off can never land after a newer turn's
// typing-on.
func (a *Assistant) begin(groupID int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.inflight[groupID]++
	observability.IncAIInflight()
	if a.inflight[groupID] == 1 {
		a.notifier.NotifyTyping(groupID, true)
	}
}

// finish decrements the counter; the transition back to zero turns the
// typing indicator off, under the same lock as the counter mutation.
func (a *Assistant) finish(groupID int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.inflight[groupID]--
	observability.DecAIInflight()
	if a.inflight[groupID] == 0 {
		delete(a.inflight, groupID)
		a.notifier.NotifyTyping(groupID, false)
	}
}

func (a *Assistant) fail(groupID int, outcome string) {
	a.finish(groupID)
	a.notifier.NotifyAIError(groupID, ErrorNotice)
	observability.IncAIRequest(outcome)
}
