package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/pushtisonawala/chat-app/internal/models"
)

// fakeSock records written frames and can be flipped to fail writes.
type fakeSock struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
	closed bool
}

func (s *fakeSock) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("write failed")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	s.frames = append(s.frames, buf)
	return nil
}

func (s *fakeSock) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSock) events(t *testing.T) []models.SocketEvent {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SocketEvent, 0, len(s.frames))
	for _, frame := range s.frames {
		var ev models.SocketEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("unmarshal frame: %v", err)
		}
		out = append(out, ev)
	}
	return out
}

func (s *fakeSock) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func lastPresence(t *testing.T, s *fakeSock) []int {
	t.Helper()
	evs := s.events(t)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == models.EventOnlineUsers {
			return evs[i].UserIDs
		}
	}
	t.Fatalf("no presence event recorded")
	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHubRegisterBroadcastsPresenceOnFirstConnection(t *testing.T) {
	hub := NewHub()

	sock1 := &fakeSock{}
	c1 := NewConn(1, sock1)
	hub.Register(c1)

	if got := lastPresence(t, sock1); !equalInts(got, []int{1}) {
		t.Fatalf("expected presence [1], got %v", got)
	}

	sock2 := &fakeSock{}
	c2 := NewConn(2, sock2)
	hub.Register(c2)

	if got := lastPresence(t, sock1); !equalInts(got, []int{1, 2}) {
		t.Fatalf("expected presence [1 2], got %v", got)
	}
	if got := lastPresence(t, sock2); !equalInts(got, []int{1, 2}) {
		t.Fatalf("expected presence [1 2], got %v", got)
	}
}

func TestHubSecondConnectionDoesNotRebroadcast(t *testing.T) {
	hub := NewHub()

	sock1 := &fakeSock{}
	hub.Register(NewConn(1, sock1))
	before := len(sock1.events(t))

	sock1b := &fakeSock{}
	hub.Register(NewConn(1, sock1b))

	if got := len(sock1.events(t)); got != before {
		t.Fatalf("expected no extra presence broadcast, frames %d -> %d", before, got)
	}
	if got := len(sock1b.events(t)); got != 0 {
		t.Fatalf("expected no frames on second connection, got %d", got)
	}
}

func TestHubUnregisterBroadcastsWhenLastConnectionCloses(t *testing.T) {
	hub := NewHub()

	sock1 := &fakeSock{}
	c1 := NewConn(1, sock1)
	hub.Register(c1)

	sock1b := &fakeSock{}
	c1b := NewConn(1, sock1b)
	hub.Register(c1b)

	sock2 := &fakeSock{}
	c2 := NewConn(2, sock2)
	hub.Register(c2)

	hub.Unregister(c1b.ID)
	if got := lastPresence(t, sock2); !equalInts(got, []int{1, 2}) {
		t.Fatalf("user 1 still online, expected [1 2], got %v", got)
	}

	hub.Unregister(c1.ID)
	if got := lastPresence(t, sock2); !equalInts(got, []int{2}) {
		t.Fatalf("expected presence [2] after user 1 went offline, got %v", got)
	}
}

func TestHubUnregisterUnknownConnIsNoop(t *testing.T) {
	hub := NewHub()

	sock := &fakeSock{}
	hub.Register(NewConn(1, sock))
	before := len(sock.events(t))

	hub.Unregister("no-such-conn")

	if got := len(sock.events(t)); got != before {
		t.Fatalf("expected no broadcast for unknown conn, frames %d -> %d", before, got)
	}
}

func TestHubUnregisterDropsRoomMembership(t *testing.T) {
	hub := NewHub()

	sock := &fakeSock{}
	c := NewConn(1, sock)
	hub.Register(c)
	hub.JoinGroup(7, c)
	hub.JoinGroup(9, c)

	hub.Unregister(c.ID)

	if got := hub.Rooms().MembersOf(7); len(got) != 0 {
		t.Fatalf("expected room 7 empty after unregister, got %d members", len(got))
	}
	if got := hub.Rooms().MembersOf(9); len(got) != 0 {
		t.Fatalf("expected room 9 empty after unregister, got %d members", len(got))
	}
}

func TestHubEmitToUserReachesAllConnections(t *testing.T) {
	hub := NewHub()

	sock1 := &fakeSock{}
	sock2 := &fakeSock{}
	hub.Register(NewConn(1, sock1))
	hub.Register(NewConn(1, sock2))

	hub.EmitToUser(1, models.SocketEvent{Type: models.EventNewMessage})

	for i, sock := range []*fakeSock{sock1, sock2} {
		evs := sock.events(t)
		if len(evs) == 0 || evs[len(evs)-1].Type != models.EventNewMessage {
			t.Fatalf("connection %d did not receive the message event", i)
		}
	}
}

func TestHubEmitToOfflineUserIsNoop(t *testing.T) {
	hub := NewHub()
	hub.EmitToUser(42, models.SocketEvent{Type: models.EventNewMessage})
}

func TestHubWriteFailureUnregistersAndRebroadcasts(t *testing.T) {
	hub := NewHub()

	good := &fakeSock{}
	hub.Register(NewConn(1, good))

	bad := &fakeSock{}
	c2 := NewConn(2, bad)
	hub.Register(c2)
	bad.setFail(true)

	hub.EmitToUser(2, models.SocketEvent{Type: models.EventNewMessage})

	if hub.Registry().IsOnline(2) {
		t.Fatalf("expected user 2 offline after write failure")
	}
	if !bad.closed {
		t.Fatalf("expected failed connection to be closed")
	}
	if got := lastPresence(t, good); !equalInts(got, []int{1}) {
		t.Fatalf("expected presence [1] after failure, got %v", got)
	}
}

func TestHubPresenceFailureConvergesToSurvivors(t *testing.T) {
	hub := NewHub()

	good := &fakeSock{}
	hub.Register(NewConn(1, good))

	bad := &fakeSock{}
	hub.Register(NewConn(2, bad))
	bad.setFail(true)

	// user 3 coming online triggers a broadcast that fails on user 2
	third := &fakeSock{}
	hub.Register(NewConn(3, third))

	if hub.Registry().IsOnline(2) {
		t.Fatalf("expected user 2 dropped during presence broadcast")
	}
	if got := lastPresence(t, good); !equalInts(got, []int{1, 3}) {
		t.Fatalf("expected final presence [1 3], got %v", got)
	}
	if got := lastPresence(t, third); !equalInts(got, []int{1, 3}) {
		t.Fatalf("expected final presence [1 3] on new conn, got %v", got)
	}
}
