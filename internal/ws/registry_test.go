package ws

import (
	"sync"
	"testing"
)

func TestRegistryRegisterReportsCameOnlineOnce(t *testing.T) {
	reg := NewRegistry()

	c1 := NewConn(1, &fakeSock{})
	cameOnline, online := reg.Register(c1)
	if !cameOnline {
		t.Fatalf("first connection should bring user online")
	}
	if !equalInts(online, []int{1}) {
		t.Fatalf("expected snapshot [1], got %v", online)
	}

	c2 := NewConn(1, &fakeSock{})
	cameOnline, _ = reg.Register(c2)
	if cameOnline {
		t.Fatalf("second connection should not re-report came online")
	}

	if got := len(reg.ConnectionsFor(1)); got != 2 {
		t.Fatalf("expected 2 connections for user 1, got %d", got)
	}
}

func TestRegistryRegisterKnownConnIsNoop(t *testing.T) {
	reg := NewRegistry()

	c := NewConn(1, &fakeSock{})
	reg.Register(c)

	cameOnline, _ := reg.Register(c)
	if cameOnline {
		t.Fatalf("re-registering a known connection must be a no-op")
	}
	if got := len(reg.ConnectionsFor(1)); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}
}

func TestRegistryUnregisterReportsWentOfflineOnLast(t *testing.T) {
	reg := NewRegistry()

	c1 := NewConn(1, &fakeSock{})
	c2 := NewConn(1, &fakeSock{})
	reg.Register(c1)
	reg.Register(c2)

	_, wentOffline, _ := reg.Unregister(c1.ID)
	if wentOffline {
		t.Fatalf("user still has a connection, must not report went offline")
	}

	removed, wentOffline, online := reg.Unregister(c2.ID)
	if removed == nil || !wentOffline {
		t.Fatalf("last connection should take user offline")
	}
	if len(online) != 0 {
		t.Fatalf("expected empty snapshot, got %v", online)
	}
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()

	removed, wentOffline, _ := reg.Unregister("missing")
	if removed != nil || wentOffline {
		t.Fatalf("unknown connection must be a no-op")
	}
}

func TestRegistryOnlineUsersSorted(t *testing.T) {
	reg := NewRegistry()
	for _, id := range []int{9, 3, 7} {
		reg.Register(NewConn(id, &fakeSock{}))
	}

	if got := reg.OnlineUsers(); !equalInts(got, []int{3, 7, 9}) {
		t.Fatalf("expected sorted [3 7 9], got %v", got)
	}
	if !reg.IsOnline(7) {
		t.Fatalf("expected user 7 online")
	}
	if reg.IsOnline(4) {
		t.Fatalf("expected user 4 offline")
	}
}

func TestRegistryConcurrentRegisterUnregister(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()
			c := NewConn(userID, &fakeSock{})
			reg.Register(c)
			reg.Unregister(c.ID)
		}(i % 5)
	}
	wg.Wait()

	if got := reg.OnlineUsers(); len(got) != 0 {
		t.Fatalf("expected everyone offline, got %v", got)
	}
	if got := reg.All(); len(got) != 0 {
		t.Fatalf("expected no live connections, got %d", len(got))
	}
}
