package relay

import (
	"context"
	"sync"
	"testing"
)

// fakeHandle records envelopes it was asked to send and can be told to fail.
type fakeHandle struct {
	mu   sync.Mutex
	sent []Envelope
	err  error
}

func (f *fakeHandle) Send(_ context.Context, env Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeHandle) envelopes() []Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Envelope, len(f.sent))
	copy(out, f.sent)
	return out
}

func TestRegistryJoinCreatesRoomLazily(t *testing.T) {
	reg := NewRegistry()

	if got := reg.Members("r1"); got != 0 {
		t.Fatalf("expected empty registry, got %d members", got)
	}

	reg.Join("r1", "alice", &fakeHandle{})
	if got := reg.Members("r1"); got != 1 {
		t.Fatalf("expected 1 member, got %d", got)
	}
}

func TestRegistryLeaveDeletesEmptyRoom(t *testing.T) {
	reg := NewRegistry()
	h := &fakeHandle{}

	reg.Join("r1", "alice", h)
	if !reg.Leave("r1", "alice", h) {
		t.Fatalf("expected leave to remove the entry")
	}

	if reg.Snapshot("r1") != nil {
		t.Fatalf("expected room to be deleted once empty")
	}

	// A previously deleted room id is recreated on the next join.
	reg.Join("r1", "bob", &fakeHandle{})
	if got := reg.Members("r1"); got != 1 {
		t.Fatalf("expected recreated room with 1 member, got %d", got)
	}
}

func TestRegistryReplaceOnRejoinKeepsSingleHandle(t *testing.T) {
	reg := NewRegistry()
	c1 := &fakeHandle{}
	c2 := &fakeHandle{}

	reg.Join("r1", "alice", c1)
	reg.Join("r1", "alice", c2)

	members := reg.Snapshot("r1")
	if len(members) != 1 {
		t.Fatalf("expected exactly one membership entry, got %d", len(members))
	}
	if members[0].Handle != Handle(c2) {
		t.Fatalf("expected the newer handle to be registered")
	}
}

func TestRegistryIdentityCheckedLeave(t *testing.T) {
	reg := NewRegistry()
	c1 := &fakeHandle{}
	c2 := &fakeHandle{}

	reg.Join("r1", "alice", c1)
	reg.Join("r1", "alice", c2)

	// C1's delayed disconnect must not evict C2.
	if reg.Leave("r1", "alice", c1) {
		t.Fatalf("stale leave should have been rejected")
	}
	members := reg.Snapshot("r1")
	if len(members) != 1 || members[0].Handle != Handle(c2) {
		t.Fatalf("expected c2 to remain registered, got %+v", members)
	}

	if !reg.Leave("r1", "alice", c2) {
		t.Fatalf("expected current handle to leave")
	}
	if reg.Members("r1") != 0 {
		t.Fatalf("expected room to be gone")
	}
}

func TestRegistryLeaveUnknownRoomIsNoop(t *testing.T) {
	reg := NewRegistry()
	if reg.Leave("ghost", "alice", &fakeHandle{}) {
		t.Fatalf("leave on unknown room should report false")
	}
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	reg := NewRegistry()
	h := &fakeHandle{}
	reg.Join("r1", "alice", h)

	snap := reg.Snapshot("r1")
	reg.Leave("r1", "alice", h)

	if len(snap) != 1 || snap[0].UserID != "alice" {
		t.Fatalf("snapshot should be unaffected by later mutations, got %+v", snap)
	}
}

func TestRegistryConcurrentJoinLeave(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h := &fakeHandle{}
			user := "user" + string(rune('a'+n%26))
			for j := 0; j < 100; j++ {
				reg.Join("busy", user, h)
				reg.Snapshot("busy")
				reg.Leave("busy", user, h)
			}
		}(i)
	}
	wg.Wait()
}
