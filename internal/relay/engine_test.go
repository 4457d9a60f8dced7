package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func newTestEngine() (*Engine, *Registry) {
	logger := zerolog.Nop()
	reg := NewRegistry()
	return NewEngine(reg, &logger), reg
}

func TestBroadcastExcludesSender(t *testing.T) {
	engine, _ := newTestEngine()
	alice := &fakeHandle{}
	bob := &fakeHandle{}

	engine.Join("r1", "alice", alice)
	engine.Join("r1", "bob", bob)

	engine.Broadcast(context.Background(), "r1", "alice", map[string]any{
		"type":    "move",
		"payload": map[string]any{"x": 1, "y": 2},
	})

	if got := alice.envelopes(); len(got) != 0 {
		t.Fatalf("sender must not receive its own broadcast, got %+v", got)
	}

	got := bob.envelopes()
	if len(got) != 1 {
		t.Fatalf("expected bob to receive 1 envelope, got %d", len(got))
	}
	env := got[0]
	if env.Type != "move" || env.From != "alice" || env.Room != "r1" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	payload, ok := env.Payload.(map[string]any)
	if !ok || payload["x"] != 1 || payload["y"] != 2 {
		t.Fatalf("unexpected payload: %+v", env.Payload)
	}
}

func TestBroadcastRoomIsolation(t *testing.T) {
	engine, _ := newTestEngine()
	bob := &fakeHandle{}
	eve := &fakeHandle{}

	engine.Join("a", "alice", &fakeHandle{})
	engine.Join("a", "bob", bob)
	engine.Join("b", "eve", eve)

	engine.Broadcast(context.Background(), "a", "alice", map[string]any{"payload": "hello"})

	if len(bob.envelopes()) != 1 {
		t.Fatalf("expected delivery inside room a")
	}
	if len(eve.envelopes()) != 0 {
		t.Fatalf("message from room a leaked into room b")
	}
}

func TestBroadcastDefaultsTypeAndPayload(t *testing.T) {
	engine, _ := newTestEngine()
	bob := &fakeHandle{}

	engine.Join("r1", "alice", &fakeHandle{})
	engine.Join("r1", "bob", bob)

	msg := map[string]any{"id": "pulse", "value": 97}
	engine.Broadcast(context.Background(), "r1", "alice", msg)

	got := bob.envelopes()
	if len(got) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(got))
	}
	env := got[0]
	if env.Type != DefaultType {
		t.Fatalf("expected default type %q, got %q", DefaultType, env.Type)
	}
	payload, ok := env.Payload.(map[string]any)
	if !ok || payload["id"] != "pulse" || payload["value"] != 97 {
		t.Fatalf("expected whole message as payload, got %+v", env.Payload)
	}
}

func TestBroadcastEmptyRoomIsNoop(t *testing.T) {
	engine, _ := newTestEngine()
	// Must not panic or create the room.
	engine.Broadcast(context.Background(), "ghost", "alice", map[string]any{"payload": 1})
}

func TestBroadcastPartialFailureIsolation(t *testing.T) {
	engine, _ := newTestEngine()

	var failures []SendFailure
	engine.OnSendFailure(func(f SendFailure) { failures = append(failures, f) })

	bob := &fakeHandle{}
	carol := &fakeHandle{err: errors.New("connection reset")}
	dave := &fakeHandle{}

	engine.Join("r1", "alice", &fakeHandle{})
	engine.Join("r1", "bob", bob)
	engine.Join("r1", "carol", carol)
	engine.Join("r1", "dave", dave)

	engine.Broadcast(context.Background(), "r1", "alice", map[string]any{"payload": "hi"})

	if len(bob.envelopes()) != 1 || len(dave.envelopes()) != 1 {
		t.Fatalf("healthy recipients must still receive the message")
	}
	if len(failures) != 1 || failures[0].UserID != "carol" || failures[0].Room != "r1" {
		t.Fatalf("expected one recorded failure for carol, got %+v", failures)
	}

	// The failed recipient is not evicted; deregistration belongs to its own
	// disconnect path.
	members := engine.registry.Snapshot("r1")
	if len(members) != 4 {
		t.Fatalf("expected 4 members after failed send, got %d", len(members))
	}
}

func TestBroadcastReachesOnlyNewestHandle(t *testing.T) {
	engine, _ := newTestEngine()
	c1 := &fakeHandle{}
	c2 := &fakeHandle{}

	engine.Join("r1", "alice", c1)
	engine.Join("r1", "alice", c2)
	engine.Join("r1", "bob", &fakeHandle{})

	engine.Broadcast(context.Background(), "r1", "bob", map[string]any{"payload": "ping"})

	if len(c1.envelopes()) != 0 {
		t.Fatalf("superseded connection must be unreachable")
	}
	if len(c2.envelopes()) != 1 {
		t.Fatalf("replacement connection must receive the broadcast")
	}
}

func TestLeaveAfterReplaceKeepsNewerMembership(t *testing.T) {
	engine, reg := newTestEngine()
	c1 := &fakeHandle{}
	c2 := &fakeHandle{}

	engine.Join("r1", "alice", c1)
	engine.Join("r1", "alice", c2)
	engine.Leave("r1", "alice", c1)

	if reg.Members("r1") != 1 {
		t.Fatalf("stale leave evicted the newer connection")
	}
}
