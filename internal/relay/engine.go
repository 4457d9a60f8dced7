package relay

import (
	"context"

	"github.com/rs/zerolog"
)

// SendFailure describes one recipient that could not be reached during a
// broadcast. It is reported to the engine's failure hook and logged; the
// sender never learns about it.
type SendFailure struct {
	Room   string
	UserID string
	Err    error
}

// Engine relays messages among the members of a room. Broadcasts run on the
// goroutine of the sending connection and are best effort: a failed send is
// logged and skipped, delivery to the remaining recipients continues.
type Engine struct {
	registry *Registry
	log      *zerolog.Logger

	// onSendFailure, when set, observes per-recipient delivery failures.
	onSendFailure func(SendFailure)
}

// NewEngine builds an engine over the given registry.
func NewEngine(registry *Registry, logger *zerolog.Logger) *Engine {
	return &Engine{
		registry: registry,
		log:      logger,
	}
}

// OnSendFailure installs a hook observing per-recipient send failures. Must be
// called before the engine is shared between connections.
func (e *Engine) OnSendFailure(fn func(SendFailure)) {
	e.onSendFailure = fn
}

// Join registers a connection in a room.
func (e *Engine) Join(roomID, userID string, h Handle) {
	e.registry.Join(roomID, userID, h)
	e.log.Info().
		Str("room", roomID).
		Str("user", userID).
		Int("members", e.registry.Members(roomID)).
		Msg("joined room")
}

// Leave deregisters a connection from a room, identity-checked so a stale
// disconnect cannot evict a newer connection for the same user.
func (e *Engine) Leave(roomID, userID string, h Handle) {
	if !e.registry.Leave(roomID, userID, h) {
		return
	}
	e.log.Info().
		Str("room", roomID).
		Str("user", userID).
		Msg("left room")
}

// Broadcast derives the outbound envelope from msg and sends it to every
// member of the room except the sender. A no-op if the room has no members.
// The member set is snapshotted up front, so joins and leaves are never
// blocked by slow recipients.
func (e *Engine) Broadcast(ctx context.Context, roomID, from string, msg map[string]any) {
	members := e.registry.Snapshot(roomID)
	if len(members) == 0 {
		return
	}

	env := NewEnvelope(roomID, from, msg)
	for _, m := range members {
		if m.UserID == from {
			continue
		}
		if err := m.Handle.Send(ctx, env); err != nil {
			e.log.Warn().
				Err(err).
				Str("room", roomID).
				Str("user", m.UserID).
				Msg("broadcast send failed")
			if e.onSendFailure != nil {
				e.onSendFailure(SendFailure{Room: roomID, UserID: m.UserID, Err: err})
			}
		}
	}
}
