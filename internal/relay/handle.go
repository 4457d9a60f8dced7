package relay

import "context"

// Handle is one live outbound channel to a connected client. The session loop
// that created a handle owns its lifecycle; the relay only attempts sends and
// reports failures, it never closes a handle it does not own.
type Handle interface {
	Send(ctx context.Context, env Envelope) error
}

// Member pairs a user with the handle currently registered for them in a room.
type Member struct {
	UserID string
	Handle Handle
}
