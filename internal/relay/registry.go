package relay

import "sync"

// Registry maps room ids to the set of active connections, keyed by user id.
// A room exists only while it has at least one member: it is created lazily on
// the first Join and deleted as soon as the last member leaves.
//
// A single mutex guards the whole map. Room counts are small and nothing slow
// happens under the lock: broadcasts copy the member list out via Snapshot and
// do all network I/O after the lock is released.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[string]Handle
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]map[string]Handle),
	}
}

// Join registers handle as the current connection for userID in roomID,
// creating the room if absent. A prior handle for the same user is silently
// replaced (last connect wins); the superseded connection is not closed here,
// it simply stops being reachable and cleans itself up on its own disconnect.
func (r *Registry) Join(roomID, userID string, h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		room = make(map[string]Handle)
		r.rooms[roomID] = room
	}
	room[userID] = h
}

// Leave removes the membership entry for userID in roomID, but only if the
// registered handle is h itself. The identity check keeps a delayed disconnect
// of a superseded connection from evicting its replacement. If removal empties
// the room, the room entry is deleted. Reports whether an entry was removed.
func (r *Registry) Leave(roomID, userID string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if room[userID] != h {
		return false
	}
	delete(room, userID)
	if len(room) == 0 {
		delete(r.rooms, roomID)
	}
	return true
}

// Snapshot returns the current members of roomID, or nil if the room is
// absent. The returned slice is a copy; callers send on it without holding
// the registry lock.
func (r *Registry) Snapshot(roomID string) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	members := make([]Member, 0, len(room))
	for userID, h := range room {
		members = append(members, Member{UserID: userID, Handle: h})
	}
	return members
}

// Members reports how many connections are registered in roomID. Zero means
// the room does not exist.
func (r *Registry) Members(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomID])
}
