// Package room maps live sessions into chat rooms and fans events out to the
// sessions currently in a room. A room corresponds 1:1 to a chat ID; it comes
// into existence with the first join and disappears when its last member
// leaves. Membership is mutated only by the owning session's own join and
// disconnect, but reads and fan-out can come from any goroutine, so the
// indexes are guarded by a RWMutex.
package room

import (
	"sync"

	"github.com/tradehub/chat-service/internal/metrics"
)

// Sender delivers a payload to a single session. It is satisfied by
// ws.ConnectionManager.
type Sender interface {
	Send(sessionID string, data []byte) bool
	Broadcast(data []byte)
}

// Broadcaster is the fan-out seam. The in-process Router implements it
// directly; the NATS Bridge implements it for multi-process deployments.
type Broadcaster interface {
	// ToRoom delivers data to every session currently in roomID except the
	// optionally excluded session ("" excludes nobody).
	ToRoom(roomID string, data []byte, excludeSession string)
	// ToAll delivers data to every connected session.
	ToAll(data []byte)
}

// Router is the in-process room registry. It keeps a forward index
// (room -> sessions) for fan-out and a reverse index (session -> rooms)
// for O(1) cleanup on disconnect.
type Router struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]struct{} // roomID -> set of sessionIDs
	sessions map[string]map[string]struct{} // sessionID -> set of roomIDs
	sender   Sender
}

// NewRouter creates an empty Router that delivers through the given Sender.
func NewRouter(sender Sender) *Router {
	return &Router{
		rooms:    make(map[string]map[string]struct{}),
		sessions: make(map[string]map[string]struct{}),
		sender:   sender,
	}
}

// Join adds the session to the room. Joining a room the session is already
// in has no additional effect.
func (r *Router) Join(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
		metrics.RoomsActive.Inc()
	}
	r.rooms[roomID][sessionID] = struct{}{}

	if r.sessions[sessionID] == nil {
		r.sessions[sessionID] = make(map[string]struct{})
	}
	r.sessions[sessionID][roomID] = struct{}{}
}

// Leave removes the session from a single room. Empty rooms are dropped
// from the index.
func (r *Router) Leave(sessionID, roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(sessionID, roomID)
}

func (r *Router) leaveLocked(sessionID, roomID string) {
	if members, ok := r.rooms[roomID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
			metrics.RoomsActive.Dec()
		}
	}
	if rooms, ok := r.sessions[sessionID]; ok {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(r.sessions, sessionID)
		}
	}
}

// LeaveAll removes the session from every room it had joined and returns the
// list of rooms it left, so the caller can notify remaining members.
func (r *Router) LeaveAll(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rooms := r.sessions[sessionID]
	if len(rooms) == 0 {
		return nil
	}

	left := make([]string, 0, len(rooms))
	for roomID := range rooms {
		left = append(left, roomID)
	}
	for _, roomID := range left {
		r.leaveLocked(sessionID, roomID)
	}
	return left
}

// Rooms returns the rooms the session is currently in.
func (r *Router) Rooms(sessionID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := r.sessions[sessionID]
	if len(rooms) == 0 {
		return nil
	}
	result := make([]string, 0, len(rooms))
	for roomID := range rooms {
		result = append(result, roomID)
	}
	return result
}

// Members returns a snapshot of the sessions currently in the room.
func (r *Router) Members(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	if len(members) == 0 {
		return nil
	}
	result := make([]string, 0, len(members))
	for sid := range members {
		result = append(result, sid)
	}
	return result
}

// ToRoom delivers data to every session in the room except excludeSession.
// Fan-out iterates a membership snapshot, so a join or leave that races with
// the send does not affect the current delivery set; every member present at
// snapshot time gets a delivery attempt.
func (r *Router) ToRoom(roomID string, data []byte, excludeSession string) {
	for _, sid := range r.Members(roomID) {
		if sid == excludeSession {
			continue
		}
		r.sender.Send(sid, data)
	}
}

// ToAll delivers data to every connected session.
func (r *Router) ToAll(data []byte) {
	r.sender.Broadcast(data)
}
