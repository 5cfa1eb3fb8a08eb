package presence

import (
	"context"
	"log"

	"github.com/tradehub/chat-service/internal/metrics"
	"github.com/tradehub/chat-service/internal/protocol"
)

// GlobalBroadcaster delivers a payload to every connected session. Presence
// changes are not room-scoped; everyone hears about them.
type GlobalBroadcaster interface {
	ToAll(data []byte)
}

// Coordinator updates the presence store on connect and disconnect and
// broadcasts the resulting status changes.
//
// Presence is keyed by user, not session, and there is no reference counting
// of sessions per user: when one of a user's sessions disconnects the user is
// marked offline even if another of their sessions is still live. That
// matches the behavior clients were built against; changing it to a
// session-counted model would change the observable contract.
type Coordinator struct {
	store     *Store
	broadcast GlobalBroadcaster
}

// NewCoordinator creates a Coordinator over the given store and broadcaster.
func NewCoordinator(store *Store, broadcast GlobalBroadcaster) *Coordinator {
	return &Coordinator{store: store, broadcast: broadcast}
}

// MarkOnline adds the user to the online set and broadcasts presence_changed
// to every connected session. The broadcast is unconditional: a user who was
// already online from another session still produces a broadcast.
func (c *Coordinator) MarkOnline(ctx context.Context, userID string) error {
	if err := c.store.Add(ctx, userID); err != nil {
		return err
	}
	metrics.PresenceEvents.WithLabelValues("online").Inc()
	c.announce(userID, true)
	return nil
}

// MarkOffline removes the user from the online set and broadcasts
// presence_changed. Called from session teardown; the transport disconnect
// event is the only cleanup trigger, so it must run for abrupt disconnects
// as well as graceful ones.
func (c *Coordinator) MarkOffline(ctx context.Context, userID string) error {
	if err := c.store.Remove(ctx, userID); err != nil {
		return err
	}
	metrics.PresenceEvents.WithLabelValues("offline").Inc()
	c.announce(userID, false)
	return nil
}

// Statuses answers a batch online/offline query, preserving input order.
func (c *Coordinator) Statuses(ctx context.Context, userIDs []string) ([]protocol.UserStatus, error) {
	byID, err := c.store.Statuses(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	statuses := make([]protocol.UserStatus, 0, len(userIDs))
	for _, id := range userIDs {
		statuses = append(statuses, protocol.UserStatus{UserID: id, IsOnline: byID[id]})
	}
	return statuses, nil
}

// announce broadcasts a presence_changed event to all sessions.
func (c *Coordinator) announce(userID string, isOnline bool) {
	data, err := protocol.NewServerMessage(protocol.TypePresenceChanged, protocol.PresenceChangedMsg{
		UserID:   userID,
		IsOnline: isOnline,
	})
	if err != nil {
		log.Printf("presence: failed to build presence_changed for %s: %v", userID, err)
		return
	}
	c.broadcast.ToAll(data)
}
