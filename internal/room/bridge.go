package room

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/tradehub/chat-service/internal/messaging"
)

// bridgeEvent is the wire format for fan-out events crossing server instances.
type bridgeEvent struct {
	Origin  string `json:"origin"`            // instance that published the event
	Exclude string `json:"exclude,omitempty"` // session to skip on delivery
	Data    []byte `json:"data"`              // the protocol message to deliver
}

// Bridge is the multi-process Broadcaster implementation. Instead of
// delivering locally at publish time, it pushes every event through NATS;
// each server instance (including the publisher) receives the event on its
// subscription and delivers it to its local sessions via the in-process
// Router. Session IDs are UUIDs, so the excluded sender is unambiguous
// across instances.
type Bridge struct {
	local *Router
	nc    *messaging.Client
	id    string // this instance's origin tag on published events

	mu       sync.RWMutex
	onRemote func(roomID string, data []byte)
}

// NewBridge wires a Bridge over the local router and a connected NATS client,
// and subscribes to the room and global subjects. Local delivery happens only
// on subscription callbacks.
func NewBridge(local *Router, nc *messaging.Client) (*Bridge, error) {
	b := &Bridge{local: local, nc: nc, id: uuid.New().String()}

	if err := nc.SubscribeRoomEvents(func(roomID string, data []byte) {
		var ev bridgeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("room: bridge room event unmarshal: %v", err)
			return
		}
		b.local.ToRoom(roomID, ev.Data, ev.Exclude)
		if ev.Origin != b.id {
			b.mu.RLock()
			observer := b.onRemote
			b.mu.RUnlock()
			if observer != nil {
				observer(roomID, ev.Data)
			}
		}
	}); err != nil {
		return nil, err
	}

	if err := nc.SubscribeGlobalEvents(func(data []byte) {
		var ev bridgeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("room: bridge global event unmarshal: %v", err)
			return
		}
		b.local.ToAll(ev.Data)
	}); err != nil {
		return nil, err
	}

	return b, nil
}

// SetRemoteObserver registers a callback invoked for room events published by
// other server instances, after local delivery. The relay uses it to keep its
// recent-message cache current for messages persisted elsewhere; events this
// instance published itself are skipped, since the publisher already updated
// its own state before the fan-out.
func (b *Bridge) SetRemoteObserver(fn func(roomID string, data []byte)) {
	b.mu.Lock()
	b.onRemote = fn
	b.mu.Unlock()
}

// Join delegates to the local router; membership stays per-instance.
func (b *Bridge) Join(sessionID, roomID string) {
	b.local.Join(sessionID, roomID)
}

// LeaveAll delegates to the local router.
func (b *Bridge) LeaveAll(sessionID string) []string {
	return b.local.LeaveAll(sessionID)
}

// ToRoom publishes the event to the room subject; delivery to local sessions
// happens when the subscription callback fires.
func (b *Bridge) ToRoom(roomID string, data []byte, excludeSession string) {
	payload, err := json.Marshal(bridgeEvent{Origin: b.id, Exclude: excludeSession, Data: data})
	if err != nil {
		log.Printf("room: bridge marshal: %v", err)
		return
	}
	if err := b.nc.PublishRoomEvent(roomID, payload); err != nil {
		log.Printf("room: bridge publish room=%s: %v", roomID, err)
	}
}

// ToAll publishes the event to the global subject.
func (b *Bridge) ToAll(data []byte) {
	payload, err := json.Marshal(bridgeEvent{Origin: b.id, Data: data})
	if err != nil {
		log.Printf("room: bridge marshal: %v", err)
		return
	}
	if err := b.nc.PublishGlobalEvent(payload); err != nil {
		log.Printf("room: bridge publish global: %v", err)
	}
}
