// Package messaging provides a NATS client wrapper for pub/sub fan-out across
// chat server instances. It handles connection lifecycle and subject-based
// subscriptions for room-scoped and global events.
package messaging

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subject patterns used by the chat service.
const (
	// SubjectRoom carries room-scoped events; the room ID is appended as a
	// subject token (chat.room.<room_id>).
	SubjectRoom = "chat.room"

	// SubjectGlobal carries events addressed to every connected session on
	// every server instance (presence changes).
	SubjectGlobal = "chat.global"
)

// Client wraps the NATS connection with helper methods for pub/sub.
type Client struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// Config holds NATS connection settings.
type Config struct {
	URL           string        // nats://localhost:4222
	Name          string        // client name for identification
	ReconnectWait time.Duration // time between reconnect attempts
	MaxReconnects int           // max reconnect attempts (-1 for infinite)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		Name:          "tradehub-chat",
		ReconnectWait: 2 * time.Second,
		MaxReconnects: -1, // infinite reconnects
	}
}

// NewClient connects to NATS with the given config and returns a ready client.
// It returns an error if the initial connection fails.
func NewClient(config Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(config.Name),
		nats.ReconnectWait(config.ReconnectWait),
		nats.MaxReconnects(config.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			} else {
				log.Printf("[nats] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[nats] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[nats] connection closed")
		}),
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	log.Printf("[nats] connected to %s", nc.ConnectedUrl())

	return &Client{
		conn: nc,
		subs: make(map[string]*nats.Subscription),
	}, nil
}

// PublishRoomEvent publishes data to the chat.room.<roomID> subject.
func (c *Client) PublishRoomEvent(roomID string, data []byte) error {
	return c.conn.Publish(SubjectRoom+"."+roomID, data)
}

// PublishGlobalEvent publishes data to the chat.global subject.
func (c *Client) PublishGlobalEvent(data []byte) error {
	return c.conn.Publish(SubjectGlobal, data)
}

// SubscribeRoomEvents subscribes to all room subjects (chat.room.>) and passes
// the room ID and raw payload to the handler.
func (c *Client) SubscribeRoomEvents(handler func(roomID string, data []byte)) error {
	subject := SubjectRoom + ".>"
	return c.subscribe(subject, func(msg *nats.Msg) {
		// Subject is chat.room.<room_id>; the room ID is everything after
		// the fixed prefix.
		roomID := msg.Subject[len(SubjectRoom)+1:]
		handler(roomID, msg.Data)
	})
}

// SubscribeGlobalEvents subscribes to the chat.global subject.
func (c *Client) SubscribeGlobalEvents(handler func(data []byte)) error {
	return c.subscribe(SubjectGlobal, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

// subscribe registers a handler for the given subject and stores the
// subscription internally for cleanup on Close.
func (c *Client) subscribe(subject string, handler func(msg *nats.Msg)) error {
	sub, err := c.conn.Subscribe(subject, handler)
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", subject, err)
	}

	c.mu.Lock()
	c.subs[subject] = sub
	c.mu.Unlock()
	return nil
}

// Close drains all active subscriptions and closes the NATS connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			log.Printf("[nats] drain %s: %v", subject, err)
		}
	}
	c.subs = make(map[string]*nats.Subscription)

	if err := c.conn.Drain(); err != nil {
		log.Printf("[nats] connection drain: %v", err)
	}

	log.Printf("[nats] client closed")
}
