package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/tradehub/chat-service/internal/metrics"
	"github.com/tradehub/chat-service/internal/protocol"
)

// MessageStore is the slice of the repository the relay service needs.
type MessageStore interface {
	InsertMessage(ctx context.Context, chatID, senderID, content string) (Message, error)
	RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error)
}

// RoomBroadcaster fans a payload out to the sessions in a room.
type RoomBroadcaster interface {
	ToRoom(roomID string, data []byte, excludeSession string)
}

// Service is the message relay and typing notifier. It validates and persists
// incoming messages, then fans them out to the room for the target chat; the
// room ID is the chat ID.
type Service struct {
	store MessageStore
	rooms RoomBroadcaster
	cache *RecentCache
}

// NewService creates a Service over the given store and room broadcaster.
func NewService(store MessageStore, rooms RoomBroadcaster) *Service {
	return &Service{
		store: store,
		rooms: rooms,
		cache: NewRecentCache(),
	}
}

// Send validates, persists, and broadcasts a chat message. The broadcast goes
// to every session in the room including the sender's own session; clients
// render their own message only when the relayed echo arrives, so perceived
// ordering follows the round trip through persistence.
//
// If persistence fails, nothing is broadcast and the error surfaces to the
// caller; there is no automatic retry.
func (s *Service) Send(ctx context.Context, chatID, senderID, content string) (Message, error) {
	if err := ValidateContent(content); err != nil {
		metrics.MessagesTotal.WithLabelValues("rejected").Inc()
		return Message{}, err
	}

	start := time.Now()
	msg, err := s.store.InsertMessage(ctx, chatID, senderID, content)
	if err != nil {
		metrics.MessagesTotal.WithLabelValues("failed").Inc()
		return Message{}, fmt.Errorf("chat: send: %w", err)
	}
	metrics.PersistLatency.Observe(time.Since(start).Seconds())

	s.cache.Add(chatID, msg)

	data, err := protocol.NewServerMessage(protocol.TypeMessageReceived, protocol.MessageReceivedMsg{
		Message: msg,
	})
	if err != nil {
		// The row is stored; the fan-out just cannot be built. Surface the
		// error so the sender knows the echo is not coming.
		return Message{}, fmt.Errorf("chat: send broadcast encode: %w", err)
	}

	s.rooms.ToRoom(chatID, data, "")
	metrics.MessagesTotal.WithLabelValues("relayed").Inc()
	return msg, nil
}

// Recent returns the tail of the chat's history for join-time replay, served
// from the in-memory cache when warm and from the store otherwise.
func (s *Service) Recent(ctx context.Context, chatID string) ([]Message, error) {
	if msgs, ok := s.cache.Get(chatID); ok {
		return msgs, nil
	}

	msgs, err := s.store.RecentMessages(ctx, chatID, RecentCacheSize)
	if err != nil {
		return nil, fmt.Errorf("chat: recent: %w", err)
	}
	s.cache.Warm(chatID, msgs)
	return msgs, nil
}

// ObserveRemote folds a room event relayed by another server instance into
// the recent-message cache, so join-time replay stays current when fan-out
// runs through the broadcast bridge. Only message_received events touch the
// cache, and only for chats with a warm buffer; cold chats load their tail
// from the store on the next join.
func (s *Service) ObserveRemote(chatID string, data []byte) {
	var env struct {
		Type    string  `json:"type"`
		Message Message `json:"message"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("chat: observe remote event: %v", err)
		return
	}
	if env.Type != protocol.TypeMessageReceived {
		return
	}
	s.cache.AddIfWarm(chatID, env.Message)
}

// Typing broadcasts a typing indicator to the room, excluding the sender's
// session. Nothing is persisted and no acknowledgement is sent; the server
// does not time typing state out, clients clear stale indicators themselves.
func (s *Service) Typing(chatID, userID, displayName, excludeSession string) {
	data, err := protocol.NewServerMessage(protocol.TypeUserTyping, protocol.UserTypingMsg{
		ChatID:      chatID,
		UserID:      userID,
		DisplayName: displayName,
	})
	if err != nil {
		log.Printf("chat: failed to build user_typing: %v", err)
		return
	}
	s.rooms.ToRoom(chatID, data, excludeSession)
	metrics.TypingEvents.WithLabelValues("start").Inc()
}

// StopTyping broadcasts a stopped-typing indicator to the room, excluding the
// sender's session.
func (s *Service) StopTyping(chatID, userID, excludeSession string) {
	data, err := protocol.NewServerMessage(protocol.TypeUserStoppedTyping, protocol.UserStoppedTypingMsg{
		ChatID: chatID,
		UserID: userID,
	})
	if err != nil {
		log.Printf("chat: failed to build user_stopped_typing: %v", err)
		return
	}
	s.rooms.ToRoom(chatID, data, excludeSession)
	metrics.TypingEvents.WithLabelValues("stop").Inc()
}
