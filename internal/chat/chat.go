// Package chat holds the durable chat domain: chats between exactly two
// users, their append-only messages, the Postgres repository behind them,
// and the relay service that persists and fans out messages in real time.
package chat

import "time"

// Chat is a conversation between exactly two users. The participant pair is
// stored normalized (UserA < UserB) so a chat between any two users is
// singular regardless of who initiated it.
type Chat struct {
	ID        string    `json:"chat_id"`
	UserA     string    `json:"user_a"`
	UserB     string    `json:"user_b"`
	CreatedAt time.Time `json:"created_at"`
}

// Partner returns the other participant of the chat.
func (c *Chat) Partner(userID string) string {
	if userID == c.UserA {
		return c.UserB
	}
	if userID == c.UserB {
		return c.UserA
	}
	return ""
}

// HasParticipant reports whether the user is one of the chat's two participants.
func (c *Chat) HasParticipant(userID string) bool {
	return userID == c.UserA || userID == c.UserB
}

// ChatSummary is a chat row augmented with its latest message, the shape the
// chat-list endpoint serves. Chats with no messages yet carry empty preview
// fields.
type ChatSummary struct {
	Chat
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
}

// Message is one chat message. ID and CreatedAt are assigned by the database
// at insert time; the broadcast copy carries the same values as the stored
// row. Messages are immutable once persisted.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
