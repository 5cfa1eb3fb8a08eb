// Package protocol defines the WebSocket message types and structures used for
// communication between the client and server. All messages are serialized as
// JSON and follow a consistent envelope format with a type discriminator.
package protocol

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeIdentify    = "identify"
	TypeJoinChat    = "join_chat"
	TypeTyping      = "typing"
	TypeStopTyping  = "stop_typing"
	TypeSendMessage = "send_message"
	TypeCheckOnline = "check_online_status"
	TypePing        = "ping"
)

// Server -> Client message types.
const (
	TypeSessionCreated    = "session_created"
	TypePresenceChanged   = "presence_changed"
	TypeOnlineStatuses    = "online_statuses"
	TypeMessageReceived   = "message_received"
	TypeRecentMessages    = "recent_messages"
	TypeUserTyping        = "user_typing"
	TypeUserStoppedTyping = "user_stopped_typing"
	TypeUserLeft          = "user_left"
	TypeRateLimited       = "rate_limited"
	TypeError             = "error"
	TypePong              = "pong"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements the json.Unmarshaler interface. It captures the
// full raw bytes and extracts only the "type" field so that the rest of the
// payload can be decoded later into the appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	// Capture the full raw message for deferred parsing.
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	// Extract only the type field.
	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// IdentifyMsg is sent by the client right after connecting to associate a user
// identifier with the session. The user ID is taken at face value; the session
// stays anonymous until this message arrives.
type IdentifyMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// JoinChatMsg is sent by the client to enter the room for a chat. Joining the
// same chat twice is a no-op.
type JoinChatMsg struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
}

// TypingMsg signals that the user started typing in a chat.
type TypingMsg struct {
	Type        string `json:"type"`
	ChatID      string `json:"chat_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// StopTypingMsg signals that the user stopped typing in a chat.
type StopTypingMsg struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// SendMessageMsg carries a chat message from the client.
type SendMessageMsg struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id"`
	UserID  string `json:"user_id"`
	Content string `json:"content"`
}

// CheckOnlineMsg asks the server for the online status of a batch of users.
type CheckOnlineMsg struct {
	Type    string   `json:"type"`
	UserIDs []string `json:"user_ids"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// SessionCreatedMsg is sent by the server when a new session is established.
type SessionCreatedMsg struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// PresenceChangedMsg is broadcast to every connected session when a user goes
// online or offline.
type PresenceChangedMsg struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// UserStatus is one entry in an online_statuses reply.
type UserStatus struct {
	UserID   string `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// OnlineStatusesMsg is the reply to check_online_status, sent only to the
// requesting session.
type OnlineStatusesMsg struct {
	Type     string       `json:"type"`
	Statuses []UserStatus `json:"statuses"`
}

// MessageReceivedMsg relays a persisted chat message to every session in the
// room, including the sender's own session.
type MessageReceivedMsg struct {
	Type    string      `json:"type"`
	Message interface{} `json:"message"`
}

// RecentMessagesMsg replays the tail of a chat's history to a session that
// just joined the room. The replay may overlap messages already delivered
// live; receivers dedupe by message id.
type RecentMessagesMsg struct {
	Type     string      `json:"type"`
	ChatID   string      `json:"chat_id"`
	Messages interface{} `json:"messages"`
}

// UserTypingMsg relays a typing indicator to the rest of the room.
type UserTypingMsg struct {
	Type        string `json:"type"`
	ChatID      string `json:"chat_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// UserStoppedTypingMsg relays a stopped-typing indicator to the rest of the room.
type UserStoppedTypingMsg struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// UserLeftMsg notifies a room that a member's session disconnected.
type UserLeftMsg struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// RateLimitedMsg is sent by the server when the client has been rate-limited.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// ErrorMsg is sent by the server to communicate an error condition.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeIdentify:
		var m IdentifyMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeJoinChat:
		var m JoinChatMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeTyping:
		var m TypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeStopTyping:
		var m StopTypingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSendMessage:
		var m SendMessageMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCheckOnline:
		var m CheckOnlineMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs; this function marshals it to
// JSON, injects the type field, and returns the final bytes.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	// Marshal the payload struct to a generic map so we can ensure the "type"
	// field is present and correct.
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}
