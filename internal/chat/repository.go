package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrSameUser is returned when a chat is requested between a user and
// themselves.
var ErrSameUser = errors.New("chat requires two distinct participants")

// ErrChatNotFound is returned when a chat ID does not exist.
var ErrChatNotFound = errors.New("chat not found")

// Repository manages chats and messages in PostgreSQL.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by the given database handle.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// normalizePair orders two user IDs so the unordered pair maps to a single
// (user_a, user_b) key.
func normalizePair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// GetOrCreate returns the chat between the two users, creating it on first
// contact. The pair is order-independent: GetOrCreate(a, b) and
// GetOrCreate(b, a) return the same chat.
//
// Creation is race-safe. The insert runs with ON CONFLICT DO NOTHING against
// the unique (user_a, user_b) constraint, so two concurrent first-contact
// requests (one from each direction) serialize in the database: exactly one
// insert wins and the loser falls through to the select of the winning row.
// The returned bool is true when this call created the chat.
func (r *Repository) GetOrCreate(ctx context.Context, userA, userB string) (Chat, bool, error) {
	if userA == userB {
		return Chat{}, false, ErrSameUser
	}
	a, b := normalizePair(userA, userB)

	// Fast path: the chat usually exists already.
	existing, err := r.findByPair(ctx, a, b)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, ErrChatNotFound) {
		return Chat{}, false, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Chat{}, false, fmt.Errorf("chat: begin tx: %w", err)
	}
	defer tx.Rollback()

	const insertChat = `
		INSERT INTO chats (id, user_a, user_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_a, user_b) DO NOTHING
		RETURNING id, user_a, user_b, created_at`

	var chat Chat
	err = tx.QueryRowContext(ctx, insertChat, uuid.New().String(), a, b).
		Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Lost the race: a concurrent request created the chat between our
		// select and insert. Return the winning row to this caller too.
		won, ferr := r.findByPair(ctx, a, b)
		if ferr != nil {
			return Chat{}, false, ferr
		}
		return won, false, nil
	}
	if err != nil {
		return Chat{}, false, fmt.Errorf("chat: insert chat: %w", err)
	}

	const insertParticipants = `
		INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2), ($1, $3)`
	if _, err := tx.ExecContext(ctx, insertParticipants, chat.ID, a, b); err != nil {
		return Chat{}, false, fmt.Errorf("chat: insert participants: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Chat{}, false, fmt.Errorf("chat: commit: %w", err)
	}
	return chat, true, nil
}

// findByPair looks up the chat for a normalized participant pair.
func (r *Repository) findByPair(ctx context.Context, a, b string) (Chat, error) {
	const query = `
		SELECT id, user_a, user_b, created_at
		FROM chats
		WHERE user_a = $1 AND user_b = $2`

	var chat Chat
	err := r.db.QueryRowContext(ctx, query, a, b).
		Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrChatNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("chat: find by pair: %w", err)
	}
	return chat, nil
}

// ByID returns the chat with the given identifier.
func (r *Repository) ByID(ctx context.Context, chatID string) (Chat, error) {
	const query = `
		SELECT id, user_a, user_b, created_at
		FROM chats
		WHERE id = $1`

	var chat Chat
	err := r.db.QueryRowContext(ctx, query, chatID).
		Scan(&chat.ID, &chat.UserA, &chat.UserB, &chat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Chat{}, ErrChatNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("chat: by id: %w", err)
	}
	return chat, nil
}

// ForUser returns every chat the user participates in with a preview of the
// latest message, ordered by most recent activity: chats with newer messages
// come first, and a chat with no messages sorts by its creation time.
func (r *Repository) ForUser(ctx context.Context, userID string) ([]ChatSummary, error) {
	const query = `
		SELECT c.id, c.user_a, c.user_b, c.created_at, m.content, m.created_at
		FROM chats c
		JOIN chat_participants p ON p.chat_id = c.id
		LEFT JOIN LATERAL (
			SELECT content, created_at
			FROM messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) m ON true
		WHERE p.user_id = $1
		ORDER BY COALESCE(m.created_at, c.created_at) DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("chat: for user: %w", err)
	}
	defer rows.Close()

	var chats []ChatSummary
	for rows.Next() {
		var (
			c       ChatSummary
			content sql.NullString
			sentAt  sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt, &content, &sentAt); err != nil {
			return nil, fmt.Errorf("chat: for user scan: %w", err)
		}
		if content.Valid {
			c.LastMessage = content.String
		}
		if sentAt.Valid {
			t := sentAt.Time
			c.LastMessageAt = &t
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: for user rows: %w", err)
	}
	return chats, nil
}

// IsParticipant reports whether the user is a participant of the chat.
func (r *Repository) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2
		)`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, chatID, userID).Scan(&ok); err != nil {
		return false, fmt.Errorf("chat: is participant: %w", err)
	}
	return ok, nil
}

// InsertMessage appends a message to the chat. The identifier and creation
// timestamp are assigned by the database and returned on the stored row, so
// the broadcast copy and the persisted copy carry the same timestamp.
func (r *Repository) InsertMessage(ctx context.Context, chatID, senderID, content string) (Message, error) {
	const query = `
		INSERT INTO messages (chat_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, chat_id, sender_id, content, created_at`

	var m Message
	err := r.db.QueryRowContext(ctx, query, chatID, senderID, content).
		Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("chat: insert message: %w", err)
	}
	return m, nil
}

// ListMessages returns the chat's full history in insertion order.
func (r *Repository) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	const query = `
		SELECT id, chat_id, sender_id, content, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC, id ASC`

	return r.queryMessages(ctx, query, chatID)
}

// RecentMessages returns the last limit messages of the chat in
// chronological order (oldest first).
func (r *Repository) RecentMessages(ctx context.Context, chatID string, limit int) ([]Message, error) {
	const query = `
		SELECT id, chat_id, sender_id, content, created_at
		FROM (
			SELECT id, chat_id, sender_id, content, created_at
			FROM messages
			WHERE chat_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) tail
		ORDER BY created_at ASC, id ASC`

	return r.queryMessages(ctx, query, chatID, limit)
}

func (r *Repository) queryMessages(ctx context.Context, query string, args ...interface{}) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chat: query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("chat: scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chat: message rows: %w", err)
	}
	return messages, nil
}
