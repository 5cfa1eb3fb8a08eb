// Package httpapi exposes the REST surface for chats and message history.
// Clients create or look up chats here, then move to the WebSocket for the
// live conversation.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tradehub/chat-service/internal/chat"
)

// ChatStore is the slice of the chat repository the REST surface needs.
type ChatStore interface {
	GetOrCreate(ctx context.Context, userA, userB string) (chat.Chat, bool, error)
	ForUser(ctx context.Context, userID string) ([]chat.ChatSummary, error)
	ByID(ctx context.Context, chatID string) (chat.Chat, error)
	ListMessages(ctx context.Context, chatID string) ([]chat.Message, error)
}

// Handler serves the chat REST endpoints.
type Handler struct {
	repo ChatStore
}

// NewHandler creates a Handler over the chat repository.
func NewHandler(repo ChatStore) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes registers the chat API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chats", h.CreateChat)
		r.Get("/chats", h.ListChats)
		r.Get("/chats/{chatID}/messages", h.ListMessages)
	})
}

// CreateChat returns the chat between two users, creating it on first
// contact. 200 for an existing chat, 201 when this request created it.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserA string `json:"user_a"`
		UserB string `json:"user_b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UserA == "" || req.UserB == "" {
		Error(w, http.StatusBadRequest, "user_a and user_b are required")
		return
	}

	c, created, err := h.repo.GetOrCreate(r.Context(), req.UserA, req.UserB)
	if errors.Is(err, chat.ErrSameUser) {
		Error(w, http.StatusBadRequest, "chat requires two distinct users")
		return
	}
	if err != nil {
		log.Printf("[httpapi] create chat: %v", err)
		Error(w, http.StatusInternalServerError, "failed to create chat")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	JSON(w, status, c)
}

// chatListItem is one entry of the chat-list response: the chat summary plus
// the other participant resolved relative to the requesting user.
type chatListItem struct {
	chat.ChatSummary
	Partner string `json:"partner_id"`
}

// ListChats returns every chat the given user participates in, most recent
// activity first, each with a last-message preview and the partner's ID.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		Error(w, http.StatusBadRequest, "user_id query parameter is required")
		return
	}

	chats, err := h.repo.ForUser(r.Context(), userID)
	if err != nil {
		log.Printf("[httpapi] list chats user=%s: %v", userID, err)
		Error(w, http.StatusInternalServerError, "failed to list chats")
		return
	}

	items := make([]chatListItem, 0, len(chats))
	for _, c := range chats {
		items = append(items, chatListItem{ChatSummary: c, Partner: c.Partner(userID)})
	}
	JSON(w, http.StatusOK, map[string]interface{}{"chats": items})
}

// ListMessages returns a chat's full message history in insertion order.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	if _, err := h.repo.ByID(r.Context(), chatID); err != nil {
		if errors.Is(err, chat.ErrChatNotFound) {
			Error(w, http.StatusNotFound, "chat not found")
			return
		}
		log.Printf("[httpapi] lookup chat=%s: %v", chatID, err)
		Error(w, http.StatusInternalServerError, "failed to load chat")
		return
	}

	msgs, err := h.repo.ListMessages(r.Context(), chatID)
	if err != nil {
		log.Printf("[httpapi] list messages chat=%s: %v", chatID, err)
		Error(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if msgs == nil {
		msgs = []chat.Message{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

// JSON writes v as a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] encode response: %v", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]string{"error": msg})
}
