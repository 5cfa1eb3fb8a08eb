package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tradehub/chat-service/internal/chat"
)

type fakeChatStore struct {
	chats    map[string]chat.Chat
	messages map[string][]chat.Message
	failWith error
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		chats:    make(map[string]chat.Chat),
		messages: make(map[string][]chat.Message),
	}
}

func (f *fakeChatStore) GetOrCreate(ctx context.Context, userA, userB string) (chat.Chat, bool, error) {
	if f.failWith != nil {
		return chat.Chat{}, false, f.failWith
	}
	if userA == userB {
		return chat.Chat{}, false, chat.ErrSameUser
	}
	if userA > userB {
		userA, userB = userB, userA
	}
	key := userA + "|" + userB
	if c, ok := f.chats[key]; ok {
		return c, false, nil
	}
	c := chat.Chat{ID: "chat-" + userA + "-" + userB, UserA: userA, UserB: userB, CreatedAt: time.Now()}
	f.chats[key] = c
	return c, true, nil
}

func (f *fakeChatStore) ForUser(ctx context.Context, userID string) ([]chat.ChatSummary, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []chat.ChatSummary
	for _, c := range f.chats {
		if !c.HasParticipant(userID) {
			continue
		}
		s := chat.ChatSummary{Chat: c}
		if msgs := f.messages[c.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			s.LastMessage = last.Content
			at := last.CreatedAt
			s.LastMessageAt = &at
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeChatStore) ByID(ctx context.Context, chatID string) (chat.Chat, error) {
	for _, c := range f.chats {
		if c.ID == chatID {
			return c, nil
		}
	}
	return chat.Chat{}, chat.ErrChatNotFound
}

func (f *fakeChatStore) ListMessages(ctx context.Context, chatID string) ([]chat.Message, error) {
	return f.messages[chatID], nil
}

func newTestServer(store ChatStore) *httptest.Server {
	r := chi.NewRouter()
	NewHandler(store).RegisterRoutes(r)
	return httptest.NewServer(r)
}

func TestCreateChatFirstContact(t *testing.T) {
	srv := newTestServer(newFakeChatStore())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chats", "application/json",
		strings.NewReader(`{"user_a":"alice","user_b":"bob"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d, want 201", resp.StatusCode)
	}

	var c chat.Chat
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.UserA != "alice" || c.UserB != "bob" {
		t.Errorf("unexpected chat: %+v", c)
	}
}

func TestCreateChatExistingReturns200(t *testing.T) {
	store := newFakeChatStore()
	store.GetOrCreate(context.Background(), "alice", "bob")
	srv := newTestServer(store)
	defer srv.Close()

	// Reversed order must still hit the same chat.
	resp, err := http.Post(srv.URL+"/api/chats", "application/json",
		strings.NewReader(`{"user_a":"bob","user_b":"alice"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
}

func TestCreateChatValidation(t *testing.T) {
	srv := newTestServer(newFakeChatStore())
	defer srv.Close()

	cases := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"user_a":`},
		{"missing user_b", `{"user_a":"alice"}`},
		{"same user", `{"user_a":"alice","user_b":"alice"}`},
	}
	for _, tc := range cases {
		resp, err := http.Post(srv.URL+"/api/chats", "application/json", strings.NewReader(tc.body))
		if err != nil {
			t.Fatalf("%s: POST: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", tc.name, resp.StatusCode)
		}
	}
}

func TestCreateChatStoreFailure(t *testing.T) {
	store := newFakeChatStore()
	store.failWith = errors.New("connection refused")
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/chats", "application/json",
		strings.NewReader(`{"user_a":"alice","user_b":"bob"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status %d, want 500", resp.StatusCode)
	}
}

func TestListChats(t *testing.T) {
	store := newFakeChatStore()
	store.GetOrCreate(context.Background(), "alice", "bob")
	store.GetOrCreate(context.Background(), "alice", "carol")
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chats?user_id=alice")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Chats []chat.ChatSummary `json:"chats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Chats) != 2 {
		t.Errorf("expected 2 chats, got %d", len(body.Chats))
	}
}

func TestListChatsIncludesPartnerAndPreview(t *testing.T) {
	store := newFakeChatStore()
	c, _, _ := store.GetOrCreate(context.Background(), "alice", "bob")
	store.messages[c.ID] = []chat.Message{
		{ID: 7, ChatID: c.ID, SenderID: "bob", Content: "is this still available?",
			CreatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
	}
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chats?user_id=alice")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Chats []struct {
			chat.ChatSummary
			Partner string `json:"partner_id"`
		} `json:"chats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Chats) != 1 {
		t.Fatalf("expected 1 chat, got %d", len(body.Chats))
	}
	item := body.Chats[0]
	if item.Partner != "bob" {
		t.Errorf("partner %q, want bob", item.Partner)
	}
	if item.LastMessage != "is this still available?" {
		t.Errorf("last message %q", item.LastMessage)
	}
	if item.LastMessageAt == nil {
		t.Error("missing last message timestamp")
	}
}

func TestListChatsRequiresUserID(t *testing.T) {
	srv := newTestServer(newFakeChatStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", resp.StatusCode)
	}
}

func TestListChatsEmptyIsArray(t *testing.T) {
	srv := newTestServer(newFakeChatStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chats?user_id=nobody")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(body["chats"]) != "[]" {
		t.Errorf("expected empty array, got %s", body["chats"])
	}
}

func TestListMessages(t *testing.T) {
	store := newFakeChatStore()
	c, _, _ := store.GetOrCreate(context.Background(), "alice", "bob")
	store.messages[c.ID] = []chat.Message{
		{ID: 1, ChatID: c.ID, SenderID: "alice", Content: "hi"},
		{ID: 2, ChatID: c.ID, SenderID: "bob", Content: "hello"},
	}
	srv := newTestServer(store)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chats/" + c.ID + "/messages")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
	var body struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Messages) != 2 || body.Messages[0].Content != "hi" {
		t.Errorf("unexpected messages: %+v", body.Messages)
	}
}

func TestListMessagesUnknownChat(t *testing.T) {
	srv := newTestServer(newFakeChatStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/chats/nope/messages")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d, want 404", resp.StatusCode)
	}
}
