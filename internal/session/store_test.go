package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

// newTestStore connects to a local Redis instance. Tests that call this
// helper require a running Redis on localhost:6379.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("localhost:6379", "test-server")
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sid := uuid.New().String()

	if err := store.Create(ctx, sid); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { store.Delete(ctx, sid) })

	sess, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sess == nil {
		t.Fatal("expected session, got nil")
	}
	if sess.ID != sid {
		t.Errorf("expected id %s, got %s", sid, sess.ID)
	}
	if sess.UserID != "" {
		t.Errorf("expected anonymous session, got user %q", sess.UserID)
	}
	if sess.Server != "test-server" {
		t.Errorf("expected server test-server, got %q", sess.Server)
	}
}

func TestSetUser(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sid := uuid.New().String()

	if err := store.Create(ctx, sid); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { store.Delete(ctx, sid) })

	if err := store.SetUser(ctx, sid, "user-42"); err != nil {
		t.Fatalf("SetUser() error: %v", err)
	}

	sess, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sess.UserID != "user-42" {
		t.Errorf("expected user-42, got %q", sess.UserID)
	}
}

func TestTouch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sid := uuid.New().String()

	if err := store.Create(ctx, sid); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	t.Cleanup(func() { store.Delete(ctx, sid) })

	if err := store.Touch(ctx, sid); err != nil {
		t.Fatalf("Touch() error: %v", err)
	}

	sess, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sess.LastActive < sess.CreatedAt {
		t.Errorf("last_active %d predates created_at %d", sess.LastActive, sess.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	store := newTestStore(t)

	sess, err := store.Get(context.Background(), uuid.New().String())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil for unknown session, got %+v", sess)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	sid := uuid.New().String()

	if err := store.Create(ctx, sid); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := store.Delete(ctx, sid); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	sess, err := store.Get(ctx, sid)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected session gone after delete, got %+v", sess)
	}
}
