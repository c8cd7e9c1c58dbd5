package session

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess := New(1, "alice@example.com", "alice", "customer", time.Hour)
	if sess.ID == "" || !sess.Authenticated {
		t.Fatalf("bad session value: %+v", sess)
	}
	if err := s.Create(ctx, sess, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserID != 1 || got.Email != "alice@example.com" || got.Role != "customer" {
		t.Fatalf("mirror mismatch: %+v", got)
	}

	if err := s.Refresh(ctx, sess.ID, time.Hour); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
	// Delete is idempotent.
	if err := s.Delete(ctx, sess.ID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	sess := New(2, "bob@example.com", "bob", "customer", 10*time.Millisecond)
	if err := s.Create(ctx, sess, 10*time.Millisecond); err != nil {
		t.Fatalf("create: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := s.Get(ctx, sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session still readable: err = %v", err)
	}
	if err := s.Refresh(ctx, sess.ID, time.Hour); !errors.Is(err, ErrNotFound) {
		t.Fatal("refresh revived an expired session")
	}
}
