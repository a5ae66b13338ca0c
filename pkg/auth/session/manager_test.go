package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string]string)}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return "", redislib.Nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memoryStore) AccessSessionKey(accessID string) string {
	return "sess:" + accessID
}

func newTestManager(store *memoryStore) *Manager {
	return &Manager{store: store, keyer: store, ttl: time.Hour}
}

func TestGenerateStoresRefreshToken(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(store)

	token, err := manager.Generate(context.Background(), "jti-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty refresh token")
	}
	if stored := store.data["sess:jti-1"]; stored != token {
		t.Fatalf("stored token %q does not match issued %q", stored, token)
	}
}

func TestRotateRejectsWrongToken(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(store)

	if _, err := manager.Generate(context.Background(), "jti-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, _, err := manager.Rotate(context.Background(), "jti-1", "forged"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRotateIssuesNewSessionAndDeletesOld(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()

	token, err := manager.Generate(ctx, "jti-1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, "jti-1", token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if newAccessID == "jti-1" {
		t.Fatal("rotation must mint a fresh access id")
	}
	if _, exists := store.data["sess:jti-1"]; exists {
		t.Fatal("old session key left behind")
	}
	if stored := store.data["sess:"+newAccessID]; stored != newToken {
		t.Fatalf("new session stored %q, want %q", stored, newToken)
	}

	// The old token is single use.
	if _, _, err := manager.Rotate(ctx, "jti-1", token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken on reuse, got %v", err)
	}
}

func TestRevokeAndHasSession(t *testing.T) {
	store := newMemoryStore()
	manager := newTestManager(store)
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "jti-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if active, err := manager.HasSession(ctx, "jti-1"); err != nil || !active {
		t.Fatalf("expected active session, got active=%v err=%v", active, err)
	}
	if err := manager.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if active, err := manager.HasSession(ctx, "jti-1"); err != nil || active {
		t.Fatalf("expected revoked session, got active=%v err=%v", active, err)
	}
}
