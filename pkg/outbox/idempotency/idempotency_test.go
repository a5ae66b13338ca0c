package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type recordingStore struct {
	setNXResult bool
	setNXError  error
	keys        []string
	ttls        []time.Duration
	deleted     []string
}

func (r *recordingStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (r *recordingStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	r.keys = append(r.keys, key)
	r.ttls = append(r.ttls, ttl)
	return r.setNXResult, r.setNXError
}

func (r *recordingStore) IdempotencyKey(scope, id string) string {
	return "agl:idempotency:" + scope + ":" + id
}

func (r *recordingStore) Del(_ context.Context, keys ...string) error {
	r.deleted = append(r.deleted, keys...)
	return nil
}

func TestFirstDeliveryMarksAndReportsUnprocessed(t *testing.T) {
	store := &recordingStore{setNXResult: true}
	manager, err := NewManager(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	already, err := manager.CheckAndMarkProcessed(context.Background(), "orders-worker", eventID)
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if already {
		t.Fatal("first delivery reported as already processed")
	}
	if len(store.keys) != 1 {
		t.Fatalf("expected one SETNX, got %d", len(store.keys))
	}
	want := "agl:idempotency:evt:processed:orders-worker:" + eventID.String()
	if store.keys[0] != want {
		t.Fatalf("marker key %q, want %q", store.keys[0], want)
	}
	if store.ttls[0] != 24*time.Hour {
		t.Fatalf("marker ttl %v, want 24h", store.ttls[0])
	}
}

func TestDuplicateDeliveryIsReported(t *testing.T) {
	store := &recordingStore{setNXResult: false}
	manager, err := NewManager(store, 12*time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	already, err := manager.CheckAndMarkProcessed(context.Background(), "orders-worker", uuid.New())
	if err != nil {
		t.Fatalf("CheckAndMarkProcessed: %v", err)
	}
	if !already {
		t.Fatal("duplicate delivery not detected")
	}
}

func TestStoreErrorSurfaces(t *testing.T) {
	store := &recordingStore{setNXError: errors.New("redis down")}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "orders-worker", uuid.New()); err == nil {
		t.Fatal("expected store error to surface")
	}
}

func TestDeleteRemovesMarker(t *testing.T) {
	store := &recordingStore{}
	manager, err := NewManager(store, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	eventID := uuid.New()
	if err := manager.Delete(context.Background(), "orders-worker", eventID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := "agl:idempotency:evt:processed:orders-worker:" + eventID.String()
	if len(store.deleted) != 1 || store.deleted[0] != want {
		t.Fatalf("deleted %v, want [%s]", store.deleted, want)
	}
}

func TestManagerInputValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("expected error for nil store")
	}
	if _, err := NewManager(&recordingStore{}, -time.Hour); err == nil {
		t.Fatal("expected error for negative ttl")
	}

	manager, err := NewManager(&recordingStore{}, time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected error for empty consumer")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "orders-worker", uuid.Nil); err == nil {
		t.Fatal("expected error for nil event id")
	}
}
