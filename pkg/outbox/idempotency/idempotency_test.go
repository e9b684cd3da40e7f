package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	keys map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: map[string]string{}}
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "vb:idempotency:" + scope + ":" + id
}

func (s *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func TestCheckAndMarkProcessed(t *testing.T) {
	manager, err := NewManager(newMemoryStore(), time.Hour)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	eventID := uuid.New()

	already, err := manager.CheckAndMarkProcessed(context.Background(), "notification-worker", eventID)
	if err != nil {
		t.Fatalf("first check: %v", err)
	}
	if already {
		t.Fatal("first check should not be processed")
	}

	already, err = manager.CheckAndMarkProcessed(context.Background(), "notification-worker", eventID)
	if err != nil {
		t.Fatalf("second check: %v", err)
	}
	if !already {
		t.Fatal("second check should be processed")
	}
}

func TestDeleteAllowsRetry(t *testing.T) {
	manager, _ := NewManager(newMemoryStore(), time.Hour)
	eventID := uuid.New()

	if _, err := manager.CheckAndMarkProcessed(context.Background(), "worker", eventID); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := manager.Delete(context.Background(), "worker", eventID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	already, err := manager.CheckAndMarkProcessed(context.Background(), "worker", eventID)
	if err != nil {
		t.Fatalf("recheck: %v", err)
	}
	if already {
		t.Fatal("deleted event should be retryable")
	}
}

func TestManagerValidation(t *testing.T) {
	if _, err := NewManager(nil, time.Hour); err == nil {
		t.Fatal("nil store should fail")
	}
	manager, _ := NewManager(newMemoryStore(), time.Hour)
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("empty consumer should fail")
	}
	if _, err := manager.CheckAndMarkProcessed(context.Background(), "worker", uuid.Nil); err == nil {
		t.Fatal("nil event id should fail")
	}
}
