package idempotency

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// seenStore remembers every SETNX key so a redelivered event maps to
// the same marker and loses the claim.
type seenStore struct {
	markers map[string]bool
}

func (s *seenStore) Get(context.Context, string) (string, error) { return "", nil }

func (s *seenStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.markers == nil {
		s.markers = map[string]bool{}
	}
	if s.markers[key] {
		return false, nil
	}
	s.markers[key] = true
	return true, nil
}

func (s *seenStore) IdempotencyKey(scope, id string) string {
	return "agl:idempotency:" + scope + ":" + id
}

func (s *seenStore) Del(context.Context, ...string) error { return nil }

func ExampleManager_CheckAndMarkProcessed() {
	ctx := context.Background()
	manager, _ := NewManager(&seenStore{}, 7*24*time.Hour)
	orderPlaced := uuid.MustParse("f47ac10b-58cc-4372-a567-0e02b2c3d479")

	handle := func() {
		duplicate, _ := manager.CheckAndMarkProcessed(ctx, "analytics-worker", orderPlaced)
		if duplicate {
			fmt.Println("skipping duplicate delivery")
			return
		}
		fmt.Println("writing analytics row")
	}

	handle()
	handle()
	// Output:
	// writing analytics row
	// skipping duplicate delivery
}
