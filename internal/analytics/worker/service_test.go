package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/internal/analytics/router"
	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
)

type recordingHandler struct {
	calls []types.Envelope
	err   error
}

func (h *recordingHandler) Handle(_ context.Context, envelope types.Envelope) error {
	h.calls = append(h.calls, envelope)
	return h.err
}

type fakeDedupe struct {
	duplicate bool
	checkErr  error
	checks    int
	releases  int
}

func (f *fakeDedupe) CheckAndMarkProcessed(context.Context, string, uuid.UUID) (bool, error) {
	f.checks++
	return f.duplicate, f.checkErr
}

func (f *fakeDedupe) Delete(context.Context, string, uuid.UUID) error {
	f.releases++
	return nil
}

func workerUnderTest(handler Handler, dedupe idempotencyChecker) *Service {
	return &Service{
		handler: handler,
		manager: dedupe,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test"}),
	}
}

func orderPlacedMessage(payload outbox.PayloadEnvelope) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{
		ID:   "msg-1",
		Data: data,
		Attributes: map[string]string{
			"event_type":     "order_placed",
			"aggregate_type": "order",
			"aggregate_id":   "ord-1",
		},
	}
}

func TestDecodeMessageJoinsBodyAndAttributes(t *testing.T) {
	svc := workerUnderTest(&recordingHandler{}, &fakeDedupe{})
	actor := &outbox.ActorRef{UserID: uuid.New(), Role: "buyer"}
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := orderPlacedMessage(outbox.PayloadEnvelope{
		EventID:    "evt-1",
		OccurredAt: occurred,
		Actor:      actor,
		Data:       json.RawMessage(`{"order_id":"ord-1","total":"25.00"}`),
	})

	env, err := svc.decodeMessage(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.EventType != enums.EventOrderPlaced || env.AggregateType != enums.AggregateOrder {
		t.Fatalf("routing fields wrong: %v/%v", env.EventType, env.AggregateType)
	}
	if env.EventID != "evt-1" || env.AggregateID != "ord-1" {
		t.Fatalf("identity fields wrong: %s/%s", env.EventID, env.AggregateID)
	}
	if !env.OccurredAt.Equal(occurred) {
		t.Fatalf("occurred_at = %v", env.OccurredAt)
	}
	if env.Actor == nil || env.Actor.UserID != actor.UserID {
		t.Fatalf("actor not carried through: %v", env.Actor)
	}
}

func TestDecodeMessageFallsBackToCreatedAtAttribute(t *testing.T) {
	svc := workerUnderTest(&recordingHandler{}, &fakeDedupe{})
	msg := orderPlacedMessage(outbox.PayloadEnvelope{EventID: uuid.NewString()})
	msg.Attributes["created_at"] = "2026-02-01T08:30:00Z"

	env, err := svc.decodeMessage(msg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	if !env.OccurredAt.Equal(want) {
		t.Fatalf("occurred_at = %v, want %v", env.OccurredAt, want)
	}
}

func TestConsumeSkipsDuplicateWithoutHandler(t *testing.T) {
	handler := &recordingHandler{}
	dedupe := &fakeDedupe{duplicate: true}
	svc := workerUnderTest(handler, dedupe)

	retry := svc.consume(context.Background(), orderPlacedMessage(outbox.PayloadEnvelope{EventID: uuid.NewString()}))

	if retry {
		t.Fatal("duplicate delivery must be acked, not retried")
	}
	if len(handler.calls) != 0 {
		t.Fatal("handler must not run for a duplicate")
	}
	if dedupe.checks != 1 {
		t.Fatalf("dedupe checked %d times", dedupe.checks)
	}
}

func TestConsumeRetriesAndReleasesMarkerOnHandlerError(t *testing.T) {
	handler := &recordingHandler{err: errors.New("bigquery unavailable")}
	dedupe := &fakeDedupe{}
	svc := workerUnderTest(handler, dedupe)

	retry := svc.consume(context.Background(), orderPlacedMessage(outbox.PayloadEnvelope{EventID: uuid.NewString()}))

	if !retry {
		t.Fatal("handler failure must nack for redelivery")
	}
	if dedupe.releases != 1 {
		t.Fatalf("idempotency marker released %d times, want 1", dedupe.releases)
	}
}

func TestConsumeDropsUndecodableMessage(t *testing.T) {
	handler := &recordingHandler{}
	dedupe := &fakeDedupe{}
	svc := workerUnderTest(handler, dedupe)

	retry := svc.consume(context.Background(), &gcppubsub.Message{Data: []byte("not json")})

	if retry {
		t.Fatal("poison message must be acked")
	}
	if len(handler.calls) != 0 || dedupe.checks != 0 {
		t.Fatal("nothing downstream should run for a poison message")
	}
}

func TestConsumeAcksUnsupportedEventType(t *testing.T) {
	handler := &recordingHandler{err: router.ErrUnsupportedEventType}
	dedupe := &fakeDedupe{}
	svc := workerUnderTest(handler, dedupe)

	retry := svc.consume(context.Background(), orderPlacedMessage(outbox.PayloadEnvelope{EventID: uuid.NewString()}))

	if retry {
		t.Fatal("unsupported event type must be acked")
	}
	if dedupe.releases != 0 {
		t.Fatal("marker must stay set for an intentionally skipped event")
	}
}
