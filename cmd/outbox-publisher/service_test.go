package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/db/models"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/registry"
)

type repoSpy struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (r *repoSpy) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return r.pending, nil
}

func (r *repoSpy) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	r.published = append(r.published, id)
	return nil
}

func (r *repoSpy) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	r.failed = append(r.failed, id)
	return nil
}

func (r *repoSpy) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, _ int) error {
	r.failed = append(r.failed, id)
	return nil
}

type noopDB struct{}

func (noopDB) Ping(context.Context) error { return nil }

func (noopDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type noopPubSub struct{}

func (noopPubSub) Ping(context.Context) error { return nil }

func (noopPubSub) Publisher(string) *gcppubsub.Publisher { return nil }

// scriptedPublisher replies with one queued result per Publish call,
// succeeding once the script runs out.
type scriptedPublisher struct {
	script []error
}

func (p *scriptedPublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	if len(p.script) == 0 {
		return staticResult{}
	}
	err := p.script[0]
	p.script = p.script[1:]
	return staticResult{err: err}
}

type staticResult struct {
	err error
}

func (r staticResult) Get(context.Context) (string, error) { return "", r.err }

type stubResolver struct {
	resolved *registry.ResolvedEvent
	err      error
}

func (s *stubResolver) Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.resolved == nil {
		return nil, s.err
	}
	out := *s.resolved
	out.Descriptor.AggregateType = event.AggregateType
	out.Envelope.EventID = event.ID.String()
	out.Envelope.OccurredAt = time.Now()
	return &out, s.err
}

type dlqSpy struct {
	rows []models.OutboxDLQ
}

func (d *dlqSpy) InsertTx(_ *gorm.DB, entry models.OutboxDLQ) error {
	d.rows = append(d.rows, entry)
	return nil
}

func resolvedOrderEvent() *registry.ResolvedEvent {
	return &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{
			Topic:         "orders-topic",
			AggregateType: enums.AggregateOrder,
		},
		Envelope: outbox.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now(),
		},
		Payload: &payloads.OrderPlacedEvent{},
	}
}

func pendingOrderEvent(tb testing.TB, eventID string) models.OutboxEvent {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	raw, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       raw,
	}
}

func publisherService(tb testing.TB, repo outboxRepository, pub publisher, resolver registryResolver, dlq dlqRepository, outboxCfg config.OutboxConfig) *Service {
	tb.Helper()
	if outboxCfg.BatchSize == 0 {
		outboxCfg = config.OutboxConfig{BatchSize: 2, PollIntervalMS: 100, MaxAttempts: 5}
	}
	service, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: outboxCfg},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               noopDB{},
		PubSub:           noopPubSub{},
		Repository:       repo,
		Registry:         resolver,
		PublisherFactory: func(string) publisher { return pub },
		DLQRepository:    dlq,
	})
	if err != nil {
		tb.Fatalf("construct service: %v", err)
	}
	return service
}

func TestProcessBatchContinuesPastFailedRow(t *testing.T) {
	repo := &repoSpy{pending: []models.OutboxEvent{
		pendingOrderEvent(t, "event-one"),
		pendingOrderEvent(t, "event-two"),
	}}
	pub := &scriptedPublisher{script: []error{errors.New("transient"), nil}}
	service := publisherService(t, repo, pub, &stubResolver{resolved: resolvedOrderEvent()}, &dlqSpy{}, config.OutboxConfig{})

	processed, err := service.processBatch(context.Background())
	if err != nil || !processed {
		t.Fatalf("processBatch = %v, %v", processed, err)
	}
	if len(repo.failed) != 1 || repo.failed[0] != repo.pending[0].ID {
		t.Fatalf("failed rows = %v", repo.failed)
	}
	if len(repo.published) != 1 || repo.published[0] != repo.pending[1].ID {
		t.Fatalf("published rows = %v", repo.published)
	}
}

func TestProcessBatchRoutesChatEventsToChatTopic(t *testing.T) {
	body, err := json.Marshal(payloads.ChatMessageCreatedEvent{
		MessageID:  uuid.New(),
		ChatRoomID: uuid.New(),
		SenderID:   uuid.New(),
		Content:    "is the maize still available?",
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("marshal chat payload: %v", err)
	}
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       body,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	repo := &repoSpy{pending: []models.OutboxEvent{{
		ID:            uuid.New(),
		EventType:     enums.EventChatMessageCreated,
		AggregateType: enums.AggregateChatMessage,
		AggregateID:   uuid.New(),
		Payload:       raw,
	}}}

	resolver, err := registry.NewEventRegistry(config.PubSubConfig{
		OrdersTopic: "orders-topic",
		ChatTopic:   "chat-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	pub := &scriptedPublisher{}
	service := publisherService(t, repo, pub, resolver, &dlqSpy{}, config.OutboxConfig{})
	var routedTopic string
	service.publisherFactory = func(topic string) publisher {
		routedTopic = topic
		return pub
	}

	processed, err := service.processBatch(context.Background())
	if err != nil || !processed {
		t.Fatalf("processBatch = %v, %v", processed, err)
	}
	if routedTopic != "chat-topic" {
		t.Fatalf("routed to %q, want chat-topic", routedTopic)
	}
	if len(repo.published) != 1 {
		t.Fatalf("published %d rows, want 1", len(repo.published))
	}
}

func TestProcessBatchDeadLettersUndecodableEvent(t *testing.T) {
	event := pendingOrderEvent(t, "nonretryable")
	repo := &repoSpy{pending: []models.OutboxEvent{event}}
	resolver := &stubResolver{err: registry.NewNonRetryableError(errors.New("invalid payload"))}
	dlq := &dlqSpy{}
	service := publisherService(t, repo, &scriptedPublisher{}, resolver, dlq, config.OutboxConfig{})

	processed, err := service.processBatch(context.Background())
	if err != nil || !processed {
		t.Fatalf("processBatch = %v, %v", processed, err)
	}
	if len(dlq.rows) != 1 {
		t.Fatalf("dlq rows = %d, want 1", len(dlq.rows))
	}
	row := dlq.rows[0]
	if row.EventID != event.ID {
		t.Fatalf("dlq event_id = %s", row.EventID)
	}
	if !bytes.Equal(row.Payload, event.Payload) {
		t.Fatal("dlq row must carry the original payload")
	}
	if row.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("dlq reason = %s", row.ErrorReason)
	}
}

func TestProcessBatchDeadLettersAfterMaxAttempts(t *testing.T) {
	event := pendingOrderEvent(t, "max-attempts")
	event.AttemptCount = 1
	repo := &repoSpy{pending: []models.OutboxEvent{event}}
	pub := &scriptedPublisher{script: []error{errors.New("transient")}}
	dlq := &dlqSpy{}
	service := publisherService(t, repo, pub, &stubResolver{resolved: resolvedOrderEvent()}, dlq, config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil || !processed {
		t.Fatalf("processBatch = %v, %v", processed, err)
	}
	if len(dlq.rows) != 1 {
		t.Fatalf("dlq rows = %d, want 1", len(dlq.rows))
	}
	if dlq.rows[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("dlq reason = %s", dlq.rows[0].ErrorReason)
	}
}
