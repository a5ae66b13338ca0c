package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/mvalverde/agrolink-backend/internal/analytics/router"
	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
)

const analyticsConsumerName = "analytics"

// Handler defines how to process analytics envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Service pulls analytics events off the Pub/Sub subscription. Malformed
// messages are acked and dropped. Transient failures are nacked so
// Pub/Sub redelivers them.
type Service struct {
	subscription *gcppubsub.Subscriber
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

func NewService(subscription *gcppubsub.Subscriber, handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case manager == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{
		subscription: subscription,
		handler:      handler,
		manager:      manager,
		logg:         logg,
	}, nil
}

// Run blocks consuming messages until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if s.consume(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// consume reports whether the message should be redelivered.
func (s *Service) consume(ctx context.Context, msg *gcppubsub.Message) (retry bool) {
	logCtx := s.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	envelope, err := s.decodeMessage(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithFields(logCtx, map[string]any{"error": err.Error()}), "dropping undecodable analytics message")
		return false
	}
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"event_id":       envelope.EventID,
		"event_type":     envelope.EventType,
		"aggregate_type": envelope.AggregateType,
		"aggregate_id":   envelope.AggregateID,
		"occurred_at":    envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(logCtx, "dropping message with malformed event id")
		return false
	}

	duplicate, err := s.manager.CheckAndMarkProcessed(logCtx, analyticsConsumerName, eventID)
	if err != nil {
		s.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if duplicate {
		s.logg.Info(logCtx, "event already processed")
		return false
	}

	if err := s.handler.Handle(logCtx, *envelope); err != nil {
		if errors.Is(err, router.ErrUnsupportedEventType) {
			s.logg.Warn(logCtx, "unsupported event type")
			return false
		}
		// Release the idempotency marker so the redelivery is not
		// mistaken for a duplicate.
		s.logg.Error(logCtx, "handler error", err)
		_ = s.manager.Delete(logCtx, analyticsConsumerName, eventID)
		return true
	}

	s.logg.Info(logCtx, "analytics event handled")
	return false
}

// decodeMessage joins the payload envelope in the message body with
// the routing attributes the publisher sets.
func (s *Service) decodeMessage(msg *gcppubsub.Message) (*types.Envelope, error) {
	var stored outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &stored); err != nil {
		return nil, fmt.Errorf("decode payload envelope: %w", err)
	}

	eventType, err := enums.ParseOutboxEventType(attr(msg, "event_type"))
	if err != nil {
		return nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr(msg, "aggregate_type"))
	if err != nil {
		return nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attr(msg, "aggregate_id")
	if aggregateID == "" {
		return nil, errors.New("aggregate_id missing")
	}

	eventID := strings.TrimSpace(stored.EventID)
	if eventID == "" {
		eventID = attr(msg, "event_id")
	}
	if eventID == "" {
		return nil, errors.New("event_id missing")
	}

	// Older publishers put the timestamp in a created_at attribute
	// instead of the payload envelope.
	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr(msg, "created_at")); err == nil {
			occurredAt = parsed
		}
	}

	version := stored.Version
	if version == 0 {
		version = 1
	}

	return &types.Envelope{
		Version:       version,
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Actor:         stored.Actor,
		Payload:       stored.Data,
	}, nil
}

func attr(msg *gcppubsub.Message, key string) string {
	return strings.TrimSpace(msg.Attributes[key])
}
