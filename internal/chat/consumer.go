package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/mvalverde/agrolink-backend/internal/chat/fanout"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

const chatConsumerName = "chat-fanout"

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer bridges the chat Pub/Sub subscription onto the in-process
// fan-out broker so connected stream clients see new messages live.
type Consumer struct {
	subscription *gcppubsub.Subscriber
	broker       *fanout.Broker
	manager      idempotencyChecker
	logg         *logger.Logger
	maxBackoff   time.Duration
}

// NewConsumer builds a chat fan-out consumer.
func NewConsumer(subscription *gcppubsub.Subscriber, broker *fanout.Broker, manager idempotencyChecker, logg *logger.Logger, maxBackoff time.Duration) (*Consumer, error) {
	if subscription == nil {
		return nil, errors.New("chat subscription required")
	}
	if broker == nil {
		return nil, errors.New("fanout broker required")
	}
	if manager == nil {
		return nil, errors.New("idempotency manager required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	return &Consumer{
		subscription: subscription,
		broker:       broker,
		manager:      manager,
		logg:         logg,
		maxBackoff:   maxBackoff,
	}, nil
}

// Run consumes chat events until the context is canceled, reconnecting
// with exponential backoff when the streaming pull drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := retry.WithCappedDuration(c.maxBackoff, retry.NewExponential(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
			if c.process(innerCtx, msg) {
				msg.Nack()
				return
			}
			msg.Ack()
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logg.Error(ctx, "chat subscription receive failed", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// process returns true when the message should be redelivered.
func (c *Consumer) process(ctx context.Context, msg *gcppubsub.Message) bool {
	fields := map[string]any{"message_id": msg.ID}
	for key, value := range msg.Attributes {
		fields[key] = value
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType := msg.Attributes["event_type"]; eventType != string(enums.EventChatMessageCreated) {
		c.logg.Info(logCtx, "event not handled by chat consumer")
		return false
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Warn(logCtx, "invalid chat envelope")
		return false
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Warn(logCtx, "invalid event id")
		return false
	}

	already, err := c.manager.CheckAndMarkProcessed(logCtx, chatConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return true
	}
	if already {
		c.logg.Info(logCtx, "chat event already processed")
		return false
	}

	var payload payloads.ChatMessageCreatedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Warn(logCtx, fmt.Sprintf("invalid chat payload: %v", err))
		return false
	}

	c.broker.Publish(fanout.Message{
		MessageID:  payload.MessageID,
		ChatRoomID: payload.ChatRoomID,
		SenderID:   payload.SenderID,
		SenderName: payload.SenderName,
		SenderRole: payload.SenderRole,
		Content:    payload.Content,
		CreatedAt:  payload.CreatedAt,
	})
	c.logg.Info(logCtx, "chat message fanned out")
	return false
}
