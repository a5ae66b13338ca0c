package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/registry"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics handlers.
type Writer interface {
	InsertMarketplace(ctx context.Context, row types.MarketplaceEventRow) error
}

// Handler receives an envelope plus a decoded event payload.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope, payload any) error
}

// Router dispatches analytics envelopes to the handler for their event
// type. Payload decoding goes through a versioned decoder registry, so
// an envelope schema bump registers a new decoder instead of forking
// the handlers.
type Router struct {
	handlers map[enums.OutboxEventType]Handler
	decoders *registry.DecoderRegistry
	logg     *logger.Logger
}

func decodeInto(factory func() any) func(json.RawMessage) (any, error) {
	return func(payload json.RawMessage) (any, error) {
		if len(payload) == 0 {
			return nil, errors.New("empty payload")
		}
		target := factory()
		if err := json.Unmarshal(payload, target); err != nil {
			return nil, err
		}
		return target, nil
	}
}

// NewRouter wires the default handlers and allows overrides for specific events.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	handlers := map[enums.OutboxEventType]Handler{
		enums.EventOrderPlaced:        newOrderPlacedHandler(writer, logg),
		enums.EventOrderApproved:      newOrderApprovedHandler(writer, logg),
		enums.EventRequestSubmitted:   newRequestSubmittedHandler(writer, logg),
		enums.EventRequestApproved:    newRequestApprovedHandler(writer, logg),
		enums.EventUserRegistered:     newUserRegisteredHandler(writer, logg),
		enums.EventChatMessageCreated: newChatMessageHandler(writer, logg),
	}

	decoders := registry.NewDecoderRegistry()
	decoders.Register(enums.EventOrderPlaced, 1, decodeInto(func() any { return &payloads.OrderPlacedEvent{} }))
	decoders.Register(enums.EventOrderApproved, 1, decodeInto(func() any { return &payloads.OrderApprovedEvent{} }))
	decoders.Register(enums.EventRequestSubmitted, 1, decodeInto(func() any { return &payloads.RequestSubmittedEvent{} }))
	decoders.Register(enums.EventRequestApproved, 1, decodeInto(func() any { return &payloads.RequestApprovedEvent{} }))
	decoders.Register(enums.EventUserRegistered, 1, decodeInto(func() any { return &payloads.UserRegisteredEvent{} }))
	decoders.Register(enums.EventChatMessageCreated, 1, decodeInto(func() any { return &payloads.ChatMessageCreatedEvent{} }))

	for event, custom := range overrides {
		if _, ok := handlers[event]; !ok || custom == nil {
			continue
		}
		handlers[event] = custom
	}

	return &Router{
		handlers: handlers,
		decoders: decoders,
		logg:     logg,
	}, nil
}

// Handle dispatches the incoming envelope to the configured handler.
func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	handler, ok := r.handlers[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}

	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := r.decoders.Decode(envelope.EventType, version, envelope.Payload)
	if err != nil {
		return fmt.Errorf("decode %s@v%d payload: %w", envelope.EventType, version, err)
	}

	return handler.Handle(ctx, envelope, payload)
}
