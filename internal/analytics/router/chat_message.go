package router

import (
	"context"
	"fmt"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	analyticswriter "github.com/mvalverde/agrolink-backend/internal/analytics/writer"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

type chatMessageHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newChatMessageHandler(writer Writer, logg *logger.Logger) Handler {
	return &chatMessageHandler{writer: writer, logg: logg}
}

func (h *chatMessageHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.ChatMessageCreatedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for chat_message_created")
	}

	fields := map[string]any{
		"event_type":   envelope.EventType,
		"message_id":   event.MessageID,
		"chat_room_id": event.ChatRoomID,
		"sender_id":    event.SenderID,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	// Message content never leaves the primary store.
	payloadJSON, err := analyticswriter.EncodeJSON(map[string]any{
		"message_id":   event.MessageID,
		"chat_room_id": event.ChatRoomID,
		"sender_id":    event.SenderID,
		"sender_role":  event.SenderRole,
	})
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload json", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.ChatRoomID = uuidPtr(event.ChatRoomID)
	row.UserID = uuidPtr(event.SenderID)
	row.ActorRole = stringPtr(string(event.SenderRole))
	row.Payload = payloadJSON

	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert marketplace row", err)
		return err
	}

	h.logg.Info(logCtx, "chat_message_created handler inserted marketplace row")
	return nil
}
