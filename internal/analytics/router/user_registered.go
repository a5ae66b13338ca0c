package router

import (
	"context"
	"fmt"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	analyticswriter "github.com/mvalverde/agrolink-backend/internal/analytics/writer"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

type userRegisteredHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newUserRegisteredHandler(writer Writer, logg *logger.Logger) Handler {
	return &userRegisteredHandler{writer: writer, logg: logg}
}

func (h *userRegisteredHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.UserRegisteredEvent)
	if !ok {
		return fmt.Errorf("invalid payload for user_registered")
	}

	fields := map[string]any{
		"event_type": envelope.EventType,
		"user_id":    event.UserID,
		"role":       event.Role,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	// Email stays out of the warehouse; the role is what the dashboard needs.
	payloadJSON, err := analyticswriter.EncodeJSON(map[string]any{
		"user_id": event.UserID,
		"role":    event.Role,
	})
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload json", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.UserID = uuidPtr(event.UserID)
	row.ActorRole = stringPtr(string(event.Role))
	row.Payload = payloadJSON

	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert marketplace row", err)
		return err
	}

	h.logg.Info(logCtx, "user_registered handler inserted marketplace row")
	return nil
}
