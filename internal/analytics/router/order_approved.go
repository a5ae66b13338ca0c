package router

import (
	"context"
	"fmt"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	analyticswriter "github.com/mvalverde/agrolink-backend/internal/analytics/writer"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

type orderApprovedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderApprovedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderApprovedHandler{writer: writer, logg: logg}
}

func (h *orderApprovedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderApprovedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_approved")
	}

	fields := map[string]any{
		"event_type":  envelope.EventType,
		"order_id":    event.OrderID,
		"approved_by": event.ApprovedBy,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload json", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.OrderID = uuidPtr(event.OrderID)
	row.CropID = uuidPtr(event.CropID)
	if row.ActorUserID == nil {
		row.ActorUserID = uuidPtr(event.ApprovedBy)
	}
	row.Payload = payloadJSON

	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert marketplace row", err)
		return err
	}

	h.logg.Info(logCtx, "order_approved handler inserted marketplace row")
	return nil
}
