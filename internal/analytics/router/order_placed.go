package router

import (
	"context"
	"fmt"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	analyticswriter "github.com/mvalverde/agrolink-backend/internal/analytics/writer"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

type orderPlacedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderPlacedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderPlacedHandler{writer: writer, logg: logg}
}

func (h *orderPlacedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderPlacedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_placed")
	}

	fields := map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"crop_id":    event.CropID,
		"buyer_id":   event.UserID,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildOrderPlacedRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build marketplace row", err)
		return err
	}

	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert marketplace row", err)
		return err
	}

	h.logg.Info(logCtx, "order_placed handler inserted marketplace row")
	return nil
}

func buildOrderPlacedRow(envelope types.Envelope, event *payloads.OrderPlacedEvent) (types.MarketplaceEventRow, error) {
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.MarketplaceEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.OrderID = uuidPtr(event.OrderID)
	row.UserID = uuidPtr(event.UserID)
	row.CropID = uuidPtr(event.CropID)
	row.CropName = stringPtr(event.CropName)
	row.AmountLbs = int64Ptr(event.Amount)
	row.RemainingLbs = int64Ptr(event.RemainingAmount)
	row.Payload = payloadJSON
	return row, nil
}
