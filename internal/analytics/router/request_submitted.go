package router

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	analyticswriter "github.com/mvalverde/agrolink-backend/internal/analytics/writer"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

type requestSubmittedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newRequestSubmittedHandler(writer Writer, logg *logger.Logger) Handler {
	return &requestSubmittedHandler{writer: writer, logg: logg}
}

func (h *requestSubmittedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.RequestSubmittedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for request_submitted")
	}

	fields := map[string]any{
		"event_type": envelope.EventType,
		"request_id": event.RequestID,
		"farmer_id":  event.UserID,
		"lines":      len(event.Lines),
	}
	logCtx := h.logg.WithFields(ctx, fields)

	row, err := buildRequestSubmittedRow(envelope, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build marketplace row", err)
		return err
	}

	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert marketplace row", err)
		return err
	}

	h.logg.Info(logCtx, "request_submitted handler inserted marketplace row")
	return nil
}

func buildRequestSubmittedRow(envelope types.Envelope, event *payloads.RequestSubmittedEvent) (types.MarketplaceEventRow, error) {
	linesJSON, err := analyticswriter.EncodeJSON(event.Lines)
	if err != nil {
		return types.MarketplaceEventRow{}, fmt.Errorf("encode lines json: %w", err)
	}
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		return types.MarketplaceEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	payout := event.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	row := baseRow(envelope)
	row.RequestID = uuidPtr(event.RequestID)
	row.UserID = uuidPtr(event.UserID)
	row.PayoutCents = &payout
	row.Lines = linesJSON
	row.Payload = payloadJSON
	return row, nil
}
