package router

import (
	"context"
	"fmt"

	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
	analyticswriter "github.com/mvalverde/agrolink-backend/internal/analytics/writer"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
	"github.com/mvalverde/agrolink-backend/pkg/outbox/payloads"
)

type requestApprovedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newRequestApprovedHandler(writer Writer, logg *logger.Logger) Handler {
	return &requestApprovedHandler{writer: writer, logg: logg}
}

func (h *requestApprovedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.RequestApprovedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for request_approved")
	}

	fields := map[string]any{
		"event_type":  envelope.EventType,
		"request_id":  event.RequestID,
		"approved_by": event.ApprovedBy,
		"lines":       len(event.Lines),
	}
	logCtx := h.logg.WithFields(ctx, fields)

	linesJSON, err := analyticswriter.EncodeJSON(event.Lines)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode lines json", err)
		return fmt.Errorf("encode lines json: %w", err)
	}
	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode payload json", err)
		return fmt.Errorf("encode payload json: %w", err)
	}

	row := baseRow(envelope)
	row.RequestID = uuidPtr(event.RequestID)
	if row.ActorUserID == nil {
		row.ActorUserID = uuidPtr(event.ApprovedBy)
	}
	row.Lines = linesJSON
	row.Payload = payloadJSON

	if err := h.writer.InsertMarketplace(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert marketplace row", err)
		return err
	}

	h.logg.Info(logCtx, "request_approved handler inserted marketplace row")
	return nil
}
