package router

import (
	"github.com/google/uuid"
	"github.com/mvalverde/agrolink-backend/internal/analytics/types"
)

func stringPtr(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func uuidPtr(id uuid.UUID) *string {
	if id == uuid.Nil {
		return nil
	}
	value := id.String()
	return &value
}

func int64Ptr(value int) *int64 {
	converted := int64(value)
	return &converted
}

// baseRow fills the columns shared by every marketplace event.
func baseRow(envelope types.Envelope) types.MarketplaceEventRow {
	row := types.MarketplaceEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		AggregateType: string(envelope.AggregateType),
		AggregateID:   envelope.AggregateID,
		OccurredAt:    envelope.OccurredAt,
	}
	if actor := envelope.Actor; actor != nil {
		row.ActorUserID = uuidPtr(actor.UserID)
		row.ActorRole = stringPtr(actor.Role)
	}
	return row
}
