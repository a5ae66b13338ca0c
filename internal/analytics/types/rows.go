package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// MarketplaceEventRow mirrors the marketplace_events BigQuery schema.
// Every outbox event lands here; columns that do not apply to an event
// type stay NULL.
type MarketplaceEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	AggregateType string             `bigquery:"aggregate_type"`
	AggregateID   string             `bigquery:"aggregate_id"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	ActorUserID   *string            `bigquery:"actor_user_id"`
	ActorRole     *string            `bigquery:"actor_role"`
	OrderID       *string            `bigquery:"order_id"`
	RequestID     *string            `bigquery:"request_id"`
	ChatRoomID    *string            `bigquery:"chat_room_id"`
	UserID        *string            `bigquery:"user_id"`
	CropID        *string            `bigquery:"crop_id"`
	CropName      *string            `bigquery:"crop_name"`
	AmountLbs     *int64             `bigquery:"amount_lbs"`
	RemainingLbs  *int64             `bigquery:"remaining_lbs"`
	PayoutCents   *int64             `bigquery:"payout_cents"`
	Lines         cbigquery.NullJSON `bigquery:"lines"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}
