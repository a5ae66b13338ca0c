package types

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/mvalverde/agrolink-backend/pkg/enums"
	"github.com/mvalverde/agrolink-backend/pkg/outbox"
)

// Envelope is the message shape the outbox publisher puts on Pub/Sub
// and the analytics worker reads back off it.
type Envelope struct {
	Version       int                       `json:"version"`
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Actor         *outbox.ActorRef          `json:"actor,omitempty"`
	Payload       json.RawMessage           `json:"payload"`
}

// PayloadMap decodes the raw payload for keyed access. An empty or
// missing payload yields an empty map rather than an error.
func (e Envelope) PayloadMap() (map[string]any, error) {
	if len(bytes.TrimSpace(e.Payload)) == 0 {
		return map[string]any{}, nil
	}
	var out map[string]any
	if err := json.Unmarshal(e.Payload, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
