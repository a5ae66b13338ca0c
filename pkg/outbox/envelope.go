package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef names the user whose action produced the event. System
// events, such as cron sweeps, omit it.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// PayloadEnvelope is the versioned payload stored in outbox_events.
// Consumers key on Version, so adding fields is safe and renaming
// them is not.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
