package outbox

import (
	"encoding/json"
	"time"
)

// Actor identifies the customer whose action produced the event.
type Actor struct {
	UserUID string `json:"userUid"`
	Email   string `json:"email,omitempty"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events
// and published verbatim as the Pub/Sub message body.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
