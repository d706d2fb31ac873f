package events

import (
	"encoding/json"
	"time"
)

const (
	TypeVoteTokenIssued = "vote_token.issued"
	PayloadVersion      = 1
)

// Envelope wraps a payload written to an outbox. Payload stays raw so relays
// can decode it into the type named by EventType.
type Envelope struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	SourceService  string          `json:"source_service"`
	OccurredAtUTC  time.Time       `json:"occurred_at_utc"`
	PartitionKey   string          `json:"partition_key"`
	PayloadVersion int             `json:"payload_version"`
	Payload        json.RawMessage `json:"payload"`
}

func NewEnvelope(eventID string, eventType string, source string, partitionKey string, occurredAt time.Time, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:        eventID,
		EventType:      eventType,
		SourceService:  source,
		OccurredAtUTC:  occurredAt.UTC(),
		PartitionKey:   partitionKey,
		PayloadVersion: PayloadVersion,
		Payload:        raw,
	}, nil
}
