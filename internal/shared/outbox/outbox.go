package outbox

import "time"

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusRejected  Status = "rejected"
)

// Message is one outbox row. A relay reads pending rows in CreatedAt order and
// settles each one as delivered or rejected.
type Message struct {
	ID        string
	EventType string
	Payload   []byte
	Status    Status
	Attempts  int
	LastError string
	CreatedAt time.Time
	SettledAt *time.Time
}
