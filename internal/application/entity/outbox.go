package entity

import (
	"time"

	"github.com/gofrs/uuid"
)

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "PENDING"
	OutboxProcessing OutboxStatus = "PROCESSING"
	OutboxCompleted  OutboxStatus = "COMPLETED"
	OutboxFailed     OutboxStatus = "FAILED"
)

// OutboxMessage is one staged notification. Transitions are strictly
// PENDING -> PROCESSING -> COMPLETED, or back to PENDING on a retryable
// failure (RetryCount incremented), or FAILED once the retry ceiling is hit.
type OutboxMessage struct {
	ID           uuid.UUID    `db:"id"`
	EntityType   string       `db:"entity_type"`
	EntityID     string       `db:"entity_id"`
	EventType    string       `db:"event_type"`
	Payload      []byte       `db:"payload"`
	Topic        string       `db:"topic"`
	Status       OutboxStatus `db:"status"`
	RetryCount   int          `db:"retry_count"`
	CreatedAt    time.Time    `db:"created_at"`
	ProcessedAt  *time.Time   `db:"processed_at"`
	ErrorMessage string       `db:"error_message"`
}

func NewOutboxMessage(entityType, entityID, eventType, topic string, payload []byte) (OutboxMessage, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return OutboxMessage{}, err
	}
	return OutboxMessage{
		ID:         id,
		EntityType: entityType,
		EntityID:   entityID,
		EventType:  eventType,
		Payload:    payload,
		Topic:      topic,
		Status:     OutboxPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
