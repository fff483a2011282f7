package entity

import (
	"time"

	"github.com/gofrs/uuid"
)

// Event is one committed fact in an aggregate's stream. Versions within a
// stream are strictly increasing by 1 starting from 1.
type Event struct {
	AggregateID uuid.UUID   `json:"aggregateId"`
	Version     int64       `json:"version"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     DomainEvent `json:"payload"`
}
