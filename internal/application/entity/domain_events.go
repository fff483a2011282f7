package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

type DomainEventType string

const (
	PaymentPlacedType        DomainEventType = "payment_placed"
	PaymentStatusChangedType DomainEventType = "payment_status_changed"
	PaymentEmailNotifiedType DomainEventType = "payment_email_notified"
	PaymentRemovedType       DomainEventType = "payment_removed"
)

// DomainEvent is a closed set of payment events. Adding a variant requires
// extending the aggregate's apply switch and the JSON codec below.
type DomainEvent interface {
	EventType() DomainEventType
}

type PaymentPlaced struct {
	PaymentID      uuid.UUID `json:"paymentId"`
	UserID         uuid.UUID `json:"userId"`
	UserAccountID  uuid.UUID `json:"userAccountId"`
	SourceCurrency string    `json:"sourceCurrency"`
	TargetCurrency string    `json:"targetCurrency"`
	SourceAmount   int64     `json:"sourceAmount"`
	TargetAmount   int64     `json:"targetAmount"`
	ExchangeRate   string    `json:"exchangeRate"`
	PlacedAt       time.Time `json:"placedAt"`
}

func (PaymentPlaced) EventType() DomainEventType { return PaymentPlacedType }

type PaymentStatusChanged struct {
	PaymentID uuid.UUID     `json:"paymentId"`
	Status    PaymentStatus `json:"status"`
	ChangedAt time.Time     `json:"changedAt"`
}

func (PaymentStatusChanged) EventType() DomainEventType { return PaymentStatusChangedType }

type PaymentEmailNotified struct {
	PaymentID  uuid.UUID `json:"paymentId"`
	NotifiedAt time.Time `json:"notifiedAt"`
}

func (PaymentEmailNotified) EventType() DomainEventType { return PaymentEmailNotifiedType }

type PaymentRemoved struct {
	PaymentID uuid.UUID `json:"paymentId"`
	RemovedAt time.Time `json:"removedAt"`
}

func (PaymentRemoved) EventType() DomainEventType { return PaymentRemovedType }

type domainEventEnvelope struct {
	EventType DomainEventType `json:"eventType"`
	Data      json.RawMessage `json:"data"`
}

func MarshalDomainEvent(ev DomainEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}
	return json.Marshal(domainEventEnvelope{EventType: ev.EventType(), Data: data})
}

func UnmarshalDomainEvent(raw []byte) (DomainEvent, error) {
	var env domainEventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unmarshal event envelope: %w", err)
	}

	var ev DomainEvent
	switch env.EventType {
	case PaymentPlacedType:
		ev = &PaymentPlaced{}
	case PaymentStatusChangedType:
		ev = &PaymentStatusChanged{}
	case PaymentEmailNotifiedType:
		ev = &PaymentEmailNotified{}
	case PaymentRemovedType:
		ev = &PaymentRemoved{}
	default:
		return nil, fmt.Errorf("unknown event type: %q", env.EventType)
	}
	if err := json.Unmarshal(env.Data, ev); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.EventType, err)
	}

	switch v := ev.(type) {
	case *PaymentPlaced:
		return *v, nil
	case *PaymentStatusChanged:
		return *v, nil
	case *PaymentEmailNotified:
		return *v, nil
	case *PaymentRemoved:
		return *v, nil
	}
	return nil, fmt.Errorf("unknown event type: %q", env.EventType)
}
