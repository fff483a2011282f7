package entity

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

type PaymentStatus string

const (
	StatusToPay      PaymentStatus = "ToPay"
	StatusProcessing PaymentStatus = "Processing"
	StatusCompleted  PaymentStatus = "Completed"
	StatusFailed     PaymentStatus = "Failed"
	StatusCancelled  PaymentStatus = "Cancelled"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusToPay, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Payment is the write-side aggregate. State is reconstructed by replaying
// the event stream; domain operations append to the uncommitted buffer, which
// is cleared only when the event store durably accepts it.
type Payment struct {
	PaymentID      uuid.UUID
	UserID         uuid.UUID
	UserAccountID  uuid.UUID
	SourceCurrency string
	TargetCurrency string
	SourceAmount   int64
	TargetAmount   int64
	ExchangeRate   string
	Status         PaymentStatus
	CreateDate     time.Time
	IsRemoved      bool
	IsEmailSent    bool

	version     int64
	uncommitted []DomainEvent
}

// NewPayment places a new payment. Amounts are minor units of their currency.
func NewPayment(userID, userAccountID uuid.UUID, sourceCurrency, targetCurrency string, sourceAmount, targetAmount int64, exchangeRate string) (*Payment, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("new payment id: %w", err)
	}

	p := &Payment{}
	p.raise(PaymentPlaced{
		PaymentID:      id,
		UserID:         userID,
		UserAccountID:  userAccountID,
		SourceCurrency: sourceCurrency,
		TargetCurrency: targetCurrency,
		SourceAmount:   sourceAmount,
		TargetAmount:   targetAmount,
		ExchangeRate:   exchangeRate,
		PlacedAt:       time.Now().UTC(),
	})
	return p, nil
}

// ReplayPayment rebuilds the aggregate from its committed history.
// The history must be the full ordered stream as returned by the event store.
func ReplayPayment(history []Event) (*Payment, error) {
	p := &Payment{}
	for _, ev := range history {
		if err := p.apply(ev.Payload); err != nil {
			return nil, err
		}
		p.version++
	}
	return p, nil
}

// Version is the number of committed events this aggregate was built from.
func (p *Payment) Version() int64 { return p.version }

// UncommittedEvents are the domain events raised since load, in order.
func (p *Payment) UncommittedEvents() []DomainEvent { return p.uncommitted }

// MarkCommitted clears the uncommitted buffer and advances the version.
// Call only after the event store accepted the append.
func (p *Payment) MarkCommitted(newVersion int64) {
	p.version = newVersion
	p.uncommitted = nil
}

func (p *Payment) ChangeStatus(status PaymentStatus) error {
	if p.IsRemoved {
		return fmt.Errorf("payment %s is removed", p.PaymentID)
	}
	if !status.Valid() {
		return fmt.Errorf("unknown payment status: %q", status)
	}
	if p.Status == status {
		return nil
	}
	p.raise(PaymentStatusChanged{
		PaymentID: p.PaymentID,
		Status:    status,
		ChangedAt: time.Now().UTC(),
	})
	return nil
}

func (p *Payment) MarkEmailNotified() {
	if p.IsEmailSent {
		return
	}
	p.raise(PaymentEmailNotified{
		PaymentID:  p.PaymentID,
		NotifiedAt: time.Now().UTC(),
	})
}

func (p *Payment) Remove() {
	if p.IsRemoved {
		return
	}
	p.raise(PaymentRemoved{
		PaymentID: p.PaymentID,
		RemovedAt: time.Now().UTC(),
	})
}

func (p *Payment) raise(ev DomainEvent) {
	// a freshly raised event cannot be malformed, apply never fails here
	_ = p.apply(ev)
	p.uncommitted = append(p.uncommitted, ev)
}

func (p *Payment) apply(ev DomainEvent) error {
	switch e := ev.(type) {
	case PaymentPlaced:
		p.PaymentID = e.PaymentID
		p.UserID = e.UserID
		p.UserAccountID = e.UserAccountID
		p.SourceCurrency = e.SourceCurrency
		p.TargetCurrency = e.TargetCurrency
		p.SourceAmount = e.SourceAmount
		p.TargetAmount = e.TargetAmount
		p.ExchangeRate = e.ExchangeRate
		p.Status = StatusToPay
		p.CreateDate = e.PlacedAt
	case PaymentStatusChanged:
		p.Status = e.Status
	case PaymentEmailNotified:
		p.IsEmailSent = true
	case PaymentRemoved:
		p.IsRemoved = true
	default:
		return fmt.Errorf("unexpected event type %T", ev)
	}
	return nil
}
