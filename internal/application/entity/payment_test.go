package entity

import (
	"testing"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPayment(t *testing.T) *Payment {
	t.Helper()
	userID := uuid.Must(uuid.NewV4())
	accountID := uuid.Must(uuid.NewV4())
	p, err := NewPayment(userID, accountID, "USD", "EUR", 1250, 1150, "0.92")
	require.NoError(t, err)
	return p
}

func TestNewPayment(t *testing.T) {
	p := newTestPayment(t)

	assert.NotEqual(t, uuid.Nil, p.PaymentID)
	assert.Equal(t, StatusToPay, p.Status)
	assert.Equal(t, int64(1250), p.SourceAmount)
	assert.Equal(t, int64(1150), p.TargetAmount)
	assert.False(t, p.IsRemoved)
	assert.False(t, p.IsEmailSent)

	// placed but not yet committed
	assert.Equal(t, int64(0), p.Version())
	require.Len(t, p.UncommittedEvents(), 1)
	assert.Equal(t, PaymentPlacedType, p.UncommittedEvents()[0].EventType())
}

func TestPaymentMarkCommitted(t *testing.T) {
	p := newTestPayment(t)

	p.MarkCommitted(1)
	assert.Equal(t, int64(1), p.Version())
	assert.Empty(t, p.UncommittedEvents())
}

func TestPaymentChangeStatus(t *testing.T) {
	p := newTestPayment(t)
	p.MarkCommitted(1)

	require.NoError(t, p.ChangeStatus(StatusProcessing))
	assert.Equal(t, StatusProcessing, p.Status)
	require.Len(t, p.UncommittedEvents(), 1)

	// same status again raises nothing
	require.NoError(t, p.ChangeStatus(StatusProcessing))
	assert.Len(t, p.UncommittedEvents(), 1)

	err := p.ChangeStatus(PaymentStatus("Bogus"))
	assert.Error(t, err)
	assert.Len(t, p.UncommittedEvents(), 1)
}

func TestPaymentChangeStatusAfterRemove(t *testing.T) {
	p := newTestPayment(t)
	p.MarkCommitted(1)

	p.Remove()
	assert.True(t, p.IsRemoved)

	err := p.ChangeStatus(StatusCompleted)
	assert.Error(t, err)
}

func TestPaymentIdempotentOperations(t *testing.T) {
	p := newTestPayment(t)
	p.MarkCommitted(1)

	p.MarkEmailNotified()
	p.MarkEmailNotified()
	assert.True(t, p.IsEmailSent)
	assert.Len(t, p.UncommittedEvents(), 1)

	p.Remove()
	p.Remove()
	assert.True(t, p.IsRemoved)
	assert.Len(t, p.UncommittedEvents(), 2)
}

func TestReplayPayment(t *testing.T) {
	p := newTestPayment(t)

	var history []Event
	for i, ev := range p.UncommittedEvents() {
		history = append(history, Event{AggregateID: p.PaymentID, Version: int64(i + 1), Payload: ev})
	}
	p.MarkCommitted(int64(len(history)))

	require.NoError(t, p.ChangeStatus(StatusProcessing))
	p.MarkEmailNotified()
	for _, ev := range p.UncommittedEvents() {
		history = append(history, Event{AggregateID: p.PaymentID, Version: int64(len(history) + 1), Payload: ev})
	}

	replayed, err := ReplayPayment(history)
	require.NoError(t, err)

	assert.Equal(t, p.PaymentID, replayed.PaymentID)
	assert.Equal(t, StatusProcessing, replayed.Status)
	assert.True(t, replayed.IsEmailSent)
	assert.Equal(t, int64(3), replayed.Version())
	assert.Empty(t, replayed.UncommittedEvents())
}
