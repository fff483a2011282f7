package entity

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainEventCodecRoundTrip(t *testing.T) {
	placed := PaymentPlaced{
		PaymentID:      uuid.Must(uuid.NewV4()),
		UserID:         uuid.Must(uuid.NewV4()),
		UserAccountID:  uuid.Must(uuid.NewV4()),
		SourceCurrency: "USD",
		TargetCurrency: "EUR",
		SourceAmount:   1250,
		TargetAmount:   1150,
		ExchangeRate:   "0.92",
		PlacedAt:       time.Now().UTC().Truncate(time.Second),
	}

	raw, err := MarshalDomainEvent(placed)
	require.NoError(t, err)

	decoded, err := UnmarshalDomainEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, placed, decoded)

	// decoded value must be usable in the aggregate's apply switch,
	// so it has to be the value type, not a pointer
	_, ok := decoded.(PaymentPlaced)
	assert.True(t, ok)
}

func TestUnmarshalDomainEventUnknownType(t *testing.T) {
	_, err := UnmarshalDomainEvent([]byte(`{"eventType":"payment_exploded","data":{}}`))
	assert.Error(t, err)
}

func TestCDCTopic(t *testing.T) {
	assert.Equal(t, "cdc.payment", CDCTopic("Payment"))
	assert.Equal(t, "cdc.payment", CDCTopic("payment"))
	assert.Equal(t, "cdc.useraccount", CDCTopic("UserAccount"))
}
