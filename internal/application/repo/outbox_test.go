package repo

import (
	"context"
	"testing"
	"time"

	"payments/internal/application/entity"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func enqueueN(t *testing.T, o *MemoryOutbox, n int) []entity.OutboxMessage {
	t.Helper()
	msgs := make([]entity.OutboxMessage, 0, n)
	for i := 0; i < n; i++ {
		msg, err := entity.NewOutboxMessage("Payment", uuid.Must(uuid.NewV4()).String(), "create", "cdc.payment", []byte(`{}`))
		require.NoError(t, err)
		require.NoError(t, o.Enqueue(context.Background(), msg))
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestDequeuePendingFIFO(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox(testLogger())
	staged := enqueueN(t, o, 5)

	got, err := o.DequeuePending(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range got {
		assert.Equal(t, staged[i].ID, got[i].ID)
		assert.Equal(t, entity.OutboxPending, got[i].Status)
	}
}

func TestStatusTransitions(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox(testLogger())
	msg := enqueueN(t, o, 1)[0]

	require.NoError(t, o.MarkProcessing(ctx, msg.ID))
	pending, err := o.DequeuePending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "PROCESSING must not be dequeued")

	// retryable failure puts the message back in line
	require.NoError(t, o.MarkFailed(ctx, msg.ID, "broker unavailable"))
	pending, err = o.DequeuePending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, "broker unavailable", pending[0].ErrorMessage)

	require.NoError(t, o.MarkProcessing(ctx, msg.ID))
	require.NoError(t, o.MarkCompleted(ctx, msg.ID))
	pending, err = o.DequeuePending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMarkTerminallyFailed(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox(testLogger())
	msg := enqueueN(t, o, 1)[0]

	require.NoError(t, o.MarkTerminallyFailed(ctx, msg.ID, "max retry count exceeded"))

	pending, err := o.DequeuePending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "FAILED is terminal")

	count, err := o.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTransitionUnknownMessage(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox(testLogger())

	err := o.MarkCompleted(ctx, uuid.Must(uuid.NewV4()))
	assert.ErrorIs(t, err, ErrOutboxMessageNotFound)
}

func TestPurgeFinished(t *testing.T) {
	ctx := context.Background()
	o := NewMemoryOutbox(testLogger())
	msgs := enqueueN(t, o, 3)

	require.NoError(t, o.MarkCompleted(ctx, msgs[0].ID))
	require.NoError(t, o.MarkTerminallyFailed(ctx, msgs[1].ID, "boom"))
	// msgs[2] stays pending

	purged, err := o.PurgeFinished(ctx, -time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	count, err := o.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// finished messages inside the retention window survive
	require.NoError(t, o.MarkCompleted(ctx, msgs[2].ID))
	purged, err = o.PurgeFinished(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, purged)
}
