package projection

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"payments/internal/application/entity"
	"payments/internal/application/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func paymentData(id string, status entity.PaymentStatus, version int64) entity.PaymentCDCData {
	return entity.PaymentCDCData{
		PaymentID:      id,
		UserID:         "u-1",
		UserAccountID:  "a-1",
		SourceCurrency: "USD",
		TargetCurrency: "EUR",
		SourceAmount:   1250,
		TargetAmount:   1150,
		ExchangeRate:   "0.92",
		Status:         status,
		CreateDate:     time.Now().UTC(),
		Version:        version,
		CapturedAt:     time.Now().UTC(),
	}
}

func envelope(t *testing.T, op entity.CDCOperation, data any, id string, version int64) entity.CDCEnvelope {
	t.Helper()
	env := entity.CDCEnvelope{
		EventID:    "ev-" + id,
		EntityType: "Payment",
		EntityID:   id,
		Operation:  op,
		Version:    version,
		Timestamp:  time.Now().UTC(),
		Source:     "payments-service",
	}
	if data != nil {
		raw, err := json.Marshal(data)
		require.NoError(t, err)
		env.Data = raw
	}
	return env
}

func TestApplyCreate(t *testing.T) {
	ctx := context.Background()
	store := repo.NewReadStore(testLogger())
	p := NewProjector(store, testLogger())

	env := envelope(t, entity.CDCCreate, paymentData("p-1", entity.StatusToPay, 1), "p-1", 1)
	require.NoError(t, p.Apply(ctx, env))

	model, ok := store.GetByID(ctx, "p-1")
	require.True(t, ok)
	assert.Equal(t, entity.StatusToPay, model.Status)
	assert.Equal(t, "Payment created and waiting to be processed", model.StatusDescription)
	assert.Equal(t, int64(1), model.Version)
}

func TestApplyCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := repo.NewReadStore(testLogger())
	p := NewProjector(store, testLogger())

	env := envelope(t, entity.CDCCreate, paymentData("p-1", entity.StatusToPay, 1), "p-1", 1)
	require.NoError(t, p.Apply(ctx, env))
	require.NoError(t, p.Apply(ctx, env))

	assert.Equal(t, 1, store.Count(ctx))
}

func TestApplyUpdateMerges(t *testing.T) {
	ctx := context.Background()
	store := repo.NewReadStore(testLogger())
	p := NewProjector(store, testLogger())

	require.NoError(t, p.Apply(ctx, envelope(t, entity.CDCCreate, paymentData("p-1", entity.StatusToPay, 1), "p-1", 1)))

	update := paymentData("p-1", entity.StatusProcessing, 2)
	require.NoError(t, p.Apply(ctx, envelope(t, entity.CDCUpdate, update, "p-1", 2)))

	model, ok := store.GetByID(ctx, "p-1")
	require.True(t, ok)
	assert.Equal(t, entity.StatusProcessing, model.Status)
	assert.Equal(t, "Payment is being processed", model.StatusDescription)
	assert.Equal(t, int64(2), model.Version)
}

func TestApplyUpdateBeforeCreateSynthesizes(t *testing.T) {
	ctx := context.Background()
	store := repo.NewReadStore(testLogger())
	p := NewProjector(store, testLogger())

	// out-of-order delivery: update lands first
	update := paymentData("p-1", entity.StatusProcessing, 2)
	require.NoError(t, p.Apply(ctx, envelope(t, entity.CDCUpdate, update, "p-1", 2)))

	model, ok := store.GetByID(ctx, "p-1")
	require.True(t, ok)
	assert.Equal(t, entity.StatusProcessing, model.Status)
	assert.Equal(t, "USD", model.SourceCurrency)
}

func TestApplyDelete(t *testing.T) {
	ctx := context.Background()
	store := repo.NewReadStore(testLogger())
	p := NewProjector(store, testLogger())

	require.NoError(t, p.Apply(ctx, envelope(t, entity.CDCCreate, paymentData("p-1", entity.StatusToPay, 1), "p-1", 1)))
	require.NoError(t, p.Apply(ctx, envelope(t, entity.CDCDelete, nil, "p-1", 2)))

	_, ok := store.GetByID(ctx, "p-1")
	assert.False(t, ok)

	// deleting again is a no-op
	require.NoError(t, p.Apply(ctx, envelope(t, entity.CDCDelete, nil, "p-1", 2)))
}

func TestApplyUnknownOperationIsSkipped(t *testing.T) {
	ctx := context.Background()
	store := repo.NewReadStore(testLogger())
	p := NewProjector(store, testLogger())

	env := envelope(t, entity.CDCOperation("truncate"), nil, "p-1", 1)
	assert.NoError(t, p.Apply(ctx, env))
	assert.Zero(t, store.Count(ctx))
}

func TestApplyCreateMalformedData(t *testing.T) {
	ctx := context.Background()
	store := repo.NewReadStore(testLogger())
	p := NewProjector(store, testLogger())

	env := envelope(t, entity.CDCCreate, nil, "p-1", 1)
	env.Data = json.RawMessage(`{"paymentId":`)
	assert.Error(t, p.Apply(ctx, env))
	assert.Zero(t, store.Count(ctx))
}
