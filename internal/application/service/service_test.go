package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"payments/internal/appers"
	"payments/internal/application/cdc"
	"payments/internal/application/entity"
	"payments/internal/application/eventstore"
	"payments/internal/application/projection"
	"payments/internal/application/repo"
	"payments/pkg/config"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeProducer fails the first failFirst calls, then succeeds.
type fakeProducer struct {
	failFirst int
	calls     int
	topics    []string
	keys      []string
	payloads  [][]byte
}

func (f *fakeProducer) ProduceMessage(ctx context.Context, topic, key string, message []byte) error {
	f.calls++
	if f.calls <= f.failFirst {
		return errors.New("broker unavailable")
	}
	f.topics = append(f.topics, topic)
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, message)
	return nil
}

func (f *fakeProducer) HealthCheck(ctx context.Context) error { return nil }

type fixture struct {
	svc       *ServiceImpl
	outbox    *repo.MemoryOutbox
	readStore *repo.ReadStore
	producer  *fakeProducer
}

func newFixture(t *testing.T, failFirst, maxAttempts int) *fixture {
	t.Helper()
	logger := testLogger()
	outbox := repo.NewMemoryOutbox(logger)
	readStore := repo.NewReadStore(logger)
	events := eventstore.New(logger)
	prod := &fakeProducer{failFirst: failFirst}
	publisher := cdc.NewPublisher(cdc.NewOutboxSink(outbox, logger), "payments-service", logger)

	cfg := &config.RelayConfig{Workers: 1, BatchSize: 10, MaxAttempts: maxAttempts}
	svc := NewService(events, outbox, readStore, publisher, prod, logger, cfg, config.Cron{}, nil)
	return &fixture{svc: svc, outbox: outbox, readStore: readStore, producer: prod}
}

func createPayment(t *testing.T, f *fixture) string {
	t.Helper()
	id, err := f.svc.CreatePayment(context.Background(), &entity.CreatePaymentRequest{
		UserID:         "4b4a569e-1f1f-4f2c-9f47-3a4f7d9a1c11",
		UserAccountID:  "7d2f95a8-6f31-43d0-8f0f-2f9f2f6e1b22",
		SourceCurrency: "USD",
		TargetCurrency: "EUR",
		SourceAmount:   "12.50",
		ExchangeRate:   "0.92",
	})
	require.NoError(t, err)
	return id
}

func dequeueOne(t *testing.T, f *fixture) entity.OutboxMessage {
	t.Helper()
	msgs, err := f.outbox.DequeuePending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	return msgs[0]
}

func TestCreatePaymentStagesCDCCreate(t *testing.T) {
	f := newFixture(t, 0, 3)
	id := createPayment(t, f)

	msg := dequeueOne(t, f)
	assert.Equal(t, "cdc.payment", msg.Topic)
	assert.Equal(t, id, msg.EntityID)
	assert.Equal(t, "create", msg.EventType)

	var env entity.CDCEnvelope
	require.NoError(t, json.Unmarshal(msg.Payload, &env))
	assert.Equal(t, entity.CDCCreate, env.Operation)
	assert.Equal(t, int64(1), env.Version)

	var data entity.PaymentCDCData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(1250), data.SourceAmount)
	assert.Equal(t, int64(1150), data.TargetAmount)
	assert.Equal(t, entity.StatusToPay, data.Status)
}

func TestCreatePaymentSameCurrencyNeedsNoRate(t *testing.T) {
	f := newFixture(t, 0, 3)
	_, err := f.svc.CreatePayment(context.Background(), &entity.CreatePaymentRequest{
		UserID:         "4b4a569e-1f1f-4f2c-9f47-3a4f7d9a1c11",
		UserAccountID:  "7d2f95a8-6f31-43d0-8f0f-2f9f2f6e1b22",
		SourceCurrency: "USD",
		TargetCurrency: "USD",
		SourceAmount:   "10.00",
	})
	require.NoError(t, err)

	msg := dequeueOne(t, f)
	var env entity.CDCEnvelope
	require.NoError(t, json.Unmarshal(msg.Payload, &env))
	var data entity.PaymentCDCData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, data.SourceAmount, data.TargetAmount)
	assert.Equal(t, "1.00", data.ExchangeRate)
}

func TestChangeStatusPublishesUpdateWithOldData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, 3)
	id := createPayment(t, f)
	require.NoError(t, f.outbox.MarkCompleted(ctx, dequeueOne(t, f).ID))

	require.NoError(t, f.svc.ChangePaymentStatus(ctx, id, entity.StatusProcessing))

	msg := dequeueOne(t, f)
	var env entity.CDCEnvelope
	require.NoError(t, json.Unmarshal(msg.Payload, &env))
	assert.Equal(t, entity.CDCUpdate, env.Operation)
	assert.Equal(t, int64(2), env.Version)

	var data, oldData entity.PaymentCDCData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NoError(t, json.Unmarshal(env.OldData, &oldData))
	assert.Equal(t, entity.StatusProcessing, data.Status)
	assert.Equal(t, entity.StatusToPay, oldData.Status)
}

func TestChangeStatusNoopStagesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, 3)
	id := createPayment(t, f)
	require.NoError(t, f.outbox.MarkCompleted(ctx, dequeueOne(t, f).ID))

	require.NoError(t, f.svc.ChangePaymentStatus(ctx, id, entity.StatusToPay))

	count, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRemovePaymentPublishesDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, 3)
	id := createPayment(t, f)
	require.NoError(t, f.outbox.MarkCompleted(ctx, dequeueOne(t, f).ID))

	require.NoError(t, f.svc.RemovePayment(ctx, id))

	msg := dequeueOne(t, f)
	var env entity.CDCEnvelope
	require.NoError(t, json.Unmarshal(msg.Payload, &env))
	assert.Equal(t, entity.CDCDelete, env.Operation)
	assert.Nil(t, env.Data)

	// further status changes on a removed payment are rejected
	err := f.svc.ChangePaymentStatus(ctx, id, entity.StatusCompleted)
	assert.ErrorIs(t, err, appers.ErrPaymentRemoved)
}

func TestChangeStatusUnknownPayment(t *testing.T) {
	f := newFixture(t, 0, 3)
	err := f.svc.ChangePaymentStatus(context.Background(), "4b4a569e-1f1f-4f2c-9f47-3a4f7d9a1c11", entity.StatusProcessing)
	assert.ErrorIs(t, err, appers.ErrAggregateNotFound)
}

func TestGetPaymentNotFound(t *testing.T) {
	f := newFixture(t, 0, 3)
	_, err := f.svc.GetPayment(context.Background(), "p-unknown")
	assert.ErrorIs(t, err, appers.ErrPaymentNotFound)
}

func TestRelayRetriesThenCompletes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2, 3) // first two produce calls fail
	createPayment(t, f)

	// three relay passes: fail, fail, succeed
	var msgID uuid.UUID
	for i := 0; i < 3; i++ {
		msgs, err := f.outbox.DequeuePending(ctx, 10)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		msgID = msgs[0].ID
		f.svc.ProcessOne(ctx, 0, msgs[0])
	}

	pending, err := f.outbox.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	msg, ok := f.outbox.Get(ctx, msgID)
	require.True(t, ok)
	assert.Equal(t, entity.OutboxCompleted, msg.Status)
	assert.Equal(t, 2, msg.RetryCount)

	require.Len(t, f.producer.topics, 1)
	assert.Equal(t, "cdc.payment", f.producer.topics[0])
	assert.Equal(t, 3, f.producer.calls)
}

func TestRelayRunDefaultsPollPeriod(t *testing.T) {
	f := newFixture(t, 0, 3) // PollPeriod left zero on purpose

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.svc.RelayRun(ctx)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}

func TestRelayParksAfterRetryCeiling(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, 3) // producer never succeeds
	createPayment(t, f)

	// three failing attempts, then the ceiling check parks the message
	for i := 0; i < 4; i++ {
		msgs, err := f.outbox.DequeuePending(ctx, 10)
		require.NoError(t, err)
		if len(msgs) == 0 {
			break
		}
		f.svc.ProcessOne(ctx, 0, msgs[0])
	}

	assert.Equal(t, 3, f.producer.calls, "no publish after ceiling")

	msgs, err := f.outbox.DequeuePending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs, "parked message never dequeued again")
	assert.Empty(t, f.producer.topics)
}

func TestWritePathToReadModel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, 3)
	projector := projection.NewProjector(f.readStore, testLogger())
	id := createPayment(t, f)

	// relay delivers, then the consumer side projects what was produced
	f.svc.ProcessOne(ctx, 0, dequeueOne(t, f))
	require.Len(t, f.producer.payloads, 1)

	var env entity.CDCEnvelope
	require.NoError(t, json.Unmarshal(f.producer.payloads[0], &env))
	require.NoError(t, projector.Apply(ctx, env))

	model, err := f.svc.GetPayment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusToPay, model.Status)
	assert.Equal(t, id, model.PaymentID)

	byStatus := f.svc.FindPaymentsByStatus(ctx, entity.StatusToPay)
	assert.Len(t, byStatus, 1)
}
