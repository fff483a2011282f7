package cdc

import (
	"context"
	"encoding/json"
	"testing"

	"payments/internal/application/entity"
	"payments/internal/application/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

type capturingSink struct {
	topic string
	env   entity.CDCEnvelope
}

func (s *capturingSink) Deliver(ctx context.Context, topic string, env entity.CDCEnvelope) error {
	s.topic = topic
	s.env = env
	return nil
}

func TestPublishCreateShapesEnvelope(t *testing.T) {
	sink := &capturingSink{}
	pub := NewPublisher(sink, "payments-service", testLogger())

	data := map[string]any{"paymentId": "p-1", "status": "ToPay"}
	err := pub.PublishCreate(context.Background(), "Payment", "p-1", data, 1)
	require.NoError(t, err)

	assert.Equal(t, "cdc.payment", sink.topic)
	assert.Equal(t, "Payment", sink.env.EntityType)
	assert.Equal(t, "p-1", sink.env.EntityID)
	assert.Equal(t, entity.CDCCreate, sink.env.Operation)
	assert.Equal(t, int64(1), sink.env.Version)
	assert.Equal(t, "payments-service", sink.env.Source)
	assert.NotEmpty(t, sink.env.EventID)
	assert.False(t, sink.env.Timestamp.IsZero())
	assert.Nil(t, sink.env.OldData)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(sink.env.Data, &decoded))
	assert.Equal(t, "ToPay", decoded["status"])
}

func TestPublishUpdateCarriesOldData(t *testing.T) {
	sink := &capturingSink{}
	pub := NewPublisher(sink, "payments-service", testLogger())

	err := pub.PublishUpdate(context.Background(), "Payment", "p-1",
		map[string]any{"status": "Processing"},
		map[string]any{"status": "ToPay"}, 2)
	require.NoError(t, err)

	assert.Equal(t, entity.CDCUpdate, sink.env.Operation)
	assert.JSONEq(t, `{"status":"Processing"}`, string(sink.env.Data))
	assert.JSONEq(t, `{"status":"ToPay"}`, string(sink.env.OldData))
}

func TestPublishDeleteHasNoData(t *testing.T) {
	sink := &capturingSink{}
	pub := NewPublisher(sink, "payments-service", testLogger())

	err := pub.PublishDelete(context.Background(), "Payment", "p-1", 3)
	require.NoError(t, err)

	assert.Equal(t, entity.CDCDelete, sink.env.Operation)
	assert.Nil(t, sink.env.Data)
	assert.Nil(t, sink.env.OldData)
}

func TestEventIDsAreUnique(t *testing.T) {
	sink := &capturingSink{}
	pub := NewPublisher(sink, "payments-service", testLogger())

	require.NoError(t, pub.PublishDelete(context.Background(), "Payment", "p-1", 1))
	first := sink.env.EventID
	require.NoError(t, pub.PublishDelete(context.Background(), "Payment", "p-1", 1))
	assert.NotEqual(t, first, sink.env.EventID)
}

func TestOutboxSinkStagesEnvelope(t *testing.T) {
	ctx := context.Background()
	outbox := repo.NewMemoryOutbox(testLogger())
	pub := NewPublisher(NewOutboxSink(outbox, testLogger()), "payments-service", testLogger())

	err := pub.PublishCreate(ctx, "Payment", "p-1", map[string]any{"status": "ToPay"}, 1)
	require.NoError(t, err)

	staged, err := outbox.DequeuePending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, staged, 1)

	msg := staged[0]
	assert.Equal(t, "Payment", msg.EntityType)
	assert.Equal(t, "p-1", msg.EntityID)
	assert.Equal(t, "create", msg.EventType)
	assert.Equal(t, "cdc.payment", msg.Topic)
	assert.Equal(t, entity.OutboxPending, msg.Status)

	var env entity.CDCEnvelope
	require.NoError(t, json.Unmarshal(msg.Payload, &env))
	assert.Equal(t, entity.CDCCreate, env.Operation)
	assert.Equal(t, "p-1", env.EntityID)
}
