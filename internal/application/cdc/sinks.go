package cdc

import (
	"context"
	"encoding/json"
	"fmt"

	"payments/internal/application/entity"
	"payments/internal/application/repo"
	"payments/internal/transport/producer"

	"go.uber.org/zap"
)

// BrokerSink publishes envelopes straight to the broker. A broker error
// surfaces to the caller, who decides whether to retry or abort.
type BrokerSink struct {
	producer producer.Producer
	logger   *zap.SugaredLogger
}

func NewBrokerSink(producer producer.Producer, logger *zap.SugaredLogger) *BrokerSink {
	return &BrokerSink{producer: producer, logger: logger}
}

func (s *BrokerSink) Deliver(ctx context.Context, topic string, env entity.CDCEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cdc envelope: %w", err)
	}
	return s.producer.ProduceMessage(ctx, topic, env.EntityID, payload)
}

// OutboxSink stages the envelope as an outbox message in the caller's unit of
// work. An enqueue failure is fatal to the triggering write: the change must
// not commit if its notification cannot even be staged.
type OutboxSink struct {
	outbox repo.OutboxStore
	logger *zap.SugaredLogger
}

func NewOutboxSink(outbox repo.OutboxStore, logger *zap.SugaredLogger) *OutboxSink {
	return &OutboxSink{outbox: outbox, logger: logger}
}

func (s *OutboxSink) Deliver(ctx context.Context, topic string, env entity.CDCEnvelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cdc envelope: %w", err)
	}

	msg, err := entity.NewOutboxMessage(env.EntityType, env.EntityID, string(env.Operation), topic, payload)
	if err != nil {
		return fmt.Errorf("new outbox message: %w", err)
	}

	if err := s.outbox.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("stage cdc envelope: %w", err)
	}

	s.logger.Debugf("[%s: %s] CDC %s staged as outbox %s", env.EntityType, env.EntityID, env.Operation, msg.ID)
	return nil
}
