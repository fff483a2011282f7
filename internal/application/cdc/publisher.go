package cdc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payments/internal/application/entity"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// Sink delivers a shaped envelope to its topic. BrokerSink publishes
// immediately with no durability across a crash; OutboxSink stages the
// envelope durably and is the recommended path.
type Sink interface {
	Deliver(ctx context.Context, topic string, env entity.CDCEnvelope) error
}

// Publisher shapes domain changes into versioned CDC envelopes and routes
// them to "cdc.<entitytype>".
type Publisher struct {
	sink   Sink
	source string
	logger *zap.SugaredLogger
}

func NewPublisher(sink Sink, source string, logger *zap.SugaredLogger) *Publisher {
	return &Publisher{sink: sink, source: source, logger: logger}
}

func (p *Publisher) PublishCreate(ctx context.Context, entityType, entityID string, data any, version int64) error {
	return p.publish(ctx, entityType, entityID, entity.CDCCreate, data, nil, version)
}

func (p *Publisher) PublishUpdate(ctx context.Context, entityType, entityID string, data, oldData any, version int64) error {
	return p.publish(ctx, entityType, entityID, entity.CDCUpdate, data, oldData, version)
}

func (p *Publisher) PublishDelete(ctx context.Context, entityType, entityID string, version int64) error {
	return p.publish(ctx, entityType, entityID, entity.CDCDelete, nil, nil, version)
}

func (p *Publisher) publish(ctx context.Context, entityType, entityID string, op entity.CDCOperation, data, oldData any, version int64) error {
	eventID, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("cdc event id: %w", err)
	}

	env := entity.CDCEnvelope{
		EventID:    eventID.String(),
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  op,
		Version:    version,
		Timestamp:  time.Now().UTC(),
		Source:     p.source,
	}

	if data != nil {
		if env.Data, err = json.Marshal(data); err != nil {
			return fmt.Errorf("marshal cdc data: %w", err)
		}
	}
	if oldData != nil {
		if env.OldData, err = json.Marshal(oldData); err != nil {
			return fmt.Errorf("marshal cdc old data: %w", err)
		}
	}

	topic := entity.CDCTopic(entityType)
	p.logger.Debugf("[%s: %s] publishing CDC %s to %s, version %d", entityType, entityID, op, topic, version)

	if err := p.sink.Deliver(ctx, topic, env); err != nil {
		p.logger.Errorf("[%s: %s] CDC %s delivery failed: %v", entityType, entityID, op, err)
		return err
	}
	return nil
}
