package projection

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"payments/internal/application/entity"
	"payments/internal/application/repo"

	"go.uber.org/zap"
)

// Projector applies CDC envelopes to the read store. Every operation is
// idempotent, so at-least-once redelivery from the broker is harmless.
type Projector struct {
	store  *repo.ReadStore
	logger *zap.SugaredLogger
}

func NewProjector(store *repo.ReadStore, logger *zap.SugaredLogger) *Projector {
	return &Projector{store: store, logger: logger}
}

// Apply projects one envelope. An unknown operation is logged and skipped,
// never an error: a poison value must not wedge the consumer loop.
func (p *Projector) Apply(ctx context.Context, env entity.CDCEnvelope) error {
	p.logger.Debugf("[%s: %s] applying CDC %s, event %s", env.EntityType, env.EntityID, env.Operation, env.EventID)

	switch env.Operation {
	case entity.CDCCreate:
		return p.applyCreate(ctx, env)
	case entity.CDCUpdate:
		return p.applyUpdate(ctx, env)
	case entity.CDCDelete:
		p.store.Remove(ctx, env.EntityID)
		return nil
	default:
		p.logger.Warnf("[%s: %s] unknown CDC operation %q, skipping event %s", env.EntityType, env.EntityID, env.Operation, env.EventID)
		return nil
	}
}

func (p *Projector) applyCreate(ctx context.Context, env entity.CDCEnvelope) error {
	model, err := readModelFrom(env.Data)
	if err != nil {
		return fmt.Errorf("cdc create %s: %w", env.EntityID, err)
	}
	p.store.Upsert(ctx, model)
	return nil
}

// applyUpdate merges the mutable fields into the existing record. When the
// record is missing, which happens if an update lands before its create, the
// record is synthesized from the envelope data instead of failing.
func (p *Projector) applyUpdate(ctx context.Context, env entity.CDCEnvelope) error {
	var data entity.PaymentCDCData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return fmt.Errorf("cdc update %s: unmarshal data: %w", env.EntityID, err)
	}

	existing, ok := p.store.GetByID(ctx, env.EntityID)
	if !ok {
		p.logger.Warnf("[payment: %s] read model missing on update, synthesizing from CDC data", env.EntityID)
		model, err := readModelFrom(env.Data)
		if err != nil {
			return fmt.Errorf("cdc update %s: %w", env.EntityID, err)
		}
		p.store.Upsert(ctx, model)
		return nil
	}

	existing.Status = data.Status
	existing.StatusDescription = entity.StatusDescription(data.Status)
	existing.IsRemoved = data.IsRemoved
	existing.IsEmailSent = data.IsEmailSent
	existing.Version = data.Version
	existing.LastModifiedDate = time.Now().UTC()
	p.store.Upsert(ctx, existing)
	return nil
}

func readModelFrom(raw json.RawMessage) (entity.PaymentReadModel, error) {
	var data entity.PaymentCDCData
	if err := json.Unmarshal(raw, &data); err != nil {
		return entity.PaymentReadModel{}, fmt.Errorf("unmarshal cdc data: %w", err)
	}

	return entity.PaymentReadModel{
		PaymentID:         data.PaymentID,
		UserID:            data.UserID,
		UserAccountID:     data.UserAccountID,
		SourceCurrency:    data.SourceCurrency,
		TargetCurrency:    data.TargetCurrency,
		SourceAmount:      data.SourceAmount,
		TargetAmount:      data.TargetAmount,
		ExchangeRate:      data.ExchangeRate,
		Status:            data.Status,
		StatusDescription: entity.StatusDescription(data.Status),
		CreateDate:        data.CreateDate,
		IsRemoved:         data.IsRemoved,
		IsEmailSent:       data.IsEmailSent,
		Version:           data.Version,
		LastModifiedDate:  time.Now().UTC(),
	}, nil
}
