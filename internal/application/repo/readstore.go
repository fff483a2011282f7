package repo

import (
	"context"
	"sort"
	"sync"

	"payments/internal/application/entity"

	"go.uber.org/zap"
)

// ReadStore holds the denormalized payment projection. Only the projector
// writes to it; query handlers get read-only access through the read service.
type ReadStore struct {
	mu     sync.RWMutex
	models map[string]entity.PaymentReadModel
	logger *zap.SugaredLogger
}

func NewReadStore(logger *zap.SugaredLogger) *ReadStore {
	return &ReadStore{
		models: make(map[string]entity.PaymentReadModel),
		logger: logger,
	}
}

func (r *ReadStore) Upsert(ctx context.Context, model entity.PaymentReadModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[model.PaymentID] = model
	r.logger.Debugf("[payment: %s] read model upserted, version %d", model.PaymentID, model.Version)
}

func (r *ReadStore) Remove(ctx context.Context, paymentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, paymentID)
	r.logger.Debugf("[payment: %s] read model removed", paymentID)
}

func (r *ReadStore) GetByID(ctx context.Context, paymentID string) (entity.PaymentReadModel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[paymentID]
	return m, ok
}

// GetAll returns every record ordered by creation date for stable listings.
func (r *ReadStore) GetAll(ctx context.Context) []entity.PaymentReadModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.PaymentReadModel, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreateDate.Equal(out[j].CreateDate) {
			return out[i].PaymentID < out[j].PaymentID
		}
		return out[i].CreateDate.Before(out[j].CreateDate)
	})
	return out
}

func (r *ReadStore) Find(ctx context.Context, match func(entity.PaymentReadModel) bool) []entity.PaymentReadModel {
	all := r.GetAll(ctx)

	out := make([]entity.PaymentReadModel, 0, len(all))
	for _, m := range all {
		if match(m) {
			out = append(out, m)
		}
	}
	return out
}

func (r *ReadStore) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
