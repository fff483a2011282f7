package repo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"payments/internal/application/entity"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

var ErrOutboxMessageNotFound = errors.New("outbox message not found")

// OutboxStore stages outbound CDC notifications. MarkFailed is the retryable
// transition (back to PENDING, retry count incremented); MarkTerminallyFailed
// parks a message permanently, requiring operator attention.
type OutboxStore interface {
	Enqueue(ctx context.Context, msg entity.OutboxMessage) error
	DequeuePending(ctx context.Context, batchSize int) ([]entity.OutboxMessage, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	MarkTerminallyFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	PendingCount(ctx context.Context) (int, error)
	PurgeFinished(ctx context.Context, olderThan time.Duration) (int, error)

	HealthCheck(ctx context.Context) error
}

// MemoryOutbox is the single-process baseline. It orders writes so that an
// enqueue observed by the caller is observed by the relay, but it is not
// crash-safe: a durable deployment needs the postgres store, which survives
// restarts and reclaims leased messages left behind by a dead worker.
type MemoryOutbox struct {
	mu       sync.RWMutex
	messages map[uuid.UUID]*entity.OutboxMessage
	seq      map[uuid.UUID]uint64
	nextSeq  uint64

	logger *zap.SugaredLogger
}

func NewMemoryOutbox(logger *zap.SugaredLogger) *MemoryOutbox {
	return &MemoryOutbox{
		messages: make(map[uuid.UUID]*entity.OutboxMessage),
		seq:      make(map[uuid.UUID]uint64),
		logger:   logger,
	}
}

func (o *MemoryOutbox) Enqueue(ctx context.Context, msg entity.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := msg
	o.messages[m.ID] = &m
	o.nextSeq++
	o.seq[m.ID] = o.nextSeq

	o.logger.Debugf("[outbox: %s] enqueued %s for %s/%s", m.ID, m.EventType, m.EntityType, m.EntityID)
	return nil
}

// DequeuePending returns up to batchSize PENDING messages oldest-first.
// Statuses are left untouched until explicitly transitioned.
func (o *MemoryOutbox) DequeuePending(ctx context.Context, batchSize int) ([]entity.OutboxMessage, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var pending []entity.OutboxMessage
	for _, m := range o.messages {
		if m.Status == entity.OutboxPending {
			pending = append(pending, *m)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		if pending[i].CreatedAt.Equal(pending[j].CreatedAt) {
			return o.seq[pending[i].ID] < o.seq[pending[j].ID]
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})

	if len(pending) > batchSize {
		pending = pending[:batchSize]
	}
	return pending, nil
}

func (o *MemoryOutbox) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return o.transition(id, func(m *entity.OutboxMessage) {
		m.Status = entity.OutboxProcessing
	})
}

func (o *MemoryOutbox) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return o.transition(id, func(m *entity.OutboxMessage) {
		now := time.Now().UTC()
		m.Status = entity.OutboxCompleted
		m.ProcessedAt = &now
	})
}

func (o *MemoryOutbox) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return o.transition(id, func(m *entity.OutboxMessage) {
		m.Status = entity.OutboxPending
		m.RetryCount++
		m.ErrorMessage = errMsg
	})
}

func (o *MemoryOutbox) MarkTerminallyFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return o.transition(id, func(m *entity.OutboxMessage) {
		now := time.Now().UTC()
		m.Status = entity.OutboxFailed
		m.ErrorMessage = errMsg
		m.ProcessedAt = &now
	})
}

// Get returns a copy of one message regardless of status.
func (o *MemoryOutbox) Get(ctx context.Context, id uuid.UUID) (entity.OutboxMessage, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	m, ok := o.messages[id]
	if !ok {
		return entity.OutboxMessage{}, false
	}
	return *m, true
}

func (o *MemoryOutbox) PendingCount(ctx context.Context) (int, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	count := 0
	for _, m := range o.messages {
		if m.Status == entity.OutboxPending {
			count++
		}
	}
	return count, nil
}

// PurgeFinished drops COMPLETED and terminal FAILED messages finished before
// the retention window.
func (o *MemoryOutbox) PurgeFinished(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	o.mu.Lock()
	defer o.mu.Unlock()

	purged := 0
	for id, m := range o.messages {
		if m.Status != entity.OutboxCompleted && m.Status != entity.OutboxFailed {
			continue
		}
		finished := m.CreatedAt
		if m.ProcessedAt != nil {
			finished = *m.ProcessedAt
		}
		if finished.Before(cutoff) {
			delete(o.messages, id)
			delete(o.seq, id)
			purged++
		}
	}
	return purged, nil
}

func (o *MemoryOutbox) HealthCheck(ctx context.Context) error {
	return nil
}

func (o *MemoryOutbox) transition(id uuid.UUID, apply func(*entity.OutboxMessage)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	m, ok := o.messages[id]
	if !ok {
		return ErrOutboxMessageNotFound
	}
	apply(m)
	return nil
}
