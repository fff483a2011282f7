package eventstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"payments/internal/appers"
	"payments/internal/application/entity"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// NoStream is the expected version for an append that creates a stream.
const NoStream int64 = 0

// Subscriber receives committed events for in-process fan-out. Delivery is
// best-effort: subscriber errors are logged and never fail the append.
type Subscriber interface {
	HandleEvent(ctx context.Context, ev entity.Event) error
}

// Store is an append-only per-aggregate event log with optimistic concurrency
// control. Appends to different aggregates never block each other: the store
// lock only guards the stream map, each stream carries its own mutex.
// Events are held in the serialized envelope form a durable log would persist
// (entity.MarshalDomainEvent); Load decodes them back.
type Store struct {
	mu      sync.RWMutex
	streams map[uuid.UUID]*stream

	subscribers []Subscriber
	logger      *zap.SugaredLogger
}

type stream struct {
	mu     sync.Mutex
	events []storedEvent
}

type storedEvent struct {
	timestamp time.Time
	payload   []byte
}

func New(logger *zap.SugaredLogger, subscribers ...Subscriber) *Store {
	return &Store{
		streams:     make(map[uuid.UUID]*stream),
		subscribers: subscribers,
		logger:      logger,
	}
}

// Append writes events only if the stream head equals expectedVersion
// (NoStream when the stream must not exist yet). On mismatch nothing is
// appended and appers.ErrConcurrencyConflict is returned. On success the
// events get versions expectedVersion+1.. in input order and the new stream
// head is returned.
func (s *Store) Append(ctx context.Context, aggregateID uuid.UUID, events []entity.DomainEvent, expectedVersion int64) (int64, error) {
	if len(events) == 0 {
		return expectedVersion, nil
	}

	now := time.Now().UTC()
	encoded := make([]storedEvent, 0, len(events))
	committed := make([]entity.Event, 0, len(events))
	for i, payload := range events {
		raw, err := entity.MarshalDomainEvent(payload)
		if err != nil {
			return 0, fmt.Errorf("encode event: %w", err)
		}
		encoded = append(encoded, storedEvent{timestamp: now, payload: raw})
		committed = append(committed, entity.Event{
			AggregateID: aggregateID,
			Version:     expectedVersion + int64(i) + 1,
			Timestamp:   now,
			Payload:     payload,
		})
	}

	st := s.getOrCreate(aggregateID)

	st.mu.Lock()
	current := int64(len(st.events))
	if current != expectedVersion {
		st.mu.Unlock()
		s.logger.Warnf("[aggregate: %s] append conflict: expected version %d, stream at %d", aggregateID, expectedVersion, current)
		return 0, appers.ErrConcurrencyConflict
	}

	st.events = append(st.events, encoded...)
	newVersion := int64(len(st.events))
	st.mu.Unlock()

	s.logger.Debugf("[aggregate: %s] appended %d events, version %d", aggregateID, len(committed), newVersion)

	for _, ev := range committed {
		s.fanOut(ctx, ev)
	}

	return newVersion, nil
}

// Load returns the full ordered stream for the aggregate, or
// appers.ErrAggregateNotFound if no stream exists.
func (s *Store) Load(ctx context.Context, aggregateID uuid.UUID) ([]entity.Event, error) {
	s.mu.RLock()
	st, ok := s.streams[aggregateID]
	s.mu.RUnlock()
	if !ok {
		return nil, appers.ErrAggregateNotFound
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.events) == 0 {
		return nil, appers.ErrAggregateNotFound
	}

	out := make([]entity.Event, 0, len(st.events))
	for i, se := range st.events {
		payload, err := entity.UnmarshalDomainEvent(se.payload)
		if err != nil {
			return nil, fmt.Errorf("decode event v%d of %s: %w", i+1, aggregateID, err)
		}
		out = append(out, entity.Event{
			AggregateID: aggregateID,
			Version:     int64(i) + 1,
			Timestamp:   se.timestamp,
			Payload:     payload,
		})
	}
	return out, nil
}

func (s *Store) getOrCreate(aggregateID uuid.UUID) *stream {
	s.mu.RLock()
	st, ok := s.streams[aggregateID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.streams[aggregateID]; ok {
		return st
	}
	st = &stream{}
	s.streams[aggregateID] = st
	return st
}

func (s *Store) fanOut(ctx context.Context, ev entity.Event) {
	for _, sub := range s.subscribers {
		if err := sub.HandleEvent(ctx, ev); err != nil {
			s.logger.Errorf("[aggregate: %s] subscriber failed on %s v%d: %v", ev.AggregateID, ev.Payload.EventType(), ev.Version, err)
		}
	}
}
