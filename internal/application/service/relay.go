package service

import (
	"context"
	"time"

	"payments/internal/application/entity"
	"payments/internal/transport/producer"

	"github.com/gofrs/uuid"
)

const defaultPollPeriod = time.Second

// RelayRun is the outbox processor loop. It polls pending messages on a fixed
// interval and fans them out to workers. Delivery is at-least-once: a crash
// between the broker publish and MarkCompleted leaves the message leased, and
// the store re-delivers it once the lease expires, which downstream
// projectors absorb idempotently.
func (s *ServiceImpl) RelayRun(ctx context.Context) {
	poll := s.cfg.PollPeriod
	if poll <= 0 {
		poll = defaultPollPeriod
	}
	s.logger.Infow("relay started", "workers", s.cfg.Workers, "batch", s.cfg.BatchSize, "poll", poll.String())

	jobs := make(chan entity.OutboxMessage, s.cfg.BatchSize*2)

	for i := 0; i < s.cfg.Workers; i++ {
		go s.worker(ctx, i, jobs)
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("relay stopping")
			return
		case <-ticker.C:
			messages, err := s.outbox.DequeuePending(ctx, s.cfg.BatchSize)
			if err != nil {
				s.logger.Errorw("dequeue pending outbox failed", "err", err)
				continue
			}

			s.logger.Debugf("len jobs: %d, len messages: %d", len(jobs), len(messages))
			if s.m != nil {
				if pending, err := s.outbox.PendingCount(ctx); err == nil {
					s.m.Outbox.PendingGauge.Set(float64(pending))
				}
			}
			for _, m := range messages {
				select {
				case jobs <- m:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (s *ServiceImpl) worker(ctx context.Context, id int, jobs <-chan entity.OutboxMessage) {
	s.logger.Infow("relay worker started", "id", id)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("relay worker stopping", "id", id)
			return
		case m := <-jobs:
			s.ProcessOne(ctx, id, m)
		}
	}
}

// ProcessOne handles one outbox message. Exported for tests.
func (s *ServiceImpl) ProcessOne(ctx context.Context, wid int, m entity.OutboxMessage) {
	s.logger.Debugf("[outbox: %s] relay-process started, workerID: %d", m.ID, wid)

	if m.RetryCount >= s.cfg.MaxAttempts {
		s.logger.Warnf("[outbox: %s] retry ceiling %d reached, parking message", m.ID, s.cfg.MaxAttempts)
		if err := s.outbox.MarkTerminallyFailed(ctx, m.ID, "max retry count exceeded"); err != nil {
			s.logger.Errorf("[outbox: %s] mark terminally failed: %v", m.ID, err)
		}
		s.countProcessed("parked")
		return
	}

	if err := s.outbox.MarkProcessing(ctx, m.ID); err != nil {
		s.logger.Errorf("[outbox: %s] mark processing failed: %v", m.ID, err)
		return
	}

	if err := s.kafkaProducer.ProduceMessage(ctx, m.Topic, m.EntityID, m.Payload); err != nil {
		s.logger.Errorf("[outbox: %s] kafka send failed, reason: %s, err: %v", m.ID, producer.ClassifyRetry(err), err)
		// detached ctx: the failure must be recorded even during shutdown
		s.markFailed(context.Background(), m.ID, err.Error())
		s.countProcessed("retried")
		return
	}
	s.logger.Infof("[outbox: %s] sent to kafka, topic %s", m.ID, m.Topic)

	if err := s.outbox.MarkCompleted(ctx, m.ID); err != nil {
		// the message already went out; the row stays leased and the store
		// re-delivers it after the lease expires, a duplicate being the
		// lesser evil than silently losing the completion
		s.logger.Errorf("[outbox: %s] mark completed failed, err: %v", m.ID, err)
		return
	}

	s.logger.Infof("[outbox: %s] relay-process completed", m.ID)
	s.countProcessed("completed")
}

func (s *ServiceImpl) markFailed(ctx context.Context, id uuid.UUID, errMsg string) {
	if err := s.outbox.MarkFailed(ctx, id, errMsg); err != nil {
		s.logger.Errorf("[outbox: %s] mark failed errored: %v", id, err)
	}
}

func (s *ServiceImpl) countProcessed(result string) {
	if s.m != nil {
		s.m.Outbox.ProcessedTotal.WithLabelValues(result).Inc()
	}
}
