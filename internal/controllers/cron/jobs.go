package cron

import (
	"context"

	use_cases "payments/internal/application/use-cases"

	"go.uber.org/zap"
)

// PurgeJob deletes COMPLETED and FAILED outbox messages past retention.
type PurgeJob struct {
	usecase use_cases.UseCaser
	logger  *zap.SugaredLogger
}

func NewPurgeJob(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *PurgeJob {
	return &PurgeJob{
		usecase: usecase,
		logger:  logger,
	}
}

func (j *PurgeJob) Run(ctx context.Context) {
	j.logger.Info("outbox purge job started")

	defer func() {
		if r := recover(); r != nil {
			j.logger.Errorf("panic in outbox purge job: %v", r)
		}
	}()

	j.usecase.PurgeOutbox(ctx)
	j.logger.Info("outbox purge job finished")
}
