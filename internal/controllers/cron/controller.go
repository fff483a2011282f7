package cron

import (
	"context"
	"fmt"

	use_cases "payments/internal/application/use-cases"
	"payments/pkg/config"

	"go.uber.org/zap"
)

type Controller struct {
	scheduler *Scheduler
	logger    *zap.SugaredLogger
}

func NewController(ctx context.Context, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		scheduler: NewScheduler(ctx),
		logger:    logger,
	}
}

// RegisterPurgeOutboxJob schedules removal of finished outbox messages.
// Two modes: a cron expression ("0 0 3 * * *") or an interval ("@every 1h").
// Schedule wins when both are set.
func (c *Controller) RegisterPurgeOutboxJob(usecase use_cases.UseCaser, conf config.Cron) error {
	job := NewPurgeJob(usecase, c.logger)

	var spec string
	if conf.Schedule != "" {
		spec = conf.Schedule
		c.logger.Infof("registering outbox purge job with schedule: %s", spec)
	} else if conf.Interval != "" {
		spec = conf.Interval
		c.logger.Infof("registering outbox purge job with interval: %s", spec)
	} else {
		spec = "@every 1h"
		c.logger.Warnf("no purge schedule configured, using default interval: %s", spec)
	}

	entryID, err := c.scheduler.Add(spec, job)
	if err != nil {
		return fmt.Errorf("failed to register outbox purge job: %w", err)
	}

	c.logger.Infof("outbox purge job registered, id: %d, spec: %s", entryID, spec)
	return nil
}

func (c *Controller) Start() {
	c.logger.Info("starting cron scheduler")
	c.scheduler.Start()
}

func (c *Controller) Stop() {
	c.logger.Info("stopping cron scheduler")
	c.scheduler.Stop()
	c.logger.Info("cron scheduler stopped")
}
