package use_cases

import (
	"context"

	"payments/internal/application/entity"
	"payments/internal/application/service"
	"payments/pkg/config"

	"go.uber.org/zap"
)

type UseCaser interface {
	CreatePayment(ctx context.Context, req entity.CreatePaymentRequest) (string, error)
	ChangePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error
	MarkEmailNotified(ctx context.Context, id string) error
	RemovePayment(ctx context.Context, id string) error

	GetPayment(ctx context.Context, id string) (entity.PaymentReadModel, error)
	GetPayments(ctx context.Context) []entity.PaymentReadModel
	FindPaymentsByStatus(ctx context.Context, status entity.PaymentStatus) []entity.PaymentReadModel

	RunRelay(ctx context.Context)
	PurgeOutbox(ctx context.Context)

	HealthCheck(ctx context.Context) (outboxHealthy bool, kafkaHealthy bool, err error)
}

type UseCase struct {
	service service.Service
	logger  *zap.SugaredLogger
	conf    *config.Config
}

func NewUseCase(service service.Service, logger *zap.SugaredLogger, conf *config.Config) *UseCase {
	return &UseCase{
		service: service,
		logger:  logger,
		conf:    conf,
	}
}

func (u *UseCase) HealthCheck(ctx context.Context) (outboxHealthy bool, kafkaHealthy bool, err error) {
	return u.service.HealthCheck(ctx)
}

func (u *UseCase) CreatePayment(ctx context.Context, req entity.CreatePaymentRequest) (string, error) {
	u.logger.Debugf("[user: %s] CreatePayment started", req.UserID)
	return u.service.CreatePayment(ctx, &req)
}

func (u *UseCase) ChangePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error {
	u.logger.Debugf("[payment: %s] ChangePaymentStatus started", id)
	return u.service.ChangePaymentStatus(ctx, id, status)
}

func (u *UseCase) MarkEmailNotified(ctx context.Context, id string) error {
	u.logger.Debugf("[payment: %s] MarkEmailNotified started", id)
	return u.service.MarkEmailNotified(ctx, id)
}

func (u *UseCase) RemovePayment(ctx context.Context, id string) error {
	u.logger.Debugf("[payment: %s] RemovePayment started", id)
	return u.service.RemovePayment(ctx, id)
}

func (u *UseCase) GetPayment(ctx context.Context, id string) (entity.PaymentReadModel, error) {
	u.logger.Debugf("[payment: %s] GetPayment started", id)
	return u.service.GetPayment(ctx, id)
}

func (u *UseCase) GetPayments(ctx context.Context) []entity.PaymentReadModel {
	u.logger.Debug("GetPayments started")
	return u.service.GetPayments(ctx)
}

func (u *UseCase) FindPaymentsByStatus(ctx context.Context, status entity.PaymentStatus) []entity.PaymentReadModel {
	u.logger.Debugf("[status: %s] FindPaymentsByStatus started", status)
	return u.service.FindPaymentsByStatus(ctx, status)
}

func (u *UseCase) RunRelay(ctx context.Context) {
	u.logger.Debug("relay started")
	u.service.RelayRun(ctx)
}

func (u *UseCase) PurgeOutbox(ctx context.Context) {
	u.logger.Infof("PurgeOutbox called, retention=%s", u.conf.Cron.Retention)
	u.service.PurgeOutbox(ctx)
}
