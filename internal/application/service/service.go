package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payments/internal/appers"
	"payments/internal/application/cdc"
	"payments/internal/application/common"
	"payments/internal/application/entity"
	"payments/internal/application/eventstore"
	"payments/internal/application/repo"
	"payments/internal/transport/producer"
	"payments/pkg/config"
	"payments/pkg/metrics"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

const entityTypePayment = "Payment"

type Service interface {
	CreatePayment(ctx context.Context, req *entity.CreatePaymentRequest) (string, error)
	ChangePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error
	MarkEmailNotified(ctx context.Context, id string) error
	RemovePayment(ctx context.Context, id string) error

	GetPayment(ctx context.Context, id string) (entity.PaymentReadModel, error)
	GetPayments(ctx context.Context) []entity.PaymentReadModel
	FindPaymentsByStatus(ctx context.Context, status entity.PaymentStatus) []entity.PaymentReadModel

	RelayRun(ctx context.Context)
	PurgeOutbox(ctx context.Context)

	HealthCheck(ctx context.Context) (outboxHealthy bool, kafkaHealthy bool, err error)
}

type ServiceImpl struct {
	events        *eventstore.Store
	outbox        repo.OutboxStore
	readStore     *repo.ReadStore
	publisher     *cdc.Publisher
	kafkaProducer producer.Producer
	logger        *zap.SugaredLogger
	cfg           *config.RelayConfig
	retention     config.Cron
	m             *metrics.Metrics
}

func NewService(
	events *eventstore.Store,
	outbox repo.OutboxStore,
	readStore *repo.ReadStore,
	publisher *cdc.Publisher,
	kafkaProducer producer.Producer,
	logger *zap.SugaredLogger,
	cfg *config.RelayConfig,
	retention config.Cron,
	m *metrics.Metrics,
) *ServiceImpl {
	return &ServiceImpl{
		events:        events,
		outbox:        outbox,
		readStore:     readStore,
		publisher:     publisher,
		kafkaProducer: kafkaProducer,
		logger:        logger,
		cfg:           cfg,
		retention:     retention,
		m:             m,
	}
}

func (s *ServiceImpl) HealthCheck(ctx context.Context) (outboxHealthy bool, kafkaHealthy bool, err error) {
	outboxErr := s.outbox.HealthCheck(ctx)
	outboxHealthy = outboxErr == nil

	kafkaErr := s.kafkaProducer.HealthCheck(ctx)
	kafkaHealthy = kafkaErr == nil

	if !outboxHealthy && !kafkaHealthy {
		return outboxHealthy, kafkaHealthy, fmt.Errorf("outbox: %v, kafka: %v", outboxErr, kafkaErr)
	}

	return outboxHealthy, kafkaHealthy, nil
}

// CreatePayment places a new payment aggregate, commits its first events under
// optimistic concurrency and stages the CDC create notification. The enqueue
// failing fails the whole command: a change whose notification cannot be
// staged is not considered committed.
func (s *ServiceImpl) CreatePayment(ctx context.Context, req *entity.CreatePaymentRequest) (string, error) {
	s.logger.Debugf("[user: %s] CreatePayment started", req.UserID)

	userID, err := uuid.FromString(req.UserID)
	if err != nil {
		return "", fmt.Errorf("parse userId: %w", err)
	}
	accountID, err := uuid.FromString(req.UserAccountID)
	if err != nil {
		return "", fmt.Errorf("parse userAccountId: %w", err)
	}

	sourceAmount, err := common.AmountFromString(req.SourceAmount)
	if err != nil {
		return "", fmt.Errorf("parse sourceAmount: %w", err)
	}

	rate := req.ExchangeRate
	targetAmount := sourceAmount
	if req.SourceCurrency != req.TargetCurrency {
		if rate == "" {
			return "", fmt.Errorf("exchangeRate is required when currencies differ")
		}
		rateUnits, err := common.AmountFromString(rate)
		if err != nil {
			return "", fmt.Errorf("parse exchangeRate: %w", err)
		}
		targetAmount = sourceAmount * rateUnits / 100
	} else {
		rate = "1.00"
	}

	payment, err := entity.NewPayment(userID, accountID, req.SourceCurrency, req.TargetCurrency, sourceAmount, targetAmount, rate)
	if err != nil {
		return "", err
	}

	newVersion, err := s.events.Append(ctx, payment.PaymentID, payment.UncommittedEvents(), eventstore.NoStream)
	if err != nil {
		s.logger.Errorf("[payment: %s] append failed: %v", payment.PaymentID, err)
		if errors.Is(err, appers.ErrConcurrencyConflict) {
			// a stream already exists under this id
			return "", appers.ErrPaymentAlreadyExists
		}
		return "", err
	}
	payment.MarkCommitted(newVersion)

	if err := s.publisher.PublishCreate(ctx, entityTypePayment, payment.PaymentID.String(), entity.PaymentCDCDataFrom(payment), newVersion); err != nil {
		return "", fmt.Errorf("publish cdc create: %w", err)
	}

	s.logger.Infof("[payment: %s] created, version %d", payment.PaymentID, newVersion)
	return payment.PaymentID.String(), nil
}

func (s *ServiceImpl) ChangePaymentStatus(ctx context.Context, id string, status entity.PaymentStatus) error {
	s.logger.Debugf("[payment: %s] ChangePaymentStatus to %s started", id, status)

	if !status.Valid() {
		return appers.ErrUnknownStatus
	}

	payment, aggregateID, err := s.loadPayment(ctx, id)
	if err != nil {
		return err
	}
	if payment.IsRemoved {
		return appers.ErrPaymentRemoved
	}

	oldData := entity.PaymentCDCDataFrom(payment)

	if err := payment.ChangeStatus(status); err != nil {
		return err
	}
	if len(payment.UncommittedEvents()) == 0 {
		s.logger.Debugf("[payment: %s] status already %s, nothing to commit", id, status)
		return nil
	}

	newVersion, err := s.events.Append(ctx, aggregateID, payment.UncommittedEvents(), payment.Version())
	if err != nil {
		return err
	}
	payment.MarkCommitted(newVersion)

	if err := s.publisher.PublishUpdate(ctx, entityTypePayment, id, entity.PaymentCDCDataFrom(payment), oldData, newVersion); err != nil {
		return fmt.Errorf("publish cdc update: %w", err)
	}
	return nil
}

func (s *ServiceImpl) MarkEmailNotified(ctx context.Context, id string) error {
	s.logger.Debugf("[payment: %s] MarkEmailNotified started", id)

	payment, aggregateID, err := s.loadPayment(ctx, id)
	if err != nil {
		return err
	}

	oldData := entity.PaymentCDCDataFrom(payment)

	payment.MarkEmailNotified()
	if len(payment.UncommittedEvents()) == 0 {
		return nil
	}

	newVersion, err := s.events.Append(ctx, aggregateID, payment.UncommittedEvents(), payment.Version())
	if err != nil {
		return err
	}
	payment.MarkCommitted(newVersion)

	if err := s.publisher.PublishUpdate(ctx, entityTypePayment, id, entity.PaymentCDCDataFrom(payment), oldData, newVersion); err != nil {
		return fmt.Errorf("publish cdc update: %w", err)
	}
	return nil
}

func (s *ServiceImpl) RemovePayment(ctx context.Context, id string) error {
	s.logger.Debugf("[payment: %s] RemovePayment started", id)

	payment, aggregateID, err := s.loadPayment(ctx, id)
	if err != nil {
		return err
	}

	payment.Remove()
	if len(payment.UncommittedEvents()) == 0 {
		return nil
	}

	newVersion, err := s.events.Append(ctx, aggregateID, payment.UncommittedEvents(), payment.Version())
	if err != nil {
		return err
	}
	payment.MarkCommitted(newVersion)

	if err := s.publisher.PublishDelete(ctx, entityTypePayment, id, newVersion); err != nil {
		return fmt.Errorf("publish cdc delete: %w", err)
	}
	return nil
}

// Read side. Queries never fail on projection lag, they return what the
// projector has applied so far.

func (s *ServiceImpl) GetPayment(ctx context.Context, id string) (entity.PaymentReadModel, error) {
	model, ok := s.readStore.GetByID(ctx, id)
	if !ok {
		return entity.PaymentReadModel{}, appers.ErrPaymentNotFound
	}
	return model, nil
}

func (s *ServiceImpl) GetPayments(ctx context.Context) []entity.PaymentReadModel {
	return s.readStore.GetAll(ctx)
}

func (s *ServiceImpl) FindPaymentsByStatus(ctx context.Context, status entity.PaymentStatus) []entity.PaymentReadModel {
	return s.readStore.Find(ctx, func(m entity.PaymentReadModel) bool {
		return m.Status == status
	})
}

func (s *ServiceImpl) PurgeOutbox(ctx context.Context) {
	retention := s.retention.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}

	purged, err := s.outbox.PurgeFinished(ctx, retention)
	if err != nil {
		s.logger.Errorf("outbox purge failed: %v", err)
		return
	}
	if purged > 0 {
		s.logger.Infof("purged %d finished outbox messages older than %s", purged, retention)
		if s.m != nil {
			s.m.Outbox.PurgedTotal.Add(float64(purged))
		}
	}
}

func (s *ServiceImpl) loadPayment(ctx context.Context, id string) (*entity.Payment, uuid.UUID, error) {
	aggregateID, err := uuid.FromString(id)
	if err != nil {
		return nil, uuid.UUID{}, appers.ErrPaymentNotFound
	}

	history, err := s.events.Load(ctx, aggregateID)
	if err != nil {
		return nil, uuid.UUID{}, err
	}

	payment, err := entity.ReplayPayment(history)
	if err != nil {
		return nil, uuid.UUID{}, fmt.Errorf("replay payment %s: %w", id, err)
	}
	return payment, aggregateID, nil
}
