package application

import (
	"context"
	"fmt"

	"payments/internal/application/cdc"
	"payments/internal/application/common"
	"payments/internal/application/entity"
	"payments/internal/application/eventstore"
	"payments/internal/application/projection"
	"payments/internal/application/repo"
	"payments/internal/application/service"
	use_cases "payments/internal/application/use-cases"
	"payments/internal/controllers/cron"
	"payments/internal/controllers/handler"
	"payments/internal/controllers/listener"
	"payments/internal/transport/producer"
	"payments/pkg/broker"
	"payments/pkg/config"
	"payments/pkg/db"
	"payments/pkg/metrics"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type App struct {
	ctx            context.Context
	conf           *config.Config
	logger         *zap.SugaredLogger
	postgres       *db.Postgres
	httpServer     *fiber.App
	kafka          *broker.KafkaBroker
	cronController *cron.Controller
}

// NewApp wires the write side (event store -> outbox -> relay -> kafka) and
// the read side (kafka consumer -> projector -> read store) into one process.
// postgres may be nil when the outbox runs on the in-memory store.
func NewApp(
	ctx context.Context,
	conf *config.Config,
	logger *zap.SugaredLogger,
	postgres *db.Postgres,
	httpServer *fiber.App,
	kafkaBroker *broker.KafkaBroker,
	m *metrics.Metrics) *App {
	logger.Infof("starting Payments Service version: %s", common.Version)

	go func() {
		<-ctx.Done()
		logger.Info("closing consumer group")
		kafkaBroker.ConsumerGroup.Close()
		logger.Info("closing consumer group: done")
	}()

	outboxStore := newOutboxStore(conf, postgres, logger)
	readStore := repo.NewReadStore(logger)

	events := eventstore.New(logger, &committedEventLogger{logger})

	kafkaProducer := producer.NewProducer(kafkaBroker, logger, conf.Broker.Kafka.MaxAttempts, m)

	// commands stage CDC envelopes in the outbox; the relay pushes them to kafka
	outboxSink := cdc.NewOutboxSink(outboxStore, logger)
	publisher := cdc.NewPublisher(outboxSink, conf.CDC.Source, logger)

	srv := service.NewService(events, outboxStore, readStore, publisher, kafkaProducer, logger, &conf.Relay, conf.Cron, m)
	uc := use_cases.NewUseCase(srv, logger, conf)
	h := handler.NewPaymentHandler(uc, logger)
	r := handler.NewRouter(h, httpServer, conf, logger)

	cronController := cron.NewController(ctx, logger)
	if err := cronController.RegisterPurgeOutboxJob(uc, conf.Cron); err != nil {
		logger.Fatalf("failed to register cron job: %v", err)
	}
	cronController.Start()

	go uc.RunRelay(ctx)

	r.RegisterRouter()

	app := &App{
		ctx:            ctx,
		conf:           conf,
		logger:         logger,
		postgres:       postgres,
		httpServer:     httpServer,
		kafka:          kafkaBroker,
		cronController: cronController,
	}

	projector := projection.NewProjector(readStore, logger)
	go app.runConsumer(ctx, logger, projector, kafkaBroker, m)

	return app
}

func newOutboxStore(conf *config.Config, postgres *db.Postgres, logger *zap.SugaredLogger) repo.OutboxStore {
	if conf.Outbox.Storage == "postgres" && postgres != nil {
		logger.Info("outbox storage: postgres")
		return repo.NewPostgresOutbox(postgres, conf.Relay.Lease, logger)
	}
	logger.Info("outbox storage: memory")
	return repo.NewMemoryOutbox(logger)
}

func (a *App) Run() error {
	return a.httpServer.Listen(fmt.Sprintf(":%s", a.conf.Server.Port))
}

func (a *App) Shutdown() error {
	if a.cronController != nil {
		a.cronController.Stop()
	}
	return a.httpServer.Shutdown()
}

func (a *App) runConsumer(ctx context.Context, logger *zap.SugaredLogger, projector *projection.Projector, kafkaBroker *broker.KafkaBroker, m *metrics.Metrics) {
	topic := kafkaBroker.ConsumerTopic
	if topic == "" {
		topic = entity.CDCTopic("Payment")
	}
	logger.Infof("starting consumer for topic: %s", topic)

	cdcListener := listener.NewCDCListener(projector, logger, m)

	for {
		err := kafkaBroker.ConsumerGroup.Consume(ctx, []string{topic}, cdcListener)
		if err != nil {
			logger.Errorf("consumer error: %v", err)
		}
		if ctx.Err() != nil {
			logger.Info("consumer stopped by context")
			return
		}
	}
}

// committedEventLogger is the baseline event-store subscriber: it traces every
// committed event with its stream position.
type committedEventLogger struct {
	logger *zap.SugaredLogger
}

func (l *committedEventLogger) HandleEvent(ctx context.Context, ev entity.Event) error {
	l.logger.Debugf("[aggregate: %s] committed %s v%d", ev.AggregateID, ev.Payload.EventType(), ev.Version)
	return nil
}
