package repo

import (
	"context"
	"fmt"
	"time"

	"payments/internal/application/common"
	"payments/internal/application/entity"
	"payments/pkg/db"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
)

// PostgresOutbox is the durable outbox store. Its statements route through the
// db layer, so a caller that wraps Enqueue in db.WithinTransaction gets the
// insert committed or rolled back together with its other writes; without a
// transaction in ctx the insert runs directly on the pool.
type PostgresOutbox struct {
	db     db.DB
	lease  time.Duration
	logger *zap.SugaredLogger
}

func NewPostgresOutbox(db db.DB, lease time.Duration, logger *zap.SugaredLogger) *PostgresOutbox {
	if lease <= 0 {
		lease = 30 * time.Second
	}
	return &PostgresOutbox{db: db, lease: lease, logger: logger}
}

func (o *PostgresOutbox) Enqueue(ctx context.Context, msg entity.OutboxMessage) error {
	o.logger.Debugf("[outbox: %s] Enqueue started", msg.ID)

	_, err := o.db.Exec(ctx, insertOutboxQuery,
		msg.ID, msg.EntityType, msg.EntityID, msg.EventType, msg.Payload, msg.Topic, string(msg.Status), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox_message: %w", err)
	}
	return nil
}

func (o *PostgresOutbox) DequeuePending(ctx context.Context, batchSize int) ([]entity.OutboxMessage, error) {
	o.logger.Debugf("[batch: %d, lease: %s] DequeuePending started", batchSize, o.lease)

	rows, err := o.db.Query(ctx, reserveBatchSQL, common.PgInterval(o.lease), batchSize)
	if err != nil {
		return nil, fmt.Errorf("reserve outbox batch: %w", err)
	}
	defer rows.Close()

	var res []entity.OutboxMessage
	for rows.Next() {
		var m entity.OutboxMessage
		var status string
		if err := rows.Scan(
			&m.ID, &m.EntityType, &m.EntityID, &m.EventType,
			&m.Payload, &m.Topic, &status, &m.RetryCount, &m.CreatedAt, &m.ProcessedAt, &m.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan reserved outbox: %w", err)
		}
		m.Status = entity.OutboxStatus(status)
		res = append(res, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reserve rows err: %w", err)
	}
	return res, nil
}

func (o *PostgresOutbox) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return o.exec(ctx, "mark processing", markProcessingSQL, id)
}

func (o *PostgresOutbox) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return o.exec(ctx, "mark completed", markCompletedSQL, id)
}

func (o *PostgresOutbox) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return o.exec(ctx, "mark failed", markFailedSQL, id, errMsg)
}

func (o *PostgresOutbox) MarkTerminallyFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	return o.exec(ctx, "mark terminally failed", markTerminallyFailedSQL, id, errMsg)
}

func (o *PostgresOutbox) PendingCount(ctx context.Context) (int, error) {
	var count int
	if err := o.db.QueryRow(ctx, pendingCountSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("outbox pending count: %w", err)
	}
	return count, nil
}

func (o *PostgresOutbox) PurgeFinished(ctx context.Context, olderThan time.Duration) (int, error) {
	tag, err := o.db.Exec(ctx, purgeFinishedSQL, common.PgInterval(olderThan))
	if err != nil {
		return 0, fmt.Errorf("outbox purge: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (o *PostgresOutbox) HealthCheck(ctx context.Context) error {
	var result int
	if err := o.db.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (o *PostgresOutbox) exec(ctx context.Context, op, query string, args ...any) error {
	tag, err := o.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("outbox %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOutboxMessageNotFound
	}
	return nil
}
