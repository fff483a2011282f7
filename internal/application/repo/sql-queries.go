package repo

const insertOutboxQuery = `
INSERT INTO outbox_message (
  id, entity_type, entity_id, event_type, payload, topic, status, retry_count, error_message, next_attempt_at, created_at
) VALUES ($1, $2, $3, $4, ($5)::jsonb, $6, $7, 0, '', now(), $8)
`

// Reserves a batch of due messages oldest-first, pushing next_attempt_at
// forward by the lease so parallel relay instances skip leased rows.
// PROCESSING rows are picked up again once their lease expires: that is the
// crash-recovery path for a worker that died between MarkProcessing and the
// completing transition, so no message is ever stranded.
const reserveBatchSQL = `
WITH picked AS (
	SELECT id
	FROM outbox_message
	WHERE status IN ('PENDING', 'PROCESSING')
		AND next_attempt_at <= now()
	ORDER BY created_at, id
	FOR UPDATE SKIP LOCKED
	LIMIT $2
)
UPDATE outbox_message AS o
SET next_attempt_at = now() + $1::interval
FROM picked
WHERE o.id = picked.id
RETURNING o.id, o.entity_type, o.entity_id, o.event_type, o.payload, o.topic, o.status, o.retry_count, o.created_at, o.processed_at, o.error_message;
`

const markProcessingSQL = `
UPDATE outbox_message SET status = 'PROCESSING' WHERE id = $1`

const markCompletedSQL = `
UPDATE outbox_message SET status = 'COMPLETED', processed_at = now() WHERE id = $1`

const markFailedSQL = `
UPDATE outbox_message
SET status = 'PENDING',
    retry_count = retry_count + 1,
    error_message = $2,
    next_attempt_at = now() + make_interval(secs => least(pow(2, retry_count + 1), 1800))
WHERE id = $1`

const markTerminallyFailedSQL = `
UPDATE outbox_message
SET status = 'FAILED', error_message = $2, processed_at = now()
WHERE id = $1`

const pendingCountSQL = `
SELECT count(*) FROM outbox_message WHERE status = 'PENDING'`

const purgeFinishedSQL = `
DELETE FROM outbox_message
WHERE status IN ('COMPLETED', 'FAILED')
	AND coalesce(processed_at, created_at) < now() - $1::interval`
