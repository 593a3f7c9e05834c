package postgres

// SQL queries for the aggregate event log

const (
	// queryLockAggregate serialises appends to one aggregate for the rest of
	// the transaction so order keys are assigned against a stable tail.
	queryLockAggregate = `SELECT pg_advisory_xact_lock(hashtext($1))`

	// queryLastOrderKey returns the highest order key of an aggregate, or $2
	// when the aggregate has no events yet.
	queryLastOrderKey = `
		SELECT COALESCE(MAX(order_key), $2)
		FROM aggregate_events
		WHERE aggregate_id = $1
	`

	// querySaveEvent appends an event with per-aggregate idempotency.
	// ON CONFLICT DO NOTHING returns no rows (sql.ErrNoRows) for duplicates.
	querySaveEvent = `
		INSERT INTO aggregate_events (
			aggregate_id, event_id, order_key, partition_id, type,
			schema_version, occurred_at, recorded_at, metadata, data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (aggregate_id, event_id) DO NOTHING
		RETURNING order_key
	`

	// queryEventsPage is the keyset page of one aggregate. The caller asks for
	// one row more than the page size to learn whether another page follows.
	queryEventsPage = `
		SELECT
			event_id, aggregate_id, order_key, type, schema_version,
			occurred_at, recorded_at, metadata, data
		FROM aggregate_events
		WHERE aggregate_id = $1
		  AND order_key > $2
		ORDER BY order_key ASC
		LIMIT $3
	`

	// querySchemaExists checks the event table is in place.
	querySchemaExists = `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_name = 'aggregate_events'
		)
	`
)
