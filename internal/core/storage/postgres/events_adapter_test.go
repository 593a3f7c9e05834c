package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"math"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/partition"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var (
	testAggregate = uuid.MustParse("6f1c2a8e-4b1d-4f0e-9c55-3d2a7c9e0b11")
	testNow       = time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
)

func TestAdapter_SaveEvent(t *testing.T) {
	occurredAt := time.Date(2026, 2, 8, 11, 0, 0, 0, time.UTC)
	occurredKey := orderkey.FromTime(occurredAt)

	tests := []struct {
		name       string
		event      *v1.Event
		mockResult func(mock sqlmock.Sqlmock, event *v1.Event)
		assertions func(t *testing.T, event *v1.Event, err error)
	}{
		{
			name:  "first event takes the key of its time",
			event: testEvent("evt-1", occurredAt),
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppendPrologue(mock, orderkey.MinOrderKey)
				mock.ExpectQuery(regexp.QuoteMeta(querySaveEvent)).
					WithArgs(
						testAggregate.String(),
						event.ID,
						int64(occurredKey),
						partition.For(testAggregate),
						event.Type,
						event.SchemaVersion,
						event.OccurredAt,
						testNow,
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"order_key"}).AddRow(int64(occurredKey)))
				mock.ExpectCommit()
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.NoError(t, err)
				require.Equal(t, occurredKey, event.OrderKey)
				require.Equal(t, testNow, event.RecordedAt)
			},
		},
		{
			name:  "colliding time is sequenced after the tail",
			event: testEvent("evt-2", occurredAt),
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppendPrologue(mock, occurredKey)
				mock.ExpectQuery(regexp.QuoteMeta(querySaveEvent)).
					WithArgs(
						testAggregate.String(),
						event.ID,
						int64(occurredKey+1),
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
						sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"order_key"}).AddRow(int64(occurredKey + 1)))
				mock.ExpectCommit()
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.NoError(t, err)
				require.Equal(t, occurredKey+1, event.OrderKey)
			},
		},
		{
			name:  "duplicate maps to ErrDuplicate",
			event: testEvent("evt-dup", occurredAt),
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				expectAppendPrologue(mock, occurredKey)
				mock.ExpectQuery(regexp.QuoteMeta(querySaveEvent)).
					WillReturnRows(sqlmock.NewRows([]string{"order_key"}))
				mock.ExpectRollback()
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
				require.Equal(t, orderkey.OrderKey(0), event.OrderKey)
				require.True(t, event.RecordedAt.IsZero())
			},
		},
		{
			name:  "lock failure rolls back",
			event: testEvent("evt-3", occurredAt),
			mockResult: func(mock sqlmock.Sqlmock, event *v1.Event) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(queryLockAggregate)).
					WithArgs(testAggregate.String()).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorContains(t, err, "failed to lock aggregate")
			},
		},
		{
			name: "marshal error short-circuits",
			event: func() *v1.Event {
				e := testEvent("evt-bad", occurredAt)
				e.Data = map[string]interface{}{"value": math.NaN()}
				return e
			}(),
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorContains(t, err, "failed to marshal data")
			},
		},
		{
			name:  "invalid event is rejected before touching the database",
			event: &v1.Event{ID: "evt-4", AggregateID: testAggregate},
			assertions: func(t *testing.T, event *v1.Event, err error) {
				require.ErrorContains(t, err, "invalid event")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			if tc.mockResult != nil {
				tc.mockResult(mock, tc.event)
			}

			err := adapter.SaveEvent(context.Background(), tc.event)
			tc.assertions(t, tc.event, err)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_ExecutePagedQuery_IssuesCursorWhenMoreRowsExist(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	q := query.Plan(testAggregate, orderkey.MinOrderKey, query.WithPageSize(2))

	mock.ExpectQuery(regexp.QuoteMeta(queryEventsPage)).
		WithArgs(testAggregate.String(), int64(orderkey.MinOrderKey), 3).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow(eventRow("evt-1", base, 1, `{"source":"api"}`, `{"amount":3}`)...).
			AddRow(eventRow("evt-2", base, 2, `{"source":"worker"}`, `{"amount":4}`)...).
			AddRow(eventRow("evt-3", base, 3, ``, `{"amount":5}`)...),
		).RowsWillBeClosed()

	page, err := adapter.ExecutePagedQuery(context.Background(), q, storage.NoCursor)
	require.NoError(t, err)
	require.Len(t, page.Events, 2)
	require.Equal(t, "evt-1", page.Events[0].ID)
	require.Equal(t, testAggregate, page.Events[0].AggregateID)
	require.Equal(t, "api", page.Events[0].Metadata["source"])
	require.Equal(t, float64(3), page.Events[0].Data["amount"])
	require.Equal(t, "evt-2", page.Events[1].ID)
	require.Equal(t, storage.KeysetCursor(testAggregate, page.Events[1].OrderKey), page.Next)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ExecutePagedQuery_ResumesFromCursor(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	lastKey := orderkey.FromTime(base) + 2
	q := query.Plan(testAggregate, orderkey.MinOrderKey, query.WithPageSize(2))

	mock.ExpectQuery(regexp.QuoteMeta(queryEventsPage)).
		WithArgs(testAggregate.String(), int64(lastKey), 3).
		WillReturnRows(sqlmock.NewRows(eventRowColumns()).
			AddRow(eventRow("evt-3", base, 3, ``, `{"amount":5}`)...),
		).RowsWillBeClosed()

	page, err := adapter.ExecutePagedQuery(context.Background(), q, storage.KeysetCursor(testAggregate, lastKey))
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	require.Nil(t, page.Events[0].Metadata)
	require.True(t, page.Last())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_ExecutePagedQuery_Errors(t *testing.T) {
	t.Run("foreign cursor", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		q := query.Plan(testAggregate, orderkey.MinOrderKey)
		other := storage.KeysetCursor(uuid.New(), 10)

		_, err := adapter.ExecutePagedQuery(context.Background(), q, other)
		require.ErrorIs(t, err, storage.ErrInvalidCursor)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failure", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		q := query.Plan(testAggregate, orderkey.MinOrderKey)
		mock.ExpectQuery(regexp.QuoteMeta(queryEventsPage)).
			WillReturnError(sql.ErrConnDone)

		_, err := adapter.ExecutePagedQuery(context.Background(), q, storage.NoCursor)
		require.ErrorIs(t, err, sql.ErrConnDone)
		require.ErrorContains(t, err, "failed to query events page")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("row error mid page", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		base := time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
		q := query.Plan(testAggregate, orderkey.MinOrderKey)
		mock.ExpectQuery(regexp.QuoteMeta(queryEventsPage)).
			WillReturnRows(sqlmock.NewRows(eventRowColumns()).
				AddRow(eventRow("evt-1", base, 1, ``, `{}`)...).
				RowError(0, errors.New("server closed the connection")),
			)

		_, err := adapter.ExecutePagedQuery(context.Background(), q, storage.NoCursor)
		require.ErrorContains(t, err, "error iterating events")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid query", func(t *testing.T) {
		adapter, mock, db := newMockAdapter(t)
		defer db.Close()

		_, err := adapter.ExecutePagedQuery(context.Background(), query.Query{PageSize: 1}, storage.NoCursor)
		require.ErrorIs(t, err, query.ErrInvalidQuery)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdapter_CloseReturnsDBCloseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	dbCloseErr := errors.New("db close failed")

	mock.ExpectPrepare(regexp.QuoteMeta(queryEventsPage)).WillBeClosed()
	stmtPage, err := db.Prepare(queryEventsPage)
	require.NoError(t, err)

	mock.ExpectClose().WillReturnError(dbCloseErr)

	adapter := &Adapter{db: db, stmtPageQuery: stmtPage}

	err = adapter.Close()
	require.Error(t, err)
	require.ErrorContains(t, err, "failed to close database")
	require.ErrorIs(t, err, dbCloseErr)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(querySchemaExists)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err = validateSchema(db)
	require.ErrorContains(t, err, "aggregate_events table does not exist")
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectPrepare(regexp.QuoteMeta(queryEventsPage))
	stmt, err := db.Prepare(queryEventsPage)
	require.NoError(t, err)

	adapter := &Adapter{
		db:            db,
		stmtPageQuery: stmt,
		nowFn:         func() time.Time { return testNow },
	}

	return adapter, mock, db
}

func expectAppendPrologue(mock sqlmock.Sqlmock, last orderkey.OrderKey) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(queryLockAggregate)).
		WithArgs(testAggregate.String()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(queryLastOrderKey)).
		WithArgs(testAggregate.String(), int64(orderkey.MinOrderKey)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(last)))
}

func testEvent(id string, occurredAt time.Time) *v1.Event {
	return &v1.Event{
		ID:            id,
		AggregateID:   testAggregate,
		Type:          "account.credited",
		SchemaVersion: 1,
		OccurredAt:    occurredAt,
		Metadata:      map[string]string{"source": "api"},
		Data:          map[string]interface{}{"amount": 3},
	}
}

func eventRowColumns() []string {
	return []string{
		"event_id",
		"aggregate_id",
		"order_key",
		"type",
		"schema_version",
		"occurred_at",
		"recorded_at",
		"metadata",
		"data",
	}
}

// eventRow builds a row for the n-th event of testAggregate, n microseconds after base.
func eventRow(id string, base time.Time, n int64, metadata, data string) []driver.Value {
	var meta []byte
	if metadata != "" {
		meta = []byte(metadata)
	}
	occurredAt := base.Add(time.Duration(n) * time.Microsecond)
	return []driver.Value{
		id,
		testAggregate.String(),
		int64(orderkey.FromTime(occurredAt)),
		"account.credited",
		1,
		occurredAt,
		occurredAt.Add(time.Second),
		meta,
		[]byte(data),
	}
}
