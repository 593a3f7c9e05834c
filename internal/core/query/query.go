// Package query plans the store-agnostic range query that selects one
// aggregate's events after a checkpoint. Store drivers translate a Query into
// their own query language; nothing here talks to a store.
package query

import (
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/google/uuid"
)

const (
	// DefaultPageSize is the page size requested from stores when none is set.
	DefaultPageSize = 1000

	// MaxPageSize caps a single page fetch.
	MaxPageSize = 10000
)

// Field names used when rendering a Query.
const (
	FieldAggregateID = "aggregate_id"
	FieldOrderKey    = "order_key"
)

// SortOrder is the iteration order of a Query.
type SortOrder string

// Ascending is the only order a Query can have: folds apply events
// chronologically.
const Ascending SortOrder = "ASC"

// ErrInvalidQuery marks a Query no store should execute.
var ErrInvalidQuery = errors.New("invalid query")

// Query selects the events with AggregateID equal to the planned aggregate and
// an order key strictly greater than After, ascending by order key.
type Query struct {
	AggregateID uuid.UUID
	After       orderkey.OrderKey
	PageSize    int
}

// Option adjusts a planned Query.
type Option func(*Query)

// WithPageSize sets the number of events a store should return per page.
// Values <= 0 keep the default; values above MaxPageSize are capped.
func WithPageSize(n int) Option {
	return func(q *Query) {
		if n > 0 {
			q.PageSize = min(n, MaxPageSize)
		}
	}
}

// Plan builds the query for one aggregate's events after the given key.
func Plan(aggregateID uuid.UUID, after orderkey.OrderKey, opts ...Option) Query {
	q := Query{
		AggregateID: aggregateID,
		After:       after,
		PageSize:    DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&q)
	}
	return q
}

// OrderBy returns the sort order of the query. It is always Ascending.
func (q Query) OrderBy() SortOrder {
	return Ascending
}

// Validate rejects queries that cannot be executed.
func (q Query) Validate() error {
	if q.AggregateID == uuid.Nil {
		return fmt.Errorf("%w: aggregate id is required", ErrInvalidQuery)
	}
	if q.PageSize <= 0 {
		return fmt.Errorf("%w: page size must be > 0, got %d", ErrInvalidQuery, q.PageSize)
	}
	return nil
}

// Matches reports whether e satisfies the query predicate.
func (q Query) Matches(e *v1.Event) bool {
	return e != nil && e.AggregateID == q.AggregateID && e.OrderKey > q.After
}

// Filter renders the predicate for logs and diagnostics.
func (q Query) Filter() string {
	return fmt.Sprintf("%s eq '%s' and %s gt '%s'",
		FieldAggregateID, q.AggregateID, FieldOrderKey, q.After)
}

func (q Query) String() string {
	return fmt.Sprintf("%s order by %s %s limit %d", q.Filter(), FieldOrderKey, q.OrderBy(), q.PageSize)
}
