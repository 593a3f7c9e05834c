package storage

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/google/uuid"
)

var (
	// ErrDuplicate is returned when an event with the same (aggregate_id, id) already exists.
	ErrDuplicate = errors.New("event already exists")

	// ErrStoreUnavailable marks any failure to fetch a page. A fold that sees it
	// did not happen and must be retried as a whole.
	ErrStoreUnavailable = errors.New("event store unavailable")

	// ErrInvalidCursor is returned for continuation cursors the store did not
	// issue for the query being executed.
	ErrInvalidCursor = errors.New("invalid continuation cursor")

	// ErrOutOfOrder is returned when a store yields events that break the
	// query's ascending order-key contract.
	ErrOutOfOrder = errors.New("events out of order")

	// ErrMalformedPage is returned for pages holding nil events, events of
	// another aggregate, or an empty page that does not advance the cursor.
	ErrMalformedPage = errors.New("malformed page")
)

// Cursor is an opaque continuation token issued by a store. The empty cursor
// means "no more pages". Only the store that issued a cursor may interpret it.
type Cursor string

// NoCursor starts a query from its first page and marks the last page.
const NoCursor Cursor = ""

// Page is one slice of a paged query result.
type Page struct {
	// Events are in ascending order-key order.
	Events []*v1.Event

	// Next resumes the query after this page. NoCursor on the last page.
	Next Cursor
}

// Last reports whether no page follows this one.
func (p Page) Last() bool {
	return p.Next == NoCursor
}

// PageReader executes a planned query one page at a time.
type PageReader interface {
	// ExecutePagedQuery returns the page of q that starts at cursor. Pass
	// NoCursor for the first page and the previous Page.Next afterwards.
	ExecutePagedQuery(ctx context.Context, q query.Query, cursor Cursor) (Page, error)
}

// EventStore defines the interface for storing and retrieving events.
type EventStore interface {
	PageReader

	// SaveEvent appends an event to its aggregate's log. The store assigns
	// OrderKey and RecordedAt and writes them back into event.
	// Returns ErrDuplicate if the aggregate already holds an event with the same ID.
	SaveEvent(ctx context.Context, event *v1.Event) error
}

// UnavailableError describes a failed page fetch.
type UnavailableError struct {
	Op          string
	AggregateID uuid.UUID
	Page        int
	Err         error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("event store unavailable: %s aggregate %s page %d: %v", e.Op, e.AggregateID, e.Page, e.Err)
}

// Unwrap exposes both ErrStoreUnavailable and the underlying cause to errors.Is/As.
func (e *UnavailableError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

// Unavailable wraps a page fetch failure. It returns nil for a nil err and
// leaves errors that are already UnavailableErrors untouched.
func Unavailable(op string, aggregateID uuid.UUID, page int, err error) error {
	if err == nil {
		return nil
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Op: op, AggregateID: aggregateID, Page: page, Err: err}
}
