// Package reader turns a paged event query into one ordered stream of events.
package reader

import (
	"context"
	"errors"
	"fmt"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/storage"
)

const opFetchPage = "fetch page"

// Reader yields every event selected by a query exactly once, in ascending
// order-key order, fetching pages from the store as the caller advances.
//
// The store is only called from Next, and only when the current page is
// drained, so page boundaries are the only points where a caller blocks.
// A Reader is single use: once Next returns false it stays false.
type Reader struct {
	store  storage.PageReader
	q      query.Query
	buf    []*v1.Event
	idx    int
	cursor storage.Cursor

	started bool
	done    bool
	current *v1.Event
	last    orderkey.OrderKey
	pages   int
	count   int
	err     error
}

// Open prepares a Reader for q. No page is fetched until the first Next.
func Open(store storage.PageReader, q query.Query) *Reader {
	return &Reader{
		store:  store,
		q:      q,
		cursor: storage.NoCursor,
		last:   q.After,
	}
}

// Next advances to the next event. It returns false at the end of the stream
// or on error; Err tells the two apart.
func (r *Reader) Next(ctx context.Context) bool {
	r.current = nil
	if r.err != nil || r.done {
		return false
	}

	for r.idx >= len(r.buf) {
		if r.started && r.cursor == storage.NoCursor {
			r.done = true
			r.buf = nil
			return false
		}
		if err := r.fetch(ctx); err != nil {
			r.err = err
			return false
		}
	}

	e := r.buf[r.idx]
	r.idx++

	if err := r.check(e); err != nil {
		r.err = storage.Unavailable(opFetchPage, r.q.AggregateID, r.pages, err)
		return false
	}

	r.last = e.OrderKey
	r.current = e
	r.count++
	return true
}

func (r *Reader) fetch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("read cancelled before page %d: %w", r.pages+1, err)
	}

	prev := r.cursor
	page, err := r.store.ExecutePagedQuery(ctx, r.q, r.cursor)
	if err != nil {
		// Drivers report a cancelled statement with their own errors.
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !errors.Is(err, ctxErr) {
				err = errors.Join(ctxErr, err)
			}
			return fmt.Errorf("read cancelled during page %d: %w", r.pages+1, err)
		}
		return storage.Unavailable(opFetchPage, r.q.AggregateID, r.pages+1, err)
	}

	r.pages++
	if len(page.Events) == 0 && r.started && page.Next != storage.NoCursor && page.Next == prev {
		return storage.Unavailable(opFetchPage, r.q.AggregateID, r.pages,
			fmt.Errorf("%w: empty page did not advance cursor", storage.ErrMalformedPage))
	}

	r.started = true
	r.buf = page.Events
	r.idx = 0
	r.cursor = page.Next
	return nil
}

func (r *Reader) check(e *v1.Event) error {
	switch {
	case e == nil:
		return fmt.Errorf("%w: nil event at position %d", storage.ErrMalformedPage, r.count+1)
	case e.AggregateID != r.q.AggregateID:
		return fmt.Errorf("%w: event %s belongs to aggregate %s", storage.ErrMalformedPage, e.ID, e.AggregateID)
	case !r.q.Matches(e):
		return fmt.Errorf("%w: event %s has order key %s, cutoff %s", storage.ErrOutOfOrder, e.ID, e.OrderKey, r.q.After)
	case e.OrderKey <= r.last:
		return fmt.Errorf("%w: event %s has order key %s, previous %s", storage.ErrOutOfOrder, e.ID, e.OrderKey, r.last)
	}
	return nil
}

// Event returns the event Next advanced to, or nil.
func (r *Reader) Event() *v1.Event {
	return r.current
}

// Err returns the error that stopped iteration, or nil at a clean end of stream.
func (r *Reader) Err() error {
	return r.err
}

// Pages returns the number of pages fetched so far.
func (r *Reader) Pages() int {
	return r.pages
}

// Count returns the number of events yielded so far.
func (r *Reader) Count() int {
	return r.count
}

// Query returns the query being read.
func (r *Reader) Query() query.Query {
	return r.q
}
