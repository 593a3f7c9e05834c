// Package memory is an in-process event log with the same paging contract as
// the Postgres adapter. It backs `database.type: memory` and the tests.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sort"
	"sync"
	"time"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/google/uuid"
)

var _ storage.EventStore = (*Store)(nil)

// Store keeps each aggregate's events sorted by order key.
type Store struct {
	mu      sync.RWMutex
	events  map[uuid.UUID][]*v1.Event
	maxPage int
	nowFn   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxPageSize caps pages below the size a query asks for, the way a
// managed store may cut pages short.
func WithMaxPageSize(n int) Option {
	return func(s *Store) {
		s.maxPage = n
	}
}

// WithClock replaces the clock used for RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = now
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		events: make(map[uuid.UUID][]*v1.Event),
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveEvent appends a copy of event and writes the assigned OrderKey and
// RecordedAt back into event.
func (s *Store) SaveEvent(ctx context.Context, event *v1.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.events[event.AggregateID]
	for _, existing := range stream {
		if existing.ID == event.ID {
			return storage.ErrDuplicate
		}
	}

	last := orderkey.MinOrderKey
	if n := len(stream); n > 0 {
		last = stream[n-1].OrderKey
	}
	key, err := orderkey.NewSequencer(last).Next(event.OccurredAt)
	if err != nil {
		return fmt.Errorf("assign order key: %w", err)
	}

	event.OrderKey = key
	event.RecordedAt = s.nowFn()
	s.events[event.AggregateID] = append(stream, clone(event))

	slog.Debug("[Memory] Saved event",
		"aggregate_id", event.AggregateID,
		"event_id", event.ID,
		"order_key", key)
	return nil
}

// ExecutePagedQuery returns the page of q starting after cursor.
func (s *Store) ExecutePagedQuery(ctx context.Context, q query.Query, cursor storage.Cursor) (storage.Page, error) {
	if err := ctx.Err(); err != nil {
		return storage.Page{}, err
	}
	if err := q.Validate(); err != nil {
		return storage.Page{}, err
	}

	after := q.After
	if cursor != storage.NoCursor {
		k, err := storage.ParseKeysetCursor(cursor, q.AggregateID)
		if err != nil {
			return storage.Page{}, err
		}
		after = max(after, k)
	}

	limit := q.PageSize
	if s.maxPage > 0 && s.maxPage < limit {
		limit = s.maxPage
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.events[q.AggregateID]
	start := sort.Search(len(stream), func(i int) bool {
		return stream[i].OrderKey > after
	})

	end := min(start+limit, len(stream))
	page := storage.Page{Events: make([]*v1.Event, 0, end-start)}
	for _, e := range stream[start:end] {
		page.Events = append(page.Events, clone(e))
	}
	if end < len(stream) {
		page.Next = storage.KeysetCursor(q.AggregateID, stream[end-1].OrderKey)
	}
	return page, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close drops all events.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[uuid.UUID][]*v1.Event)
	return nil
}

func clone(e *v1.Event) *v1.Event {
	c := *e
	c.Metadata = maps.Clone(e.Metadata)
	c.Data = maps.Clone(e.Data)
	return &c
}
