package rehydration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/fold"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/aevon-lab/eventfold/internal/core/storage/memory"
	storagemocks "github.com/aevon-lab/eventfold/internal/mocks/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	base       = time.Date(2026, 2, 8, 10, 0, 0, 0, time.UTC)
	errRejects = errors.New("rejected")
	quiet      = WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
)

// trail records the IDs of the events it was folded over, in order.
// It rejects events whose payload carries "reject": true.
func trail(state []string, e *v1.Event) ([]string, error) {
	if reject, _ := e.Data["reject"].(bool); reject {
		return nil, fmt.Errorf("event %s: %w", e.ID, errRejects)
	}
	return append(state[:len(state):len(state)], e.ID), nil
}

func emptyTrail() []string {
	return []string{}
}

// seedStore appends n events to a fresh aggregate, one second apart, and
// returns the aggregate id with the events in order.
func seedStore(t *testing.T, store storage.EventStore, n int, rejected ...int) (uuid.UUID, []*v1.Event) {
	t.Helper()

	bad := make(map[int]bool, len(rejected))
	for _, i := range rejected {
		bad[i] = true
	}

	id := uuid.New()
	events := make([]*v1.Event, 0, n)
	for i := 0; i < n; i++ {
		e := &v1.Event{
			ID:          fmt.Sprintf("evt-%02d", i),
			AggregateID: id,
			Type:        "account.credited",
			OccurredAt:  base.Add(time.Duration(i) * time.Second),
			Data:        map[string]interface{}{"reject": bad[i]},
		}
		require.NoError(t, store.SaveEvent(context.Background(), e))
		events = append(events, e)
	}
	return id, events
}

func ids(events []*v1.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func TestFoldEvents_AppliesEventsInOrder(t *testing.T) {
	store := memory.NewStore(memory.WithMaxPageSize(3))
	id, events := seedStore(t, store, 10)

	res, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, orderkey.NoCutoff(), quiet)
	require.NoError(t, err)
	require.Equal(t, ids(events), res.State)
	require.Empty(t, res.Failures)
}

func TestFoldEvents_CutoffIsStrictlyGreater(t *testing.T) {
	store := memory.NewStore()
	id, events := seedStore(t, store, 5)

	tests := []struct {
		name   string
		cutoff orderkey.Cutoff
		want   []string
	}{
		{name: "no cutoff", cutoff: orderkey.NoCutoff(), want: ids(events)},
		{name: "zero time is no cutoff", cutoff: orderkey.After(time.Time{}), want: ids(events)},
		{name: "before history", cutoff: orderkey.After(base.Add(-time.Hour)), want: ids(events)},
		{name: "at an event excludes it", cutoff: orderkey.After(events[2].OccurredAt), want: ids(events[3:])},
		{name: "between events", cutoff: orderkey.After(events[2].OccurredAt.Add(time.Millisecond)), want: ids(events[3:])},
		{name: "at last event", cutoff: orderkey.After(events[4].OccurredAt), want: []string{}},
		{name: "after history", cutoff: orderkey.After(base.Add(time.Hour)), want: []string{}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, tc.cutoff, quiet)
			require.NoError(t, err)
			require.Equal(t, tc.want, res.State)
		})
	}
}

func TestFoldEvents_IsolatesAccumulatorFailures(t *testing.T) {
	store := memory.NewStore(memory.WithMaxPageSize(2))
	id, events := seedStore(t, store, 6, 1, 4)

	res, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, orderkey.NoCutoff(), quiet)
	require.NoError(t, err)

	// The state is the fold of every other event, in order.
	require.Equal(t, []string{"evt-00", "evt-02", "evt-03", "evt-05"}, res.State)

	require.Len(t, res.Failures, 2)
	require.Equal(t, []string{"evt-01", "evt-04"}, res.FailedEventIDs())
	require.Equal(t, events[1].OrderKey, res.Failures[0].Event.OrderKey)
	for _, f := range res.Failures {
		require.ErrorIs(t, f.Reason, errRejects)
	}
}

func TestFoldEvents_FailureEqualsFoldWithoutEvent(t *testing.T) {
	withBad := memory.NewStore()
	badID, _ := seedStore(t, withBad, 5, 2)

	// Same history minus the rejected event, at the same order keys.
	without := memory.NewStore()
	cleanID := uuid.New()
	for i := 0; i < 5; i++ {
		if i == 2 {
			continue
		}
		require.NoError(t, without.SaveEvent(context.Background(), &v1.Event{
			ID:          fmt.Sprintf("evt-%02d", i),
			AggregateID: cleanID,
			Type:        "account.credited",
			OccurredAt:  base.Add(time.Duration(i) * time.Second),
			Data:        map[string]interface{}{},
		}))
	}

	got, err := FoldEvents(context.Background(), withBad, badID, trail, emptyTrail, orderkey.NoCutoff(), quiet)
	require.NoError(t, err)
	want, err := FoldEvents(context.Background(), without, cleanID, trail, emptyTrail, orderkey.NoCutoff(), quiet)
	require.NoError(t, err)

	require.Equal(t, want.State, got.State)
	require.Equal(t, []string{"evt-02"}, got.FailedEventIDs())
}

func TestFoldEvents_PanickingAccumulatorIsAFailure(t *testing.T) {
	store := memory.NewStore()
	id, _ := seedStore(t, store, 3)

	acc := func(state int, e *v1.Event) (int, error) {
		if e.ID == "evt-01" {
			var m map[string]int
			m["boom"]++
		}
		return state + 1, nil
	}

	res, err := FoldEvents(context.Background(), store, id, acc, func() int { return 0 }, orderkey.NoCutoff(), quiet)
	require.NoError(t, err)
	require.Equal(t, 2, res.State)
	require.Len(t, res.Failures, 1)

	var pe *fold.PanicError
	require.ErrorAs(t, res.Failures[0].Reason, &pe)
}

func TestFoldEvents_SameSequenceForEveryPageSplit(t *testing.T) {
	store := memory.NewStore()
	id, events := seedStore(t, store, 23, 7)

	single, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, orderkey.NoCutoff(), quiet)
	require.NoError(t, err)
	require.Len(t, single.State, len(events)-1)

	for _, size := range []int{1, 2, 3, 5, 22, 23, 24, 1000} {
		t.Run(fmt.Sprintf("page size %d", size), func(t *testing.T) {
			res, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, orderkey.NoCutoff(), quiet, WithPageSize(size))
			require.NoError(t, err)
			require.Equal(t, single.State, res.State)
			require.Equal(t, single.FailedEventIDs(), res.FailedEventIDs())
		})
	}
}

// flakyStore serves pages from next until failAt, then fails every call.
type flakyStore struct {
	next   storage.PageReader
	failAt int
	calls  int
}

func (s *flakyStore) ExecutePagedQuery(ctx context.Context, q query.Query, cursor storage.Cursor) (storage.Page, error) {
	s.calls++
	if s.calls >= s.failAt {
		return storage.Page{}, errors.New("connection reset by peer")
	}
	return s.next.ExecutePagedQuery(ctx, q, cursor)
}

func TestFoldEvents_PageFailureAbortsWithoutResult(t *testing.T) {
	inner := memory.NewStore(memory.WithMaxPageSize(2))
	id, _ := seedStore(t, inner, 7)

	store := &flakyStore{next: inner, failAt: 3}
	var folded int
	acc := func(state []string, e *v1.Event) ([]string, error) {
		folded++
		return trail(state, e)
	}

	res, err := FoldEvents(context.Background(), store, id, acc, emptyTrail, orderkey.NoCutoff(), quiet)
	require.ErrorIs(t, err, storage.ErrStoreUnavailable)
	require.ErrorContains(t, err, "connection reset by peer")

	var ue *storage.UnavailableError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, 3, ue.Page)
	require.Equal(t, id, ue.AggregateID)

	require.Equal(t, 4, folded, "two full pages were folded before the failure")
	require.Nil(t, res.State)
	require.Nil(t, res.Failures)
}

func TestFoldEvents_EmptyHistoryFetchesOnce(t *testing.T) {
	id := uuid.New()
	store := storagemocks.NewPageReader(t)
	store.EXPECT().
		ExecutePagedQuery(mock.Anything, mock.MatchedBy(func(q query.Query) bool {
			return q.AggregateID == id && q.After == orderkey.MinOrderKey
		}), storage.NoCursor).
		Return(storage.Page{}, nil).
		Once()

	seeds := 0
	seed := func() []string {
		seeds++
		return []string{"seed"}
	}

	res, err := FoldEvents(context.Background(), store, id, trail, seed, orderkey.NoCutoff(), quiet)
	require.NoError(t, err)
	require.Equal(t, []string{"seed"}, res.State)
	require.NotNil(t, res.Failures)
	require.Empty(t, res.Failures)
	require.Equal(t, 1, seeds)
}

func TestFoldEvents_ReplayIsIdempotent(t *testing.T) {
	store := memory.NewStore(memory.WithMaxPageSize(4))
	id, _ := seedStore(t, store, 9, 3, 8)

	first, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, orderkey.After(base), quiet)
	require.NoError(t, err)
	second, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, orderkey.After(base), quiet)
	require.NoError(t, err)

	require.Equal(t, first.State, second.State)
	require.Equal(t, first.FailedEventIDs(), second.FailedEventIDs())
	for i := range first.Failures {
		require.Equal(t, first.Failures[i].Event, second.Failures[i].Event)
		require.Equal(t, first.Failures[i].Reason.Error(), second.Failures[i].Reason.Error())
	}
}

func TestFoldEvents_CancelledContext(t *testing.T) {
	store := memory.NewStore()
	id, _ := seedStore(t, store, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := FoldEvents(ctx, store, id, trail, emptyTrail, orderkey.NoCutoff(), quiet)
	require.ErrorIs(t, err, context.Canceled)
	require.NotErrorIs(t, err, storage.ErrStoreUnavailable)
	require.Nil(t, res.State)
}

func TestFoldEvents_InvalidArguments(t *testing.T) {
	store := memory.NewStore()
	id := uuid.New()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "nil store", call: func() error {
			_, err := FoldEvents(context.Background(), nil, id, trail, emptyTrail, orderkey.NoCutoff())
			return err
		}},
		{name: "nil aggregate", call: func() error {
			_, err := FoldEvents(context.Background(), store, uuid.Nil, trail, emptyTrail, orderkey.NoCutoff())
			return err
		}},
		{name: "nil accumulator", call: func() error {
			_, err := FoldEvents[[]string](context.Background(), store, id, nil, emptyTrail, orderkey.NoCutoff())
			return err
		}},
		{name: "nil seed", call: func() error {
			_, err := FoldEvents(context.Background(), store, id, trail, nil, orderkey.NoCutoff())
			return err
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.call(), ErrInvalidArgument)
		})
	}
}

func TestFoldEvents_LogsCutoffAndFailures(t *testing.T) {
	store := memory.NewStore()
	id, _ := seedStore(t, store, 3, 1)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := FoldEvents(context.Background(), store, id, trail, emptyTrail, orderkey.NoCutoff(), WithLogger(logger))
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, `cutoff="beginning of time"`)
	require.Contains(t, out, "filter=")
	require.Contains(t, out, "event_id=evt-01")
	require.Contains(t, out, "failures=1")
}
