package projection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/fold"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/rules"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/aevon-lab/eventfold/internal/rehydration"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const defaultFoldTimeout = 30 * time.Second

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid state query")

// snapshot is the fold state behind a StateResponse.
type snapshot struct {
	values rules.State
	last   orderkey.OrderKey
	events int64
}

// Service serves aggregate state by folding the event log on every read.
type Service struct {
	store       storage.PageReader
	accumulate  fold.Accumulator[snapshot]
	pageSize    int
	foldTimeout time.Duration

	// Identical in-flight reads share one fold.
	group singleflight.Group
}

// NewService creates a new projection service over the given rule set.
// A non-positive pageSize uses the planner default and a non-positive
// foldTimeout falls back to 30s.
func NewService(store storage.PageReader, ruleSet []rules.Rule, pageSize int, foldTimeout time.Duration) *Service {
	if foldTimeout <= 0 {
		foldTimeout = defaultFoldTimeout
	}
	return &Service{
		store:       store,
		accumulate:  trackSnapshot(rules.NewAccumulator(ruleSet)),
		pageSize:    pageSize,
		foldTimeout: foldTimeout,
	}
}

// trackSnapshot lifts the rule accumulator into a snapshot that also counts
// the events it folded.
func trackSnapshot(acc fold.Accumulator[rules.State]) fold.Accumulator[snapshot] {
	return func(s snapshot, e *v1.Event) (snapshot, error) {
		values, err := acc(s.values, e)
		if err != nil {
			return s, err
		}
		return snapshot{values: values, last: e.OrderKey, events: s.events + 1}, nil
	}
}

// State rebuilds the aggregate named by req.
//
// Concurrent calls for the same aggregate and cutoff are collapsed into one
// fold. The fold runs under its own timeout, detached from the cancellation of
// any single caller; a caller that gives up returns its context error without
// stopping the fold for the others.
func (s *Service) State(ctx context.Context, req StateRequest) (*StateResponse, error) {
	if req.AggregateID == uuid.Nil {
		return nil, invalidQueryf("aggregate_id is required")
	}

	// Keyed on the rendered cutoff, not its order key: cutoffs that only differ
	// below a microsecond fold the same events but answer with their own After.
	key := req.AggregateID.String() + "|" + req.Cutoff.String()
	ch := s.group.DoChan(key, func() (interface{}, error) {
		foldCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.foldTimeout)
		defer cancel()
		return s.rehydrate(foldCtx, req)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			slog.Debug("[Projection] Served shared fold", "aggregate_id", req.AggregateID, "cutoff", req.Cutoff.String())
		}
		return res.Val.(*StateResponse), nil
	}
}

func (s *Service) rehydrate(ctx context.Context, req StateRequest) (*StateResponse, error) {
	seed := func() snapshot {
		return snapshot{values: rules.NewState(), last: orderkey.Encode(req.Cutoff)}
	}

	res, err := rehydration.FoldEvents(ctx, s.store, req.AggregateID, s.accumulate, seed, req.Cutoff,
		rehydration.WithPageSize(s.pageSize))
	if err != nil {
		return nil, fmt.Errorf("fold aggregate %s: %w", req.AggregateID, err)
	}

	resp := &StateResponse{
		AggregateID: req.AggregateID.String(),
		After:       req.Cutoff.String(),
		State:       res.State.values,
		Failures:    make([]FailureView, 0, len(res.Failures)),
		EventCount:  res.State.events,
	}

	last := res.State.last
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, FailureView{
			EventID:   f.Event.ID,
			EventType: f.Event.Type,
			OrderKey:  f.Event.OrderKey.String(),
			Reason:    f.Reason.Error(),
		})
		if f.Event.OrderKey > last {
			last = f.Event.OrderKey
		}
	}
	if last > orderkey.Encode(req.Cutoff) {
		resp.LastOrderKey = last.String()
	}

	return resp, nil
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
