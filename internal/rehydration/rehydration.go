// Package rehydration rebuilds an aggregate's state from its event log.
//
// FoldEvents plans the range query for the events after a cutoff, reads them
// page by page from a store and folds them with a caller supplied accumulator.
// Events the accumulator rejects are reported next to the state. A store that
// fails mid-way aborts the whole fold: the caller retries it from scratch.
package rehydration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aevon-lab/eventfold/internal/core/fold"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/aevon-lab/eventfold/internal/core/query"
	"github.com/aevon-lab/eventfold/internal/core/reader"
	"github.com/aevon-lab/eventfold/internal/core/storage"
	"github.com/google/uuid"
)

// ErrInvalidArgument is returned before any store call for unusable arguments.
var ErrInvalidArgument = errors.New("invalid argument")

type options struct {
	logger   *slog.Logger
	pageSize int
}

// Option configures a single FoldEvents call.
type Option func(*options)

// WithLogger replaces slog.Default for the call.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPageSize sets the number of events requested per page.
func WithPageSize(n int) Option {
	return func(o *options) {
		o.pageSize = n
	}
}

// FoldEvents folds the events of aggregateID ordered after cutoff into the
// state returned by seed.
//
// Accumulator errors and panics never surface as an error: each rejected event
// is listed in Result.Failures, in order, and the state skips it. Any failure
// to fetch a page returns an error matching storage.ErrStoreUnavailable and no
// result; a cancelled ctx returns the context error the same way.
func FoldEvents[S any](
	ctx context.Context,
	store storage.PageReader,
	aggregateID uuid.UUID,
	acc fold.Accumulator[S],
	seed func() S,
	cutoff orderkey.Cutoff,
	opts ...Option,
) (fold.Result[S], error) {
	switch {
	case store == nil:
		return fold.Result[S]{}, fmt.Errorf("%w: store is nil", ErrInvalidArgument)
	case aggregateID == uuid.Nil:
		return fold.Result[S]{}, fmt.Errorf("%w: aggregate id is required", ErrInvalidArgument)
	case acc == nil:
		return fold.Result[S]{}, fmt.Errorf("%w: accumulator is nil", ErrInvalidArgument)
	case seed == nil:
		return fold.Result[S]{}, fmt.Errorf("%w: seed initializer is nil", ErrInvalidArgument)
	}

	o := options{
		logger:   slog.Default(),
		pageSize: query.DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&o)
	}

	q := query.Plan(aggregateID, orderkey.Encode(cutoff), query.WithPageSize(o.pageSize))
	logger := o.logger.With("aggregate_id", aggregateID.String())
	logger.Debug("[Rehydration] Folding events",
		"cutoff", cutoff.String(),
		"filter", q.Filter(),
		"page_size", q.PageSize)

	r := reader.Open(store, q)
	res, err := fold.Fold(ctx, r, seed(), acc)
	if err != nil {
		logger.Error("[Rehydration] Fold aborted",
			"pages", r.Pages(),
			"events", r.Count(),
			"error", err)
		return fold.Result[S]{}, err
	}

	for _, f := range res.Failures {
		logger.Warn("[Rehydration] Event rejected by accumulator",
			"event_id", f.Event.ID,
			"event_type", f.Event.Type,
			"order_key", f.Event.OrderKey.String(),
			"reason", f.Reason)
	}

	logger.Info("[Rehydration] Fold complete",
		"pages", r.Pages(),
		"events", r.Count(),
		"failures", res.FailureCount())
	return res, nil
}
