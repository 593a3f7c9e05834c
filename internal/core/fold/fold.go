// Package fold reduces an ordered event stream into a state value.
//
// An accumulator that fails on one event does not stop the fold: the failure is
// recorded next to the event and the fold carries on with the state it had
// before that event. Only the source failing (the store becoming unavailable,
// the context being cancelled) aborts a fold.
package fold

import (
	"context"
	"fmt"
	"runtime/debug"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
)

// Accumulator applies one event to a state and returns the new state.
// It must not modify state in place: when it returns an error, the state it
// was given is kept as if the event had never been seen.
type Accumulator[S any] func(state S, e *v1.Event) (S, error)

// Source is an ordered event stream. *reader.Reader satisfies it.
type Source interface {
	Next(ctx context.Context) bool
	Event() *v1.Event
	Err() error
}

// PanicError is the failure recorded for an accumulator that panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("accumulator panicked: %v", e.Value)
}

// Fold applies acc to every event of src in order, starting from seed.
// Accumulator failures end up in Result.Failures; a source error is returned
// with a zero Result.
func Fold[S any](ctx context.Context, src Source, seed S, acc Accumulator[S]) (Result[S], error) {
	state := seed
	var failures []Failure

	for src.Next(ctx) {
		e := src.Event()
		next, err := apply(acc, state, e)
		if err != nil {
			failures = append(failures, Failure{Event: e, Reason: err})
			continue
		}
		state = next
	}

	if err := src.Err(); err != nil {
		return Result[S]{}, err
	}

	return newResult(state, failures), nil
}

func apply[S any](acc Accumulator[S], state S, e *v1.Event) (next S, err error) {
	defer func() {
		if v := recover(); v != nil {
			var zero S
			next, err = zero, &PanicError{Value: v, Stack: debug.Stack()}
		}
	}()
	return acc(state, e)
}
