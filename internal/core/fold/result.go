package fold

import (
	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
)

// Failure pairs an event the accumulator rejected with the reason.
type Failure struct {
	Event  *v1.Event
	Reason error
}

// Result is the outcome of one fold. Failures are in the order the failing
// events were encountered, which is their order-key order.
type Result[S any] struct {
	State    S
	Failures []Failure
}

func newResult[S any](state S, failures []Failure) Result[S] {
	if failures == nil {
		failures = []Failure{}
	}
	return Result[S]{State: state, Failures: failures}
}

// Failed reports whether any event was rejected.
func (r Result[S]) Failed() bool {
	return len(r.Failures) > 0
}

// FailureCount returns the number of rejected events.
func (r Result[S]) FailureCount() int {
	return len(r.Failures)
}

// FailedEventIDs returns the IDs of the rejected events, in order.
func (r Result[S]) FailedEventIDs() []string {
	ids := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		ids[i] = f.Event.ID
	}
	return ids
}
