package orderkey

import (
	"errors"
	"time"
)

// ErrExhausted is returned when no key greater than the last one exists.
var ErrExhausted = errors.New("order keys exhausted")

// Sequencer hands out strictly increasing keys for one aggregate. It is not
// safe for concurrent use; appends to one aggregate are serialized by the store.
type Sequencer struct {
	last OrderKey
}

// NewSequencer continues after last, the greatest key already stored for the
// aggregate (MinOrderKey for an empty history).
func NewSequencer(last OrderKey) *Sequencer {
	return &Sequencer{last: last}
}

// Next returns the key for an event that occurred at occurredAt. The key is the
// event's own time unless that would not sort after the previous key, in which
// case it is the previous key plus one microsecond.
func (s *Sequencer) Next(occurredAt time.Time) (OrderKey, error) {
	k := FromTime(occurredAt)
	if k <= s.last {
		if s.last == MaxOrderKey {
			return 0, ErrExhausted
		}
		k = s.last + 1
	}
	s.last = k
	return k, nil
}

// Last returns the most recently issued key.
func (s *Sequencer) Last() OrderKey {
	return s.last
}
