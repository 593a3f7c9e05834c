// Package orderkey converts points in time into the ordering keys used by the
// event log and back.
//
// An OrderKey is the number of microseconds since the Unix epoch (UTC). That is
// the precision Postgres keeps for timestamptz, so keys survive a round trip
// through the database unchanged. Keys are strictly increasing per aggregate;
// ties between events recorded in the same microsecond are broken by the
// Sequencer at append time.
package orderkey

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"
)

// OrderKey orders the events of one aggregate. Ascending key order is
// chronological order.
type OrderKey int64

const (
	// MinOrderKey is the smallest representable key ("beginning of time").
	// No stored event carries it, so "order_key > MinOrderKey" selects everything.
	MinOrderKey OrderKey = math.MinInt64

	// MaxOrderKey is the largest representable key.
	MaxOrderKey OrderKey = math.MaxInt64

	// keyWidth is the number of digits in the textual form of a key.
	keyWidth = 20

	signBit = uint64(1) << 63
)

var (
	minTime = time.UnixMicro(math.MinInt64).UTC()
	maxTime = time.UnixMicro(math.MaxInt64).UTC()

	// ErrMalformedKey is returned by Parse for text that is not a rendered key.
	ErrMalformedKey = errors.New("malformed order key")
)

// FromTime returns the key of t. Times outside the representable range are
// clamped to MinOrderKey or MaxOrderKey.
func FromTime(t time.Time) OrderKey {
	switch {
	case t.Before(minTime):
		return MinOrderKey
	case t.After(maxTime):
		return MaxOrderKey
	}
	return OrderKey(t.UnixMicro())
}

// Time returns the instant the key encodes, in UTC.
func (k OrderKey) Time() time.Time {
	return time.UnixMicro(int64(k)).UTC()
}

// Compare returns -1 if a sorts before b, +1 if after and 0 if they are equal.
func Compare(a, b OrderKey) int {
	return cmp.Compare(a, b)
}

// String renders the key as a fixed-width decimal string whose lexical order
// equals the numeric order of the keys, negative keys included.
func (k OrderKey) String() string {
	s := strconv.FormatUint(uint64(k)^signBit, 10)
	if len(s) < keyWidth {
		s = zeros[:keyWidth-len(s)] + s
	}
	return s
}

const zeros = "00000000000000000000"

// Parse is the inverse of OrderKey.String.
func Parse(s string) (OrderKey, error) {
	if len(s) != keyWidth {
		return 0, fmt.Errorf("%w: %q has %d digits, want %d", ErrMalformedKey, s, len(s), keyWidth)
	}
	u, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrMalformedKey, s, err)
	}
	return OrderKey(u ^ signBit), nil
}
