package orderkey

import (
	"fmt"
	"time"
)

// Cutoff is an optional checkpoint. Only events ordered strictly after it take
// part in a fold. The zero value is NoCutoff.
type Cutoff struct {
	at  time.Time
	set bool
}

// NoCutoff selects the whole history.
func NoCutoff() Cutoff {
	return Cutoff{}
}

// After selects events recorded strictly after t. A zero t is the same as
// NoCutoff.
func After(t time.Time) Cutoff {
	if t.IsZero() {
		return NoCutoff()
	}
	return Cutoff{at: t, set: true}
}

// ParseCutoff reads an RFC 3339 checkpoint. The empty string is NoCutoff.
func ParseCutoff(s string) (Cutoff, error) {
	if s == "" {
		return NoCutoff(), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Cutoff{}, fmt.Errorf("cutoff %q is not an RFC 3339 timestamp", s)
	}
	return After(t), nil
}

// Time returns the checkpoint and whether one is set.
func (c Cutoff) Time() (time.Time, bool) {
	return c.at, c.set
}

// IsSet reports whether the cutoff restricts the history.
func (c Cutoff) IsSet() bool {
	return c.set
}

func (c Cutoff) String() string {
	if !c.set {
		return "beginning of time"
	}
	return c.at.UTC().Format(time.RFC3339Nano)
}

// Encode resolves the cutoff to the key events must exceed. NoCutoff encodes to
// MinOrderKey. Sub-microsecond precision is truncated and out-of-range times
// are clamped, so Encode never fails.
func Encode(c Cutoff) OrderKey {
	if !c.set {
		return MinOrderKey
	}
	return FromTime(c.at)
}
