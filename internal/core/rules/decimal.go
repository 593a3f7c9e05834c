package rules

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	// ErrFieldMissing is returned when a rule's field is absent from the payload.
	ErrFieldMissing = errors.New("field missing")

	// ErrFieldNotNumeric is returned when a rule's field holds a non-numeric value.
	ErrFieldNotNumeric = errors.New("field not numeric")
)

// ExtractDecimal pulls a numeric value from the event's Data map by field name.
// JSON numbers unmarshal to float64 in Go; that's the common path, and
// NewFromFloat converts it to an exact decimal representation. Numeric strings
// are accepted too. Anything else fails the event.
func ExtractDecimal(data map[string]interface{}, field string) (decimal.Decimal, error) {
	v, ok := data[field]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrFieldMissing, field)
	}
	switch val := v.(type) {
	case float64:
		if !math.IsNaN(val) && !math.IsInf(val, 0) {
			return decimal.NewFromFloat(val), nil
		}
	case float32:
		if f := float64(val); !math.IsNaN(f) && !math.IsInf(f, 0) {
			return decimal.NewFromFloat32(val), nil
		}
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case int32:
		return decimal.NewFromInt32(val), nil
	case string:
		d, err := decimal.NewFromString(val)
		if err == nil {
			return d, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %q holds %T", ErrFieldNotNumeric, field, v)
}
