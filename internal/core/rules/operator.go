package rules

import (
	"github.com/shopspring/decimal"
)

// Supported fold operators.
const (
	OpCount = "count"
	OpSum   = "sum"
	OpMin   = "min"
	OpMax   = "max"
)

// Operator defines the reduce semantics of a rule.
// To add a new operator: implement this interface and register it in Operators.
type Operator interface {
	// Initial returns the value after the very first matching event.
	// count → 1; sum/min/max → the incoming value itself.
	Initial(incoming decimal.Decimal) decimal.Decimal

	// Apply folds an incoming value into the current one.
	Apply(current, incoming decimal.Decimal) decimal.Decimal

	// NeedsField reports whether the operator reads a numeric payload field.
	NeedsField() bool
}

// Operators is the registry of all supported operators.
var Operators = map[string]Operator{
	OpCount: countOp{},
	OpSum:   sumOp{},
	OpMin:   minOp{},
	OpMax:   maxOp{},
}

// countOp increments by 1 per event. The incoming value is ignored.
type countOp struct{}

func (countOp) Initial(_ decimal.Decimal) decimal.Decimal    { return decimal.NewFromInt(1) }
func (countOp) Apply(cur, _ decimal.Decimal) decimal.Decimal { return cur.Add(decimal.NewFromInt(1)) }
func (countOp) NeedsField() bool                             { return false }

// sumOp accumulates the sum of incoming values.
type sumOp struct{}

func (sumOp) Initial(v decimal.Decimal) decimal.Decimal      { return v }
func (sumOp) Apply(cur, inc decimal.Decimal) decimal.Decimal { return cur.Add(inc) }
func (sumOp) NeedsField() bool                               { return true }

// minOp tracks the minimum value seen.
type minOp struct{}

func (minOp) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (minOp) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.LessThan(cur) {
		return inc
	}
	return cur
}
func (minOp) NeedsField() bool { return true }

// maxOp tracks the maximum value seen.
type maxOp struct{}

func (maxOp) Initial(v decimal.Decimal) decimal.Decimal { return v }
func (maxOp) Apply(cur, inc decimal.Decimal) decimal.Decimal {
	if inc.GreaterThan(cur) {
		return inc
	}
	return cur
}
func (maxOp) NeedsField() bool { return true }
