package rules

import (
	"fmt"
	"maps"
	"sort"

	v1 "github.com/aevon-lab/eventfold/internal/api/v1"
	"github.com/aevon-lab/eventfold/internal/core/fold"
	"github.com/aevon-lab/eventfold/internal/core/orderkey"
	"github.com/shopspring/decimal"
)

// Value is the folded value of one rule.
type Value struct {
	Operator        string            `json:"operator"`
	Value           decimal.Decimal   `json:"value"`
	EventCount      int64             `json:"event_count"`
	LastEventID     string            `json:"last_event_id"`
	LastOrderKey    orderkey.OrderKey `json:"last_order_key"`
	RuleFingerprint string            `json:"rule_fingerprint,omitempty"`
}

// State maps rule names to their folded values. Rules no event matched yet
// are absent.
type State map[string]Value

// NewState is the seed of a rule fold.
func NewState() State {
	return State{}
}

type compiledRule struct {
	rule Rule
	op   Operator
}

// NewAccumulator builds the accumulator for a rule set. Events no rule watches
// leave the state untouched. An event is rejected as a whole, with none of its
// rules applied, when any matching rule cannot read its field.
func NewAccumulator(ruleSet []Rule) fold.Accumulator[State] {
	sorted := append([]Rule(nil), ruleSet...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	bySource := make(map[string][]compiledRule)
	for _, r := range sorted {
		op, ok := Operators[r.Operator]
		if !ok {
			continue
		}
		bySource[r.SourceEvent] = append(bySource[r.SourceEvent], compiledRule{rule: r, op: op})
	}

	return func(state State, e *v1.Event) (State, error) {
		matched := bySource[e.Type]
		if len(matched) == 0 {
			return state, nil
		}

		next := maps.Clone(state)
		if next == nil {
			next = State{}
		}

		for _, cr := range matched {
			incoming := decimal.Zero
			if cr.op.NeedsField() {
				v, err := ExtractDecimal(e.Data, cr.rule.Field)
				if err != nil {
					return state, fmt.Errorf("rule %q: %w", cr.rule.Name, err)
				}
				incoming = v
			}

			cur, seen := next[cr.rule.Name]
			value := cr.op.Initial(incoming)
			if seen {
				value = cr.op.Apply(cur.Value, incoming)
			}

			next[cr.rule.Name] = Value{
				Operator:        cr.rule.Operator,
				Value:           value,
				EventCount:      cur.EventCount + 1,
				LastEventID:     e.ID,
				LastOrderKey:    e.OrderKey,
				RuleFingerprint: cr.rule.Fingerprint,
			}
		}
		return next, nil
	}
}
