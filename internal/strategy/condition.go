// Package strategy implements alert rules: condition evaluation over
// indicator values and trigger spacing via cooldown gates.
package strategy

import (
	"github.com/moznion/go-optional"

	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// ConditionKind names a condition variant. String values match the config
// file format.
type ConditionKind string

const (
	ConditionAbove      ConditionKind = "above"
	ConditionBelow      ConditionKind = "below"
	ConditionCrossAbove ConditionKind = "cross_above"
	ConditionCrossBelow ConditionKind = "cross_below"
	ConditionBetween    ConditionKind = "between"
)

// Condition is a threshold test over an indicator value. Threshold is the
// bound for every kind except Between, which uses the open interval
// (Low, High).
type Condition struct {
	Kind      ConditionKind
	Threshold float64
	Low       float64
	High      float64
}

// Validate rejects malformed conditions before any evaluation.
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionAbove, ConditionBelow, ConditionCrossAbove, ConditionCrossBelow:
		return nil
	case ConditionBetween:
		if c.Low >= c.High {
			return errors.Newf(errors.ErrCodeInvalidCondition,
				"between condition requires low < high, got low=%v high=%v", c.Low, c.High)
		}

		return nil
	default:
		return errors.Newf(errors.ErrCodeInvalidCondition, "unknown condition kind: %s", c.Kind)
	}
}

// IsTriggered evaluates the condition against the current value, using the
// previous value for cross conditions. All comparisons are strict: a value
// sitting exactly on a threshold never triggers. Cross conditions without a
// previous observation never trigger.
func (c Condition) IsTriggered(current float64, previous optional.Option[float64]) bool {
	switch c.Kind {
	case ConditionAbove:
		return current > c.Threshold
	case ConditionBelow:
		return current < c.Threshold
	case ConditionCrossAbove:
		prev, err := previous.Take()
		return err == nil && prev <= c.Threshold && current > c.Threshold
	case ConditionCrossBelow:
		prev, err := previous.Take()
		return err == nil && prev >= c.Threshold && current < c.Threshold
	case ConditionBetween:
		return current > c.Low && current < c.High
	default:
		return false
	}
}
