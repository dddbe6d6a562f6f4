package strategy

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
)

// LastTriggerStore looks up when a rule last fired. Implemented by the
// storage layer, which is the single source of truth for trigger times.
type LastTriggerStore interface {
	LastAlertTime(ctx context.Context, ruleName string) (optional.Option[time.Time], error)
}

// ShouldAlert reports whether the rule may fire at `now`. A rule that never
// fired is always allowed; otherwise the full cooldown must have elapsed
// (now - last >= cooldown allows, anything shorter blocks).
func ShouldAlert(ctx context.Context, store LastTriggerStore, rule AlertRule, now time.Time) (bool, error) {
	last, err := store.LastAlertTime(ctx, rule.Name)
	if err != nil {
		return false, err
	}

	lastTime, takeErr := last.Take()
	if takeErr != nil {
		return true, nil
	}

	return now.Sub(lastTime) >= rule.Cooldown, nil
}

// BarGate enforces minimum bar spacing between repeated triggers inside a
// single backtest run. Not safe for concurrent use; each run owns its own
// gate.
type BarGate struct {
	cooldownBars int
	lastBar      optional.Option[int]
}

// NewBarGate creates a gate requiring at least cooldownBars bars between
// recorded triggers.
func NewBarGate(cooldownBars int) *BarGate {
	return &BarGate{cooldownBars: cooldownBars}
}

// Allow reports whether a trigger at bar is permitted: always before the
// first recorded trigger, then once bar - lastBar >= cooldownBars.
func (g *BarGate) Allow(bar int) bool {
	last, err := g.lastBar.Take()
	if err != nil {
		return true
	}

	return bar-last >= g.cooldownBars
}

// Record marks a trigger at bar. Callers must Record every accepted trigger
// before the next Allow so at most one trigger passes per cooldown window.
func (g *BarGate) Record(bar int) {
	g.lastBar = optional.Some(bar)
}
