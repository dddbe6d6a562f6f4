package strategy

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"

	"github.com/jhyeon-dev/coinwatch/internal/config"
	"github.com/jhyeon-dev/coinwatch/internal/indicator"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// AlertRule is one live alert: which market to watch, which indicator to
// compute, and what condition fires it. Built once from config at startup
// and immutable afterwards.
type AlertRule struct {
	Name      string
	Exchange  types.Exchange
	Symbol    string
	Indicator types.IndicatorType
	Params    indicator.Params
	Condition Condition
	Cooldown  time.Duration
}

// BuildRules constructs all alert rules from a validated config.
func BuildRules(cfg *config.Config) ([]AlertRule, error) {
	rules := make([]AlertRule, 0, len(cfg.Alerts))

	for _, alert := range cfg.Alerts {
		rule, err := buildRule(alert, cfg.General.DefaultCooldownMinutes)
		if err != nil {
			return nil, err
		}

		rules = append(rules, rule)
	}

	return rules, nil
}

func buildRule(alert config.AlertConfig, defaultCooldownMinutes int) (AlertRule, error) {
	exchange, err := types.ParseExchange(alert.Exchange)
	if err != nil {
		return AlertRule{}, errors.Wrapf(errors.ErrCodeRuleConfig, err, "alert %q", alert.Name)
	}

	condition, err := buildCondition(alert)
	if err != nil {
		return AlertRule{}, err
	}

	cooldownMinutes := defaultCooldownMinutes
	if alert.CooldownMinutes != nil {
		cooldownMinutes = *alert.CooldownMinutes
	}

	return AlertRule{
		Name:      alert.Name,
		Exchange:  exchange,
		Symbol:    alert.Symbol,
		Indicator: types.IndicatorType(alert.Indicator),
		Params:    indicatorParams(alert.Params),
		Condition: condition,
		Cooldown:  time.Duration(cooldownMinutes) * time.Minute,
	}, nil
}

func buildCondition(alert config.AlertConfig) (Condition, error) {
	if alert.Threshold == nil {
		return Condition{}, errors.Newf(errors.ErrCodeRuleConfig,
			"alert %q: condition %q requires a threshold", alert.Name, alert.Condition)
	}

	cond := Condition{Kind: ConditionKind(alert.Condition)}

	if cond.Kind == ConditionBetween {
		if alert.ThresholdHigh == nil {
			return Condition{}, errors.Newf(errors.ErrCodeRuleConfig,
				"alert %q: between condition requires threshold_high", alert.Name)
		}

		cond.Low = *alert.Threshold
		cond.High = *alert.ThresholdHigh
	} else {
		cond.Threshold = *alert.Threshold
	}

	if err := cond.Validate(); err != nil {
		return Condition{}, errors.Wrapf(errors.ErrCodeRuleConfig, err, "alert %q", alert.Name)
	}

	return cond, nil
}

func indicatorParams(p config.IndicatorParams) indicator.Params {
	return indicator.Params{
		Period:           optional.FromNillable(p.Period),
		FastPeriod:       optional.FromNillable(p.FastPeriod),
		SlowPeriod:       optional.FromNillable(p.SlowPeriod),
		SignalPeriod:     optional.FromNillable(p.SignalPeriod),
		StdDevMultiplier: optional.FromNillable(p.StdDevMultiplier),
	}
}

// Evaluate runs the rule's condition against the current indicator value and
// returns a result carrying the trigger decision and a display message.
func Evaluate(rule AlertRule, current float64, previous optional.Option[float64]) types.EvaluationResult {
	triggered := rule.Condition.IsTriggered(current, previous)

	var message string
	if triggered {
		message = fmt.Sprintf("[%s] %s %s triggered, indicator=%.4f",
			rule.Name, rule.Exchange, rule.Symbol, current)
	} else {
		message = fmt.Sprintf("[%s] not triggered, indicator=%.4f", rule.Name, current)
	}

	return types.EvaluationResult{
		Triggered:      triggered,
		RuleName:       rule.Name,
		IndicatorValue: current,
		Message:        message,
	}
}
