package config

import (
	"github.com/go-playground/validator/v10"

	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs struct tag validation plus the cross-reference checks the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "config validation failed", err)
	}

	checks := []func() error{
		c.validateCoins,
		c.validateAlerts,
		c.validateInputsAndModels,
		c.validateBacktest,
	}

	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateCoins() error {
	exchangeNames := make(map[string]bool, len(c.Exchanges))
	for _, ex := range c.Exchanges {
		exchangeNames[ex.Name] = true
	}

	for _, coin := range c.Coins {
		if len(c.Exchanges) > 0 && !exchangeNames[coin.Exchange] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"coins[symbol=%s]: exchange %q does not match any exchange entry", coin.Symbol, coin.Exchange)
		}

		for _, tf := range coin.Timeframes {
			if _, err := types.ParseTimeFrame(tf); err != nil {
				return errors.Newf(errors.ErrCodeInvalidConfiguration,
					"coins[symbol=%s]: unknown timeframe %q", coin.Symbol, tf)
			}
		}
	}

	return nil
}

func (c *Config) validateAlerts() error {
	seen := make(map[string]bool, len(c.Alerts))

	for _, alert := range c.Alerts {
		if seen[alert.Name] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "alerts: duplicate name %q", alert.Name)
		}

		seen[alert.Name] = true

		if alert.Threshold == nil {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"alerts[%s]: threshold is required for condition %q", alert.Name, alert.Condition)
		}

		if alert.Condition == "between" {
			if alert.ThresholdHigh == nil {
				return errors.Newf(errors.ErrCodeInvalidConfiguration,
					"alerts[%s]: threshold_high is required for condition \"between\"", alert.Name)
			}

			if *alert.Threshold >= *alert.ThresholdHigh {
				return errors.Newf(errors.ErrCodeInvalidConfiguration,
					"alerts[%s]: threshold must be below threshold_high", alert.Name)
			}
		}

		if len(c.Coins) > 0 && !c.hasCoin(alert.Exchange, alert.Symbol) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration,
				"alerts[%s]: (%s, %s) does not match any coin entry", alert.Name, alert.Exchange, alert.Symbol)
		}
	}

	return nil
}

func (c *Config) hasCoin(exchange, symbol string) bool {
	for _, coin := range c.Coins {
		if coin.Exchange == exchange && coin.Symbol == symbol {
			return true
		}
	}

	return false
}

func (c *Config) validateInputsAndModels() error {
	inputNames := make(map[string]bool, len(c.Inputs))

	for _, input := range c.Inputs {
		if inputNames[input.Name] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "inputs: duplicate name %q", input.Name)
		}

		inputNames[input.Name] = true
	}

	modelNames := make(map[string]bool, len(c.Models))

	for _, model := range c.Models {
		if modelNames[model.Name] {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "models: duplicate name %q", model.Name)
		}

		modelNames[model.Name] = true

		if len(c.Inputs) == 0 {
			continue
		}

		for _, ref := range model.Inputs {
			if !inputNames[ref] {
				return errors.Newf(errors.ErrCodeInvalidConfiguration,
					"models[%s]: unknown input %q", model.Name, ref)
			}
		}
	}

	return nil
}

func (c *Config) validateBacktest() error {
	if c.Backtest == nil {
		return nil
	}

	bt := c.Backtest

	if _, err := types.ParseTimeFrame(bt.Timeframe); err != nil {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "backtest: unknown timeframe %q", bt.Timeframe)
	}

	if !bt.StartTime.Before(bt.EndTime) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "backtest: start_time must be before end_time")
	}

	if len(c.Models) > 0 {
		found := false
		for _, model := range c.Models {
			if model.Name == bt.Model {
				found = true
				break
			}
		}

		if !found {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "backtest: model %q is not defined", bt.Model)
		}
	}

	return nil
}
