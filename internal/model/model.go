// Package model implements trading models: closed registry of signal
// generators composing named input series into a buy/sell/hold decision per
// bar.
package model

import (
	"github.com/jhyeon-dev/coinwatch/internal/config"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Context carries the input values visible to a model at one bar. Only
// inputs the model declared via RequiredInputs are guaranteed present.
type Context struct {
	Features map[string]float64
}

// TradingModel turns per-bar input values into a directional signal.
// Implementations are stateless across bars; all state lives in the caller.
type TradingModel interface {
	// Name returns the configured model name.
	Name() string

	// RequiredInputs lists the input series names the model reads.
	RequiredInputs() []string

	// Evaluate returns the signal for one bar.
	Evaluate(ctx Context) (types.SignalAction, error)
}

// Model parameter defaults.
const (
	DefaultRSIInput   = "rsi_14"
	DefaultOversold   = 30.0
	DefaultOverbought = 70.0
	DefaultShortInput = "sma_short"
	DefaultLongInput  = "sma_long"
)

// Build constructs a model from its config entry.
func Build(cfg config.ModelConfig) (TradingModel, error) {
	switch cfg.Kind {
	case "rsi_reversion":
		return newRSIReversion(
			cfg.Name,
			stringOr(cfg.Params.Input, DefaultRSIInput),
			floatOr(cfg.Params.Oversold, DefaultOversold),
			floatOr(cfg.Params.Overbought, DefaultOverbought),
		), nil
	case "sma_cross":
		return newSMACross(
			cfg.Name,
			stringOr(cfg.Params.ShortInput, DefaultShortInput),
			stringOr(cfg.Params.LongInput, DefaultLongInput),
		), nil
	default:
		return nil, errors.Newf(errors.ErrCodeModelNotFound, "unknown model kind: %s", cfg.Kind)
	}
}

// BuildDefault returns the model used when the config declares none: RSI
// reversion over rsi_14 with the 30/70 bands.
func BuildDefault() TradingModel {
	return newRSIReversion("rsi_reversion_default", DefaultRSIInput, DefaultOversold, DefaultOverbought)
}

func stringOr(v *string, fallback string) string {
	if v != nil {
		return *v
	}

	return fallback
}

func floatOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}

	return fallback
}
