// Package signalinput builds the named input series trading models read.
// Each input wraps an indicator (or raw close prices) and aligns its output
// to the full candle slice so every series shares the same indexing.
package signalinput

import (
	"github.com/moznion/go-optional"

	"github.com/jhyeon-dev/coinwatch/internal/config"
	"github.com/jhyeon-dev/coinwatch/internal/indicator"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Input produces one named value series over a candle slice. The series has
// one element per candle; bars before the indicator's warm-up are None.
type Input interface {
	// Name returns the configured series name.
	Name() string

	// RequiredCandles returns the minimum candle count for a non-empty
	// series.
	RequiredCandles() int

	// Series computes the aligned value series.
	Series(candles []types.Candle) ([]optional.Option[float64], error)
}

// BuildInputs constructs every input declared in the config.
func BuildInputs(configs []config.InputConfig) ([]Input, error) {
	inputs := make([]Input, 0, len(configs))

	for _, cfg := range configs {
		input, err := buildInput(cfg)
		if err != nil {
			return nil, err
		}

		inputs = append(inputs, input)
	}

	return inputs, nil
}

// BuildDefaultInputs returns the inputs used when the config declares none:
// a single rsi_14 series.
func BuildDefaultInputs() ([]Input, error) {
	rsi, err := indicator.NewRSI(indicator.DefaultRSIPeriod)
	if err != nil {
		return nil, err
	}

	return []Input{&indicatorInput{name: "rsi_14", indicator: rsi}}, nil
}

func buildInput(cfg config.InputConfig) (Input, error) {
	switch cfg.Kind {
	case "close":
		return &closeInput{name: cfg.Name}, nil
	case "volume_surge":
		return buildSurgeInput(cfg)
	}

	ind, err := indicator.Build(types.IndicatorType(cfg.Kind), indicatorParams(cfg.Params))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInputNotFound, err, "input %q", cfg.Name)
	}

	return &indicatorInput{name: cfg.Name, indicator: ind}, nil
}

func buildSurgeInput(cfg config.InputConfig) (Input, error) {
	period := indicator.DefaultVolumeMAPeriod
	if cfg.Params.Period != nil {
		period = *cfg.Params.Period
	}

	ma, err := indicator.NewVolumeMA(period)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInputNotFound, err, "input %q", cfg.Name)
	}

	multiplier := indicator.DefaultSurgeMultiplier
	if cfg.Params.SurgeMultiplier != nil {
		multiplier = *cfg.Params.SurgeMultiplier
	}

	if multiplier <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidMultiplier,
			"input %q: surge multiplier must be positive, got %v", cfg.Name, multiplier)
	}

	return &surgeInput{name: cfg.Name, ma: ma, multiplier: multiplier}, nil
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

// indicatorInput adapts an indicator into an aligned input series.
type indicatorInput struct {
	name      string
	indicator indicator.Indicator
}

func (i *indicatorInput) Name() string {
	return i.name
}

func (i *indicatorInput) RequiredCandles() int {
	return i.indicator.RequiredCandles()
}

func (i *indicatorInput) Series(candles []types.Candle) ([]optional.Option[float64], error) {
	values, err := i.indicator.Calculate(candles)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "input %q", i.name)
	}

	return AlignSeries(len(candles), values), nil
}

// surgeInput exposes volume surges as a 1/0 series: 1 on bars whose volume
// exceeds the volume moving average times the multiplier.
type surgeInput struct {
	name       string
	ma         *indicator.VolumeMA
	multiplier float64
}

func (s *surgeInput) Name() string {
	return s.name
}

func (s *surgeInput) RequiredCandles() int {
	return s.ma.RequiredCandles()
}

func (s *surgeInput) Series(candles []types.Candle) ([]optional.Option[float64], error) {
	surges, err := s.ma.DetectSurges(candles, s.multiplier)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "input %q", s.name)
	}

	values := make([]float64, len(surges))
	for i, surged := range surges {
		if surged {
			values[i] = 1
		}
	}

	return AlignSeries(len(candles), values), nil
}

// closeInput exposes raw close prices as an input series.
type closeInput struct {
	name string
}

func (c *closeInput) Name() string {
	return c.name
}

func (c *closeInput) RequiredCandles() int {
	return 1
}

func (c *closeInput) Series(candles []types.Candle) ([]optional.Option[float64], error) {
	series := make([]optional.Option[float64], len(candles))
	for i, candle := range candles {
		series[i] = optional.Some(candle.Close)
	}

	return series, nil
}

// AlignSeries pads an indicator series to totalLen entries: the values fill
// the tail and the warm-up prefix is None.
func AlignSeries(totalLen int, values []float64) []optional.Option[float64] {
	series := make([]optional.Option[float64], totalLen)

	offset := totalLen - len(values)
	if offset < 0 {
		offset = 0
	}

	for i, v := range values {
		series[offset+i] = optional.Some(v)
	}

	return series
}
