package indicator

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// SMA is the Simple Moving Average of close prices.
type SMA struct {
	period int
}

// NewSMA creates an SMA indicator. The period must be positive.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "sma period must be positive, got %d", period)
	}

	return &SMA{period: period}, nil
}

// Name returns the indicator kind.
func (s *SMA) Name() types.IndicatorType {
	return types.IndicatorTypeSMA
}

// RequiredCandles returns the configured period.
func (s *SMA) RequiredCandles() int {
	return s.period
}

// Calculate computes the SMA series over close prices.
func (s *SMA) Calculate(candles []types.Candle) ([]float64, error) {
	return s.calculatePrices(closePrices(candles))
}

// calculatePrices computes the SMA series over a raw value slice. Shared
// with Bollinger bands and the volume moving average.
func (s *SMA) calculatePrices(prices []float64) ([]float64, error) {
	if err := checkLength(s.period, len(prices)); err != nil {
		return nil, err
	}

	return rollingMean(prices, s.period), nil
}

// EMA is the Exponential Moving Average of close prices, seeded with the SMA
// of the first `period` values and smoothed with k = 2/(period+1).
type EMA struct {
	period int
}

// NewEMA creates an EMA indicator. The period must be positive.
func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ema period must be positive, got %d", period)
	}

	return &EMA{period: period}, nil
}

// Name returns the indicator kind.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// RequiredCandles returns the configured period.
func (e *EMA) RequiredCandles() int {
	return e.period
}

// Calculate computes the EMA series over close prices.
func (e *EMA) Calculate(candles []types.Candle) ([]float64, error) {
	return e.calculatePrices(closePrices(candles))
}

func (e *EMA) calculatePrices(prices []float64) ([]float64, error) {
	if err := checkLength(e.period, len(prices)); err != nil {
		return nil, err
	}

	k := 2.0 / (float64(e.period) + 1.0)

	var seed float64
	for _, p := range prices[:e.period] {
		seed += p
	}

	ema := seed / float64(e.period)
	results := make([]float64, 0, len(prices)-e.period+1)
	results = append(results, ema)

	for _, price := range prices[e.period:] {
		ema = price*k + ema*(1-k)
		results = append(results, ema)
	}

	return results, nil
}

// rollingMean computes the arithmetic mean of every trailing window of
// `period` values. Each window is summed independently so results match the
// naive definition bit-for-bit (no incremental subtraction drift).
func rollingMean(values []float64, period int) []float64 {
	results := make([]float64, 0, len(values)-period+1)

	for i := period; i <= len(values); i++ {
		var sum float64
		for _, v := range values[i-period : i] {
			sum += v
		}

		results = append(results, sum/float64(period))
	}

	return results
}
