package indicator

import (
	"math"

	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Band is one bar of Bollinger band output.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands computes a middle SMA band and upper/lower bands offset by
// a multiple of the population standard deviation over the same window.
type BollingerBands struct {
	period     int
	multiplier float64
}

// NewBollingerBands creates a Bollinger bands indicator. The period must be
// positive and the standard deviation multiplier must be greater than zero.
func NewBollingerBands(period int, multiplier float64) (*BollingerBands, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "bollinger period must be positive, got %d", period)
	}

	if multiplier <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidMultiplier,
			"bollinger std dev multiplier must be positive, got %v", multiplier)
	}

	return &BollingerBands{period: period, multiplier: multiplier}, nil
}

// Name returns the indicator kind.
func (b *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// RequiredCandles returns the configured period.
func (b *BollingerBands) RequiredCandles() int {
	return b.period
}

// CalculateBands computes upper, middle and lower band values per bar.
// The standard deviation is the population form (divide by period).
func (b *BollingerBands) CalculateBands(candles []types.Candle) ([]Band, error) {
	prices := closePrices(candles)
	if err := checkLength(b.period, len(prices)); err != nil {
		return nil, err
	}

	sma, err := NewSMA(b.period)
	if err != nil {
		return nil, err
	}

	middles, err := sma.calculatePrices(prices)
	if err != nil {
		return nil, err
	}

	bands := make([]Band, len(middles))

	for i, middle := range middles {
		window := prices[i : i+b.period]

		var variance float64
		for _, p := range window {
			diff := p - middle
			variance += diff * diff
		}

		variance /= float64(b.period)
		stdDev := math.Sqrt(variance)

		bands[i] = Band{
			Upper:  middle + b.multiplier*stdDev,
			Middle: middle,
			Lower:  middle - b.multiplier*stdDev,
		}
	}

	return bands, nil
}

// Calculate returns the middle band (SMA) values only.
func (b *BollingerBands) Calculate(candles []types.Candle) ([]float64, error) {
	bands, err := b.CalculateBands(candles)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(bands))
	for i, band := range bands {
		values[i] = band.Middle
	}

	return values, nil
}
