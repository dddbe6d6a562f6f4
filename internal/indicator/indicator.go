// Package indicator implements the technical indicators used by alert rules
// and trading models. All indicators are pure functions over an ascending
// candle slice: they never touch storage, the network, or the clock.
package indicator

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Indicator is a technical indicator operating on a slice of candles.
//
// Candles must be in ascending chronological order (oldest first). Calculate
// returns one value per eligible bar: the series has
// len(candles) - RequiredCandles() + 1 values, and index 0 of the series
// corresponds to candle index RequiredCandles() - 1.
type Indicator interface {
	// Name returns the indicator kind.
	Name() types.IndicatorType

	// RequiredCandles returns the minimum number of candles needed to
	// produce at least one output value.
	RequiredCandles() int

	// Calculate computes the indicator series from candles.
	Calculate(candles []types.Candle) ([]float64, error)
}

// closePrices extracts close prices from a slice of candles.
func closePrices(candles []types.Candle) []float64 {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		prices[i] = c.Close
	}

	return prices
}

// volumes extracts volumes from a slice of candles.
func volumes(candles []types.Candle) []float64 {
	vols := make([]float64, len(candles))
	for i, c := range candles {
		vols[i] = c.Volume
	}

	return vols
}

// checkLength fails with an InsufficientDataError when fewer than required
// values are available.
func checkLength(required, available int) error {
	if available < required {
		return errors.Wrap(errors.ErrCodeInsufficientData, "indicator input too short",
			errors.NewInsufficientDataError(required, available))
	}

	return nil
}
