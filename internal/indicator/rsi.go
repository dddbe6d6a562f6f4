package indicator

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// RSI is the Relative Strength Index using Wilder's smoothing method.
type RSI struct {
	period int
}

// NewRSI creates an RSI indicator. The period must be positive.
func NewRSI(period int) (*RSI, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "rsi period must be positive, got %d", period)
	}

	return &RSI{period: period}, nil
}

// Name returns the indicator kind.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// RequiredCandles returns period+1: the first delta needs two closes.
func (r *RSI) RequiredCandles() int {
	return r.period + 1
}

// Calculate computes the RSI series. The first value seeds from the simple
// average of the first `period` gains and losses, subsequent values use
// Wilder smoothing: avg = (prev_avg*(period-1) + new) / period.
func (r *RSI) Calculate(candles []types.Candle) ([]float64, error) {
	prices := closePrices(candles)
	if err := checkLength(r.RequiredCandles(), len(prices)); err != nil {
		return nil, err
	}

	deltas := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas[i-1] = prices[i] - prices[i-1]
	}

	var avgGain, avgLoss float64

	for _, delta := range deltas[:r.period] {
		avgGain += max(delta, 0)
		avgLoss += max(-delta, 0)
	}

	avgGain /= float64(r.period)
	avgLoss /= float64(r.period)

	results := make([]float64, 0, len(deltas)-r.period+1)
	results = append(results, rsiValue(avgGain, avgLoss))

	for _, delta := range deltas[r.period:] {
		gain := max(delta, 0)
		loss := max(-delta, 0)
		avgGain = (avgGain*float64(r.period-1) + gain) / float64(r.period)
		avgLoss = (avgLoss*float64(r.period-1) + loss) / float64(r.period)
		results = append(results, rsiValue(avgGain, avgLoss))
	}

	return results, nil
}

// rsiValue maps average gain/loss to the RSI scale. A zero average loss is
// defined as RSI 100, including the fully flat case where the average gain
// is also zero.
func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}
