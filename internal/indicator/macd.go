package indicator

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// MACDValue is one bar of the full MACD output.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD is the Moving Average Convergence Divergence indicator:
// macd line = EMA(fast) - EMA(slow), signal line = EMA(macd line, signal),
// histogram = macd line - signal line.
type MACD struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a MACD indicator. All periods must be positive and the
// fast period must be shorter than the slow period.
func NewMACD(fastPeriod, slowPeriod, signalPeriod int) (*MACD, error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"macd periods must be positive, got fast=%d slow=%d signal=%d",
			fastPeriod, slowPeriod, signalPeriod)
	}

	if fastPeriod >= slowPeriod {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"macd fast period (%d) must be less than slow period (%d)", fastPeriod, slowPeriod)
	}

	return &MACD{
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
	}, nil
}

// Name returns the indicator kind.
func (m *MACD) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// RequiredCandles returns slow+signal: enough history for the signal EMA to
// have its own SMA seed over macd-line values.
func (m *MACD) RequiredCandles() int {
	return m.slowPeriod + m.signalPeriod
}

// CalculateFull computes macd line, signal line and histogram per bar.
// Output index 0 corresponds to candle index RequiredCandles()-1.
func (m *MACD) CalculateFull(candles []types.Candle) ([]MACDValue, error) {
	prices := closePrices(candles)
	if err := checkLength(m.RequiredCandles(), len(prices)); err != nil {
		return nil, err
	}

	fastEMA, err := mustEMA(m.fastPeriod, prices)
	if err != nil {
		return nil, err
	}

	slowEMA, err := mustEMA(m.slowPeriod, prices)
	if err != nil {
		return nil, err
	}

	// The fast EMA starts (slow-fast) bars earlier than the slow EMA.
	offset := m.slowPeriod - m.fastPeriod
	macdLine := make([]float64, len(slowEMA))

	for i := range slowEMA {
		macdLine[i] = fastEMA[offset+i] - slowEMA[i]
	}

	signalLine, err := mustEMA(m.signalPeriod, macdLine)
	if err != nil {
		return nil, err
	}

	signalOffset := m.signalPeriod - 1
	values := make([]MACDValue, len(signalLine))

	for i, signal := range signalLine {
		macd := macdLine[signalOffset+i]
		values[i] = MACDValue{
			MACD:      macd,
			Signal:    signal,
			Histogram: macd - signal,
		}
	}

	// The signal EMA seed lands one bar before the documented alignment
	// (candle index slow+signal-2); drop it so that series index 0 maps to
	// candle index RequiredCandles()-1.
	return values[1:], nil
}

// Calculate returns the macd line values only.
func (m *MACD) Calculate(candles []types.Candle) ([]float64, error) {
	full, err := m.CalculateFull(candles)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(full))
	for i, v := range full {
		values[i] = v.MACD
	}

	return values, nil
}

func mustEMA(period int, values []float64) ([]float64, error) {
	ema, err := NewEMA(period)
	if err != nil {
		return nil, err
	}

	return ema.calculatePrices(values)
}
