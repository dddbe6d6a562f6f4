package indicator

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// VolumeMA computes a simple moving average over candle volumes.
type VolumeMA struct {
	period int
}

// NewVolumeMA creates a volume moving average with a positive period.
func NewVolumeMA(period int) (*VolumeMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "volume MA period must be positive, got %d", period)
	}

	return &VolumeMA{period: period}, nil
}

// Name returns the indicator kind.
func (v *VolumeMA) Name() types.IndicatorType {
	return types.IndicatorTypeVolumeMA
}

// RequiredCandles returns the configured period.
func (v *VolumeMA) RequiredCandles() int {
	return v.period
}

// Calculate returns the moving average of volume per bar.
func (v *VolumeMA) Calculate(candles []types.Candle) ([]float64, error) {
	vols := volumes(candles)
	if err := checkLength(v.period, len(vols)); err != nil {
		return nil, err
	}

	return rollingMean(vols, v.period), nil
}

// DetectSurges flags bars whose volume exceeds the moving average times the
// given multiplier. Output index 0 maps to candle index RequiredCandles()-1,
// matching Calculate.
func (v *VolumeMA) DetectSurges(candles []types.Candle, multiplier float64) ([]bool, error) {
	if multiplier <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidMultiplier,
			"volume surge multiplier must be positive, got %v", multiplier)
	}

	averages, err := v.Calculate(candles)
	if err != nil {
		return nil, err
	}

	vols := volumes(candles)
	offset := v.period - 1

	surges := make([]bool, len(averages))
	for i, avg := range averages {
		surges[i] = vols[i+offset] > avg*multiplier
	}

	return surges, nil
}
