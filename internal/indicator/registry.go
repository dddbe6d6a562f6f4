package indicator

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
	"github.com/moznion/go-optional"
)

// Default periods applied when Params leaves a field unset.
const (
	DefaultRSIPeriod        = 14
	DefaultMAPeriod         = 20
	DefaultMACDFastPeriod   = 12
	DefaultMACDSlowPeriod   = 26
	DefaultMACDSignalPeriod = 9
	DefaultBollingerPeriod  = 20
	DefaultBollingerStdDev  = 2.0
	DefaultVolumeMAPeriod   = 20
	DefaultSurgeMultiplier  = 2.0
)

// Params carries optional tuning for indicator construction. Unset fields
// fall back to the defaults above.
type Params struct {
	Period           optional.Option[int]
	FastPeriod       optional.Option[int]
	SlowPeriod       optional.Option[int]
	SignalPeriod     optional.Option[int]
	StdDevMultiplier optional.Option[float64]
}

// Build constructs an indicator of the given kind from params.
func Build(kind types.IndicatorType, params Params) (Indicator, error) {
	switch kind {
	case types.IndicatorTypeRSI:
		return NewRSI(params.Period.TakeOr(DefaultRSIPeriod))
	case types.IndicatorTypeSMA:
		return NewSMA(params.Period.TakeOr(DefaultMAPeriod))
	case types.IndicatorTypeEMA:
		return NewEMA(params.Period.TakeOr(DefaultMAPeriod))
	case types.IndicatorTypeMACD:
		return NewMACD(
			params.FastPeriod.TakeOr(DefaultMACDFastPeriod),
			params.SlowPeriod.TakeOr(DefaultMACDSlowPeriod),
			params.SignalPeriod.TakeOr(DefaultMACDSignalPeriod),
		)
	case types.IndicatorTypeBollingerBands:
		return NewBollingerBands(
			params.Period.TakeOr(DefaultBollingerPeriod),
			params.StdDevMultiplier.TakeOr(DefaultBollingerStdDev),
		)
	case types.IndicatorTypeVolumeMA:
		return NewVolumeMA(params.Period.TakeOr(DefaultVolumeMAPeriod))
	default:
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "unknown indicator type: %s", kind)
	}
}
