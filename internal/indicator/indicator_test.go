package indicator

import (
	"time"

	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// candlesFromCloses builds minute candles carrying only close prices, for
// indicators that ignore the other fields.
func candlesFromCloses(closes ...float64) []types.Candle {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))

	for i, c := range closes {
		candles[i] = types.Candle{
			Exchange:  types.ExchangeBinance,
			Symbol:    "BTCUSDT",
			Timeframe: types.TimeFrameMin1,
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1,
		}
	}

	return candles
}

// candlesFromVolumes builds minute candles carrying only volumes.
func candlesFromVolumes(vols ...float64) []types.Candle {
	candles := candlesFromCloses(make([]float64, len(vols))...)
	for i := range candles {
		candles[i].Close = 100
		candles[i].Volume = vols[i]
	}

	return candles
}
