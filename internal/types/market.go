package types

import (
	"time"

	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Exchange identifies the venue a candle or tick originated from.
type Exchange string

const (
	ExchangeUpbit   Exchange = "upbit"
	ExchangeBinance Exchange = "binance"
)

// ParseExchange converts a config-format string into an Exchange.
func ParseExchange(s string) (Exchange, error) {
	switch s {
	case string(ExchangeUpbit):
		return ExchangeUpbit, nil
	case string(ExchangeBinance):
		return ExchangeBinance, nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidExchange, "unknown exchange: %s", s)
	}
}

// TimeFrame is a candle interval. String representations match the config
// file format (e.g. "1m", "1h").
type TimeFrame string

const (
	TimeFrameMin1  TimeFrame = "1m"
	TimeFrameMin3  TimeFrame = "3m"
	TimeFrameMin5  TimeFrame = "5m"
	TimeFrameMin15 TimeFrame = "15m"
	TimeFrameMin30 TimeFrame = "30m"
	TimeFrameHour1 TimeFrame = "1h"
	TimeFrameHour4 TimeFrame = "4h"
	TimeFrameDay1  TimeFrame = "1d"
)

// ParseTimeFrame converts a config-format string into a TimeFrame.
func ParseTimeFrame(s string) (TimeFrame, error) {
	switch TimeFrame(s) {
	case TimeFrameMin1, TimeFrameMin3, TimeFrameMin5, TimeFrameMin15,
		TimeFrameMin30, TimeFrameHour1, TimeFrameHour4, TimeFrameDay1:
		return TimeFrame(s), nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe: %s", s)
	}
}

// BinanceInterval returns the Binance kline interval string for this timeframe.
// The wire format happens to match the config format.
func (tf TimeFrame) BinanceInterval() string {
	return string(tf)
}

// UpbitEndpoint returns the Upbit REST candle endpoint path for this
// timeframe. Upbit has no hourly endpoints; 1h and 4h map onto minute units.
func (tf TimeFrame) UpbitEndpoint() string {
	switch tf {
	case TimeFrameMin3:
		return "/v1/candles/minutes/3"
	case TimeFrameMin5:
		return "/v1/candles/minutes/5"
	case TimeFrameMin15:
		return "/v1/candles/minutes/15"
	case TimeFrameMin30:
		return "/v1/candles/minutes/30"
	case TimeFrameHour1:
		return "/v1/candles/minutes/60"
	case TimeFrameHour4:
		return "/v1/candles/minutes/240"
	case TimeFrameDay1:
		return "/v1/candles/days"
	default:
		return "/v1/candles/minutes/1"
	}
}

// Candle is a fixed-interval OHLCV aggregate for one symbol and timeframe.
// OpenTime is unique per (exchange, symbol, timeframe).
type Candle struct {
	Exchange  Exchange  `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Timeframe TimeFrame `json:"timeframe"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Ticker is a single live price observation for one symbol.
type Ticker struct {
	Exchange  Exchange  `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// MarketTrade is a single executed trade observed on an exchange stream.
type MarketTrade struct {
	Exchange  Exchange  `json:"exchange"`
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

// ValidateAscending checks that candles are strictly ascending by open time
// with no duplicates.
func ValidateAscending(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].OpenTime.After(candles[i-1].OpenTime) {
			return errors.Newf(errors.ErrCodeNonMonotonicData,
				"candles are not strictly ascending at index %d (%s does not follow %s)",
				i, candles[i].OpenTime.Format(time.RFC3339), candles[i-1].OpenTime.Format(time.RFC3339))
		}
	}

	return nil
}

// ReverseCandles returns a new slice with the candle order reversed.
// Storage returns recent candles newest-first; computation wants oldest-first.
func ReverseCandles(candles []Candle) []Candle {
	reversed := make([]Candle, len(candles))
	for i, c := range candles {
		reversed[len(candles)-1-i] = c
	}

	return reversed
}
