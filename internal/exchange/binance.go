package exchange

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// BinanceExchange implements Exchange against the Binance spot API. Public
// market data needs no credentials.
type BinanceExchange struct {
	client *binance.Client
	logger *logger.Logger
}

var _ Exchange = (*BinanceExchange)(nil)

// NewBinanceExchange creates a Binance client for public market data.
func NewBinanceExchange(log *logger.Logger) *BinanceExchange {
	return &BinanceExchange{
		client: binance.NewClient("", ""),
		logger: log,
	}
}

// Kind implements Exchange.
func (b *BinanceExchange) Kind() types.Exchange {
	return types.ExchangeBinance
}

// FetchCandles implements Exchange.
func (b *BinanceExchange) FetchCandles(ctx context.Context, symbol string, timeframe types.TimeFrame, limit int) ([]types.Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe.BinanceInterval()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeExchangeRequest, err,
			"failed to fetch %s %s klines", symbol, timeframe)
	}

	candles := make([]types.Candle, 0, len(klines))

	for _, k := range klines {
		candle, err := klineToCandle(symbol, timeframe, k)
		if err != nil {
			return nil, err
		}

		candles = append(candles, candle)
	}

	b.logger.Debug("fetched binance klines",
		zap.String("symbol", symbol),
		zap.String("timeframe", string(timeframe)),
		zap.Int("count", len(candles)))

	return candles, nil
}

func klineToCandle(symbol string, timeframe types.TimeFrame, k *binance.Kline) (types.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid kline open price", err)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid kline high price", err)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid kline low price", err)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid kline close price", err)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid kline volume", err)
	}

	return types.Candle{
		Exchange:  types.ExchangeBinance,
		Symbol:    symbol,
		Timeframe: timeframe,
		OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

// SubscribeTrades implements Exchange using the combined aggTrade stream.
func (b *BinanceExchange) SubscribeTrades(symbols []string, handler TradeHandler, errHandler ErrorHandler) (func(), <-chan struct{}, error) {
	wsHandler := func(event *binance.WsAggTradeEvent) {
		trade, err := aggTradeToMarketTrade(event)
		if err != nil {
			errHandler(err)

			return
		}

		handler(trade)
	}

	doneC, stopC, err := binance.WsCombinedAggTradeServe(symbols, wsHandler, func(err error) {
		errHandler(errors.Wrap(errors.ErrCodeExchangeStream, "binance trade stream error", err))
	})
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeExchangeStream, "failed to open binance trade stream", err)
	}

	b.logger.Info("binance trade stream connected", zap.Strings("symbols", symbols))

	stop := func() {
		close(stopC)
	}

	return stop, doneC, nil
}

func aggTradeToMarketTrade(event *binance.WsAggTradeEvent) (types.MarketTrade, error) {
	price, err := strconv.ParseFloat(event.Price, 64)
	if err != nil {
		return types.MarketTrade{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid trade price", err)
	}

	quantity, err := strconv.ParseFloat(event.Quantity, 64)
	if err != nil {
		return types.MarketTrade{}, errors.Wrap(errors.ErrCodeExchangeParse, "invalid trade quantity", err)
	}

	return types.MarketTrade{
		Exchange:  types.ExchangeBinance,
		Symbol:    event.Symbol,
		Price:     price,
		Volume:    quantity,
		Timestamp: time.UnixMilli(event.TradeTime).UTC(),
	}, nil
}
