// Package exchange provides connectivity to upstream crypto exchanges:
// historical candles over REST and live trade streams over websocket. Used
// only to seed storage; computation never calls an exchange directly.
package exchange

import (
	"context"

	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// TradeHandler receives one live trade per invocation.
type TradeHandler func(trade types.MarketTrade)

// ErrorHandler receives stream errors that did not stop the stream.
type ErrorHandler func(err error)

// Exchange is the connectivity contract.
type Exchange interface {
	// Kind identifies the exchange.
	Kind() types.Exchange

	// FetchCandles pulls up to limit recent candles over REST, returned in
	// ascending order.
	FetchCandles(ctx context.Context, symbol string, timeframe types.TimeFrame, limit int) ([]types.Candle, error)

	// SubscribeTrades opens a combined trade stream over all symbols. The
	// returned stop function closes the stream; done is closed when the
	// stream has fully shut down.
	SubscribeTrades(symbols []string, handler TradeHandler, errHandler ErrorHandler) (stop func(), done <-chan struct{}, err error)
}
