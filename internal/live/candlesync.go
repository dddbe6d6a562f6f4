// Package live runs the real-time watch loop: trades stream in from the
// exchange, get folded into one-minute candles, and every completed update
// is evaluated against the configured alert rules.
package live

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/storage"
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// CandleSync folds a trade stream into one-minute candles and persists them.
// The forming candle is upserted on every trade so readers always see the
// latest close. Safe for concurrent use; the live runner feeds it from one
// websocket goroutine per exchange.
type CandleSync struct {
	storage storage.Storage
	logger  *logger.Logger

	mu      sync.Mutex
	current map[string]*types.Candle
}

// NewCandleSync creates a sync writing through to the given storage.
func NewCandleSync(store storage.Storage, log *logger.Logger) *CandleSync {
	return &CandleSync{
		storage: store,
		logger:  log,
		current: make(map[string]*types.Candle),
	}
}

// OnTrade merges one trade into its minute candle. Trades older than the
// forming candle are dropped; a trade in a newer minute finalizes the
// forming candle before starting the next one.
func (s *CandleSync) OnTrade(ctx context.Context, trade types.MarketTrade) error {
	minute := trade.Timestamp.Truncate(time.Minute)
	key := string(trade.Exchange) + "|" + trade.Symbol

	// The upsert happens under the lock so writes for one market reach
	// storage in merge order.
	s.mu.Lock()
	defer s.mu.Unlock()

	candle, ok := s.current[key]
	switch {
	case !ok || minute.After(candle.OpenTime):
		s.current[key] = &types.Candle{
			Exchange:  trade.Exchange,
			Symbol:    trade.Symbol,
			Timeframe: types.TimeFrameMin1,
			OpenTime:  minute,
			Open:      trade.Price,
			High:      trade.Price,
			Low:       trade.Price,
			Close:     trade.Price,
			Volume:    trade.Volume,
		}
	case minute.Before(candle.OpenTime):
		s.logger.Debug("dropping stale trade",
			zap.String("symbol", trade.Symbol),
			zap.Time("trade_minute", minute),
			zap.Time("forming_minute", candle.OpenTime),
		)
		return nil
	default:
		if trade.Price > candle.High {
			candle.High = trade.Price
		}
		if trade.Price < candle.Low {
			candle.Low = trade.Price
		}
		candle.Close = trade.Price
		candle.Volume += trade.Volume
	}

	return s.storage.UpsertCandles(ctx, []types.Candle{*s.current[key]})
}

// Flush persists every forming candle. Called on shutdown so the last
// partial minute is not lost.
func (s *CandleSync) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, candle := range s.current {
		if err := s.storage.UpsertCandles(ctx, []types.Candle{*candle}); err != nil {
			return err
		}
	}

	return nil
}
