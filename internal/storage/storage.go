// Package storage persists candles, alerts and backtest results. It is the
// single source of truth for cooldown state across restarts.
package storage

import (
	"context"
	"time"

	"github.com/moznion/go-optional"

	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// Storage is the persistence contract consumed by the live watcher, the
// backtester and the report API.
type Storage interface {
	// UpsertCandles inserts candles, replacing rows with the same
	// (exchange, symbol, timeframe, open_time) key. Idempotent.
	UpsertCandles(ctx context.Context, candles []types.Candle) error

	// GetRecentCandles returns up to limit candles, newest first.
	GetRecentCandles(ctx context.Context, exchange types.Exchange, symbol string, timeframe types.TimeFrame, limit int) ([]types.Candle, error)

	// GetCandlesInRange returns candles with open_time in [start, end],
	// oldest first.
	GetCandlesInRange(ctx context.Context, exchange types.Exchange, symbol string, timeframe types.TimeFrame, start, end time.Time) ([]types.Candle, error)

	// LogAlert records a fired alert. The stored trigger time feeds the
	// cooldown gate.
	LogAlert(ctx context.Context, ruleName string, exchange types.Exchange, symbol string, triggeredAt time.Time, indicatorValue float64, message string) error

	// LastAlertTime returns when the rule last fired, if ever.
	LastAlertTime(ctx context.Context, ruleName string) (optional.Option[time.Time], error)

	// SaveBacktestResults writes a run summary and its trade ledger in one
	// transaction. Nothing is persisted if any insert fails.
	SaveBacktestResults(ctx context.Context, run types.BacktestRun, trades []types.Trade) error

	// ListBacktestRuns returns up to limit runs, newest first.
	ListBacktestRuns(ctx context.Context, limit int) ([]types.BacktestRun, error)

	// GetBacktestRun looks a run up by id.
	GetBacktestRun(ctx context.Context, runID string) (optional.Option[types.BacktestRun], error)

	// ListBacktestTrades returns up to limit trades of a run, most recent
	// exit first.
	ListBacktestTrades(ctx context.Context, runID string, limit int) ([]types.Trade, error)

	// Close releases the underlying database.
	Close() error
}
