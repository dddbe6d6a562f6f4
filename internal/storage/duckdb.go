package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// DuckDBStorage implements Storage on an embedded DuckDB database.
type DuckDBStorage struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

var _ Storage = (*DuckDBStorage)(nil)

const migration = `
CREATE TABLE IF NOT EXISTS candles (
	exchange  VARCHAR NOT NULL,
	symbol    VARCHAR NOT NULL,
	timeframe VARCHAR NOT NULL,
	open_time TIMESTAMP NOT NULL,
	open      DOUBLE NOT NULL,
	high      DOUBLE NOT NULL,
	low       DOUBLE NOT NULL,
	close     DOUBLE NOT NULL,
	volume    DOUBLE NOT NULL,
	PRIMARY KEY (exchange, symbol, timeframe, open_time)
);

CREATE TABLE IF NOT EXISTS alerts_log (
	alert_name      VARCHAR NOT NULL,
	exchange        VARCHAR NOT NULL,
	symbol          VARCHAR NOT NULL,
	triggered_at    TIMESTAMP NOT NULL,
	indicator_value DOUBLE NOT NULL,
	message         VARCHAR NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_runs (
	run_id           VARCHAR PRIMARY KEY,
	model_name       VARCHAR NOT NULL,
	exchange         VARCHAR NOT NULL,
	symbol           VARCHAR NOT NULL,
	timeframe        VARCHAR NOT NULL,
	start_time       TIMESTAMP NOT NULL,
	end_time         TIMESTAMP NOT NULL,
	initial_capital  DOUBLE NOT NULL,
	final_equity     DOUBLE NOT NULL,
	total_return_pct DOUBLE NOT NULL,
	max_drawdown_pct DOUBLE NOT NULL,
	win_rate_pct     DOUBLE NOT NULL,
	trade_count      INTEGER NOT NULL,
	created_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS backtest_trades (
	run_id      VARCHAR NOT NULL,
	exchange    VARCHAR NOT NULL,
	symbol      VARCHAR NOT NULL,
	entry_time  TIMESTAMP NOT NULL,
	exit_time   TIMESTAMP NOT NULL,
	entry_price DOUBLE NOT NULL,
	exit_price  DOUBLE NOT NULL,
	quantity    DOUBLE NOT NULL,
	gross_pnl   DOUBLE NOT NULL,
	net_pnl     DOUBLE NOT NULL,
	fee_paid    DOUBLE NOT NULL,
	reason      VARCHAR NOT NULL
);
`

// NewDuckDBStorage opens (or creates) a DuckDB database at path and runs the
// schema migration. Pass ":memory:" for an in-memory database.
func NewDuckDBStorage(path string, log *logger.Logger) (*DuckDBStorage, error) {
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStorageMigration, err, "cannot create data directory for %s", path)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageMigration, "failed to open database", err)
	}

	if _, err := db.Exec(migration); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStorageMigration, "failed to run migration", err)
	}

	log.Debug("storage ready", zap.String("path", path))

	return &DuckDBStorage{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close implements Storage.
func (s *DuckDBStorage) Close() error {
	return s.db.Close()
}

// UpsertCandles implements Storage.
func (s *DuckDBStorage) UpsertCandles(ctx context.Context, candles []types.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageInsert, "failed to begin transaction", err)
	}

	for _, c := range candles {
		query := s.sq.
			Insert("candles").
			Options("OR REPLACE").
			Columns("exchange", "symbol", "timeframe", "open_time", "open", "high", "low", "close", "volume").
			Values(string(c.Exchange), c.Symbol, string(c.Timeframe), c.OpenTime.UTC(),
				c.Open, c.High, c.Low, c.Close, c.Volume).
			RunWith(tx)

		if _, err := query.ExecContext(ctx); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStorageInsert, "failed to upsert candle", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageInsert, "failed to commit candles", err)
	}

	return nil
}

// GetRecentCandles implements Storage. Rows come back newest first; callers
// feeding indicators must reverse into ascending order.
func (s *DuckDBStorage) GetRecentCandles(ctx context.Context, exchange types.Exchange, symbol string, timeframe types.TimeFrame, limit int) ([]types.Candle, error) {
	query := s.sq.
		Select("exchange", "symbol", "timeframe", "open_time", "open", "high", "low", "close", "volume").
		From("candles").
		Where(squirrel.Eq{
			"exchange":  string(exchange),
			"symbol":    symbol,
			"timeframe": string(timeframe),
		}).
		OrderBy("open_time DESC").
		Limit(uint64(limit)).
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQuery, "failed to query recent candles", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// GetCandlesInRange implements Storage.
func (s *DuckDBStorage) GetCandlesInRange(ctx context.Context, exchange types.Exchange, symbol string, timeframe types.TimeFrame, start, end time.Time) ([]types.Candle, error) {
	query := s.sq.
		Select("exchange", "symbol", "timeframe", "open_time", "open", "high", "low", "close", "volume").
		From("candles").
		Where(squirrel.Eq{
			"exchange":  string(exchange),
			"symbol":    symbol,
			"timeframe": string(timeframe),
		}).
		Where(squirrel.GtOrEq{"open_time": start.UTC()}).
		Where(squirrel.LtOrEq{"open_time": end.UTC()}).
		OrderBy("open_time ASC").
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQuery, "failed to query candle range", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

func scanCandles(rows *sql.Rows) ([]types.Candle, error) {
	var candles []types.Candle

	for rows.Next() {
		var (
			c         types.Candle
			exchange  string
			timeframe string
		)

		err := rows.Scan(&exchange, &c.Symbol, &timeframe, &c.OpenTime,
			&c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageQuery, "failed to scan candle", err)
		}

		c.Exchange = types.Exchange(exchange)
		c.Timeframe = types.TimeFrame(timeframe)
		c.OpenTime = c.OpenTime.UTC()
		candles = append(candles, c)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQuery, "candle row iteration failed", err)
	}

	return candles, nil
}

// LogAlert implements Storage.
func (s *DuckDBStorage) LogAlert(ctx context.Context, ruleName string, exchange types.Exchange, symbol string, triggeredAt time.Time, indicatorValue float64, message string) error {
	query := s.sq.
		Insert("alerts_log").
		Columns("alert_name", "exchange", "symbol", "triggered_at", "indicator_value", "message").
		Values(ruleName, string(exchange), symbol, triggeredAt.UTC(), indicatorValue, message).
		RunWith(s.db)

	if _, err := query.ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodeStorageInsert, "failed to log alert", err)
	}

	return nil
}

// LastAlertTime implements Storage.
func (s *DuckDBStorage) LastAlertTime(ctx context.Context, ruleName string) (optional.Option[time.Time], error) {
	query := s.sq.
		Select("triggered_at").
		From("alerts_log").
		Where(squirrel.Eq{"alert_name": ruleName}).
		OrderBy("triggered_at DESC").
		Limit(1).
		RunWith(s.db)

	var triggeredAt time.Time

	err := query.QueryRowContext(ctx).Scan(&triggeredAt)
	if err == sql.ErrNoRows {
		return optional.None[time.Time](), nil
	}

	if err != nil {
		return optional.None[time.Time](), errors.Wrap(errors.ErrCodeStorageQuery, "failed to query last alert time", err)
	}

	return optional.Some(triggeredAt.UTC()), nil
}

// SaveBacktestResults implements Storage.
func (s *DuckDBStorage) SaveBacktestResults(ctx context.Context, run types.BacktestRun, trades []types.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageInsert, "failed to begin transaction", err)
	}

	runQuery := s.sq.
		Insert("backtest_runs").
		Columns("run_id", "model_name", "exchange", "symbol", "timeframe",
			"start_time", "end_time", "initial_capital", "final_equity",
			"total_return_pct", "max_drawdown_pct", "win_rate_pct", "trade_count", "created_at").
		Values(run.RunID, run.ModelName, string(run.Exchange), run.Symbol, string(run.Timeframe),
			run.StartTime.UTC(), run.EndTime.UTC(), run.InitialCapital, run.FinalEquity,
			run.TotalReturnPct, run.MaxDrawdownPct, run.WinRatePct, run.TradeCount, run.CreatedAt.UTC()).
		RunWith(tx)

	if _, err := runQuery.ExecContext(ctx); err != nil {
		tx.Rollback()

		return errors.Wrap(errors.ErrCodeStorageInsert, "failed to insert backtest run", err)
	}

	for _, trade := range trades {
		tradeQuery := s.sq.
			Insert("backtest_trades").
			Columns("run_id", "exchange", "symbol", "entry_time", "exit_time",
				"entry_price", "exit_price", "quantity", "gross_pnl", "net_pnl", "fee_paid", "reason").
			Values(trade.RunID, string(trade.Exchange), trade.Symbol, trade.EntryTime.UTC(), trade.ExitTime.UTC(),
				trade.EntryPrice, trade.ExitPrice, trade.Quantity, trade.GrossPnL, trade.NetPnL,
				trade.FeePaid, string(trade.Reason)).
			RunWith(tx)

		if _, err := tradeQuery.ExecContext(ctx); err != nil {
			tx.Rollback()

			return errors.Wrap(errors.ErrCodeStorageInsert, "failed to insert backtest trade", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageInsert, "failed to commit backtest results", err)
	}

	s.logger.Info("backtest results saved",
		zap.String("run_id", run.RunID),
		zap.Int("trades", len(trades)))

	return nil
}

// ListBacktestRuns implements Storage.
func (s *DuckDBStorage) ListBacktestRuns(ctx context.Context, limit int) ([]types.BacktestRun, error) {
	query := s.sq.
		Select("run_id", "model_name", "exchange", "symbol", "timeframe",
			"start_time", "end_time", "initial_capital", "final_equity",
			"total_return_pct", "max_drawdown_pct", "win_rate_pct", "trade_count", "created_at").
		From("backtest_runs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQuery, "failed to list backtest runs", err)
	}
	defer rows.Close()

	var runs []types.BacktestRun

	for rows.Next() {
		run, err := scanBacktestRun(rows)
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQuery, "run row iteration failed", err)
	}

	return runs, nil
}

// GetBacktestRun implements Storage.
func (s *DuckDBStorage) GetBacktestRun(ctx context.Context, runID string) (optional.Option[types.BacktestRun], error) {
	query := s.sq.
		Select("run_id", "model_name", "exchange", "symbol", "timeframe",
			"start_time", "end_time", "initial_capital", "final_equity",
			"total_return_pct", "max_drawdown_pct", "win_rate_pct", "trade_count", "created_at").
		From("backtest_runs").
		Where(squirrel.Eq{"run_id": runID}).
		Limit(1).
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return optional.None[types.BacktestRun](), errors.Wrap(errors.ErrCodeStorageQuery, "failed to get backtest run", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return optional.None[types.BacktestRun](), errors.Wrap(errors.ErrCodeStorageQuery, "run row iteration failed", err)
		}

		return optional.None[types.BacktestRun](), nil
	}

	run, err := scanBacktestRun(rows)
	if err != nil {
		return optional.None[types.BacktestRun](), err
	}

	return optional.Some(run), nil
}

func scanBacktestRun(rows *sql.Rows) (types.BacktestRun, error) {
	var (
		run       types.BacktestRun
		exchange  string
		timeframe string
	)

	err := rows.Scan(&run.RunID, &run.ModelName, &exchange, &run.Symbol, &timeframe,
		&run.StartTime, &run.EndTime, &run.InitialCapital, &run.FinalEquity,
		&run.TotalReturnPct, &run.MaxDrawdownPct, &run.WinRatePct, &run.TradeCount, &run.CreatedAt)
	if err != nil {
		return types.BacktestRun{}, errors.Wrap(errors.ErrCodeStorageQuery, "failed to scan backtest run", err)
	}

	run.Exchange = types.Exchange(exchange)
	run.Timeframe = types.TimeFrame(timeframe)
	run.StartTime = run.StartTime.UTC()
	run.EndTime = run.EndTime.UTC()
	run.CreatedAt = run.CreatedAt.UTC()

	return run, nil
}

// ListBacktestTrades implements Storage.
func (s *DuckDBStorage) ListBacktestTrades(ctx context.Context, runID string, limit int) ([]types.Trade, error) {
	query := s.sq.
		Select("run_id", "exchange", "symbol", "entry_time", "exit_time",
			"entry_price", "exit_price", "quantity", "gross_pnl", "net_pnl", "fee_paid", "reason").
		From("backtest_trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("exit_time DESC").
		Limit(uint64(limit)).
		RunWith(s.db)

	rows, err := query.QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQuery, "failed to list backtest trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade    types.Trade
			exchange string
			reason   string
		)

		err := rows.Scan(&trade.RunID, &exchange, &trade.Symbol, &trade.EntryTime, &trade.ExitTime,
			&trade.EntryPrice, &trade.ExitPrice, &trade.Quantity, &trade.GrossPnL, &trade.NetPnL,
			&trade.FeePaid, &reason)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageQuery, "failed to scan backtest trade", err)
		}

		trade.Exchange = types.Exchange(exchange)
		trade.Reason = types.ExitReason(reason)
		trade.EntryTime = trade.EntryTime.UTC()
		trade.ExitTime = trade.ExitTime.UTC()
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQuery, "trade row iteration failed", err)
	}

	return trades, nil
}
