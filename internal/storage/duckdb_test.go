package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

type DuckDBStorageTestSuite struct {
	suite.Suite
	storage *DuckDBStorage
	ctx     context.Context
}

func TestDuckDBStorageSuite(t *testing.T) {
	suite.Run(t, new(DuckDBStorageTestSuite))
}

func (suite *DuckDBStorageTestSuite) SetupTest() {
	log, err := logger.NewDefaultLogger()
	suite.Require().NoError(err)

	store, err := NewDuckDBStorage(":memory:", log)
	suite.Require().NoError(err)

	suite.storage = store
	suite.ctx = context.Background()
}

func (suite *DuckDBStorageTestSuite) TearDownTest() {
	suite.Require().NoError(suite.storage.Close())
}

func (suite *DuckDBStorageTestSuite) makeCandles(n int) []types.Candle {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, n)

	for i := range candles {
		price := 100 + float64(i)
		candles[i] = types.Candle{
			Exchange:  types.ExchangeBinance,
			Symbol:    "BTCUSDT",
			Timeframe: types.TimeFrameMin1,
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			Open:      price,
			High:      price + 1,
			Low:       price - 1,
			Close:     price + 0.5,
			Volume:    10,
		}
	}

	return candles
}

func (suite *DuckDBStorageTestSuite) TestUpsertCandlesIdempotent() {
	candles := suite.makeCandles(5)

	suite.Require().NoError(suite.storage.UpsertCandles(suite.ctx, candles))
	suite.Require().NoError(suite.storage.UpsertCandles(suite.ctx, candles))

	stored, err := suite.storage.GetRecentCandles(suite.ctx,
		types.ExchangeBinance, "BTCUSDT", types.TimeFrameMin1, 10)
	suite.Require().NoError(err)
	suite.Len(stored, 5)
}

func (suite *DuckDBStorageTestSuite) TestUpsertReplacesExistingRow() {
	candles := suite.makeCandles(1)
	suite.Require().NoError(suite.storage.UpsertCandles(suite.ctx, candles))

	candles[0].Close = 999
	suite.Require().NoError(suite.storage.UpsertCandles(suite.ctx, candles))

	stored, err := suite.storage.GetRecentCandles(suite.ctx,
		types.ExchangeBinance, "BTCUSDT", types.TimeFrameMin1, 10)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	suite.Equal(999.0, stored[0].Close)
}

func (suite *DuckDBStorageTestSuite) TestGetRecentCandlesDescending() {
	suite.Require().NoError(suite.storage.UpsertCandles(suite.ctx, suite.makeCandles(5)))

	stored, err := suite.storage.GetRecentCandles(suite.ctx,
		types.ExchangeBinance, "BTCUSDT", types.TimeFrameMin1, 3)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 3)

	suite.True(stored[0].OpenTime.After(stored[1].OpenTime))
	suite.True(stored[1].OpenTime.After(stored[2].OpenTime))
}

func (suite *DuckDBStorageTestSuite) TestGetCandlesInRangeAscending() {
	candles := suite.makeCandles(10)
	suite.Require().NoError(suite.storage.UpsertCandles(suite.ctx, candles))

	stored, err := suite.storage.GetCandlesInRange(suite.ctx,
		types.ExchangeBinance, "BTCUSDT", types.TimeFrameMin1,
		candles[2].OpenTime, candles[6].OpenTime)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 5)

	suite.Equal(candles[2].OpenTime, stored[0].OpenTime)
	suite.Equal(candles[6].OpenTime, stored[4].OpenTime)
	suite.NoError(types.ValidateAscending(stored))
}

func (suite *DuckDBStorageTestSuite) TestAlertRoundTrip() {
	last, err := suite.storage.LastAlertTime(suite.ctx, "rsi-high")
	suite.Require().NoError(err)
	suite.True(last.IsNone())

	triggeredAt := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	err = suite.storage.LogAlert(suite.ctx, "rsi-high",
		types.ExchangeBinance, "BTCUSDT", triggeredAt, 72.5, "[rsi-high] triggered")
	suite.Require().NoError(err)

	last, err = suite.storage.LastAlertTime(suite.ctx, "rsi-high")
	suite.Require().NoError(err)
	suite.Require().True(last.IsSome())
	suite.Equal(triggeredAt, last.Unwrap())

	// Other rules are unaffected.
	other, err := suite.storage.LastAlertTime(suite.ctx, "rsi-low")
	suite.Require().NoError(err)
	suite.True(other.IsNone())
}

func (suite *DuckDBStorageTestSuite) TestBacktestResultsRoundTrip() {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	run := types.BacktestRun{
		RunID:          "run-1",
		ModelName:      "rsi-reversion",
		Exchange:       types.ExchangeUpbit,
		Symbol:         "KRW-BTC",
		Timeframe:      types.TimeFrameMin1,
		StartTime:      now.Add(-time.Hour),
		EndTime:        now,
		InitialCapital: 10_000,
		FinalEquity:    10_500,
		TotalReturnPct: 5,
		MaxDrawdownPct: 2.5,
		WinRatePct:     100,
		TradeCount:     2,
		CreatedAt:      now,
	}

	trades := []types.Trade{
		{
			RunID: "run-1", Exchange: types.ExchangeUpbit, Symbol: "KRW-BTC",
			EntryTime: now.Add(-50 * time.Minute), ExitTime: now.Add(-10 * time.Minute),
			EntryPrice: 100, ExitPrice: 110, Quantity: 1,
			GrossPnL: 10, NetPnL: 9.8, FeePaid: 0.2, Reason: types.ExitReasonSignal,
		},
		{
			RunID: "run-1", Exchange: types.ExchangeUpbit, Symbol: "KRW-BTC",
			EntryTime: now.Add(-40 * time.Minute), ExitTime: now,
			EntryPrice: 105, ExitPrice: 110, Quantity: 1,
			GrossPnL: 5, NetPnL: 4.8, FeePaid: 0.2, Reason: types.ExitReasonEndOfRun,
		},
	}

	suite.Require().NoError(suite.storage.SaveBacktestResults(suite.ctx, run, trades))

	runs, err := suite.storage.ListBacktestRuns(suite.ctx, 10)
	suite.Require().NoError(err)
	suite.Require().Len(runs, 1)
	suite.Equal(run.RunID, runs[0].RunID)
	suite.Equal(run.FinalEquity, runs[0].FinalEquity)
	suite.Equal(run.Timeframe, runs[0].Timeframe)

	found, err := suite.storage.GetBacktestRun(suite.ctx, "run-1")
	suite.Require().NoError(err)
	suite.Require().True(found.IsSome())
	suite.Equal(run.ModelName, found.Unwrap().ModelName)

	missing, err := suite.storage.GetBacktestRun(suite.ctx, "run-404")
	suite.Require().NoError(err)
	suite.True(missing.IsNone())

	stored, err := suite.storage.ListBacktestTrades(suite.ctx, "run-1", 10)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 2)

	// Most recent exit first.
	suite.Equal(types.ExitReasonEndOfRun, stored[0].Reason)
	suite.Equal(types.ExitReasonSignal, stored[1].Reason)
}
