package engine

import (
	"context"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/model"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// scriptedModel replays a fixed action per bar, in order.
type scriptedModel struct {
	actions []types.SignalAction
	calls   int
}

func (m *scriptedModel) Name() string {
	return "scripted"
}

func (m *scriptedModel) RequiredInputs() []string {
	return []string{"close"}
}

func (m *scriptedModel) Evaluate(_ model.Context) (types.SignalAction, error) {
	if m.calls >= len(m.actions) {
		return types.SignalActionHold, nil
	}

	action := m.actions[m.calls]
	m.calls++

	return action, nil
}

type EngineTestSuite struct {
	suite.Suite
	logger *logger.Logger
}

func (suite *EngineTestSuite) SetupSuite() {
	log, err := logger.NewDefaultLogger()
	suite.Require().NoError(err)
	suite.logger = log
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

var testBase = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// rampCandles builds one-minute candles where open[i] = 100 + i and
// close[i] = open[i] + 0.5.
func rampCandles(n int) []types.Candle {
	candles := make([]types.Candle, n)
	for i := range candles {
		open := 100.0 + float64(i)
		candles[i] = types.Candle{
			Exchange:  types.ExchangeBinance,
			Symbol:    "BTCUSDT",
			Timeframe: types.TimeFrameMin1,
			OpenTime:  testBase.Add(time.Duration(i) * time.Minute),
			Open:      open,
			High:      open + 1,
			Low:       open - 1,
			Close:     open + 0.5,
			Volume:    100,
		}
	}

	return candles
}

func closeSeries(candles []types.Candle) map[string][]optional.Option[float64] {
	values := make([]optional.Option[float64], len(candles))
	for i, candle := range candles {
		values[i] = optional.Some(candle.Close)
	}

	return map[string][]optional.Option[float64]{"close": values}
}

func (suite *EngineTestSuite) settings() Settings {
	return Settings{
		Exchange:         types.ExchangeBinance,
		Symbol:           "BTCUSDT",
		Timeframe:        types.TimeFrameMin1,
		ModelName:        "scripted",
		InitialCapital:   10_000,
		EntrySizePercent: 10,
		SlippageBps:      10,
		FeeBps:           5,
		MaxEntries:       3,
		CooldownBars:     3,
	}
}

func (suite *EngineTestSuite) run(settings Settings, candles []types.Candle, actions []types.SignalAction) *Result {
	eng, err := NewEngine(settings, suite.logger)
	suite.Require().NoError(err)

	result, err := eng.Execute(context.Background(), candles, closeSeries(candles), &scriptedModel{actions: actions})
	suite.Require().NoError(err)

	return result
}

func (suite *EngineTestSuite) TestPyramidingWithCooldown() {
	candles := rampCandles(11)
	actions := make([]types.SignalAction, 10)
	for i := range actions {
		actions[i] = types.SignalActionHold
	}
	actions[2] = types.SignalActionBuy // fills at bar 3
	actions[3] = types.SignalActionBuy // blocked: 4 - 3 < cooldown of 3
	actions[6] = types.SignalActionBuy // fills at bar 7: 7 - 3 >= 3
	actions[9] = types.SignalActionSell

	result := suite.run(suite.settings(), candles, actions)

	suite.Require().Len(result.Trades, 2)
	first, second := result.Trades[0], result.Trades[1]

	suite.Equal(types.ExitReasonSignal, first.Reason)
	suite.Equal(types.ExitReasonSignal, second.Reason)
	suite.Equal(candles[3].OpenTime, first.EntryTime)
	suite.Equal(candles[7].OpenTime, second.EntryTime)
	suite.Equal(candles[10].OpenTime, first.ExitTime)

	suite.InDelta(103.103, first.EntryPrice, 1e-9)
	suite.InDelta(107.107, second.EntryPrice, 1e-9)
	suite.InDelta(109.89, first.ExitPrice, 1e-9)

	suite.InDelta(9.699038825252417, first.Quantity, 1e-9)
	suite.InDelta(64.79446281873471, first.NetPnL, 1e-6)
	suite.InDelta(25.051393698061997, second.NetPnL, 1e-6)
	suite.InDelta(1.0329136882534942, first.FeePaid, 1e-9)

	suite.InDelta(10089.845856516797, result.Run.FinalEquity, 1e-6)

	netTotal := 0.0
	for _, trade := range result.Trades {
		netTotal += trade.NetPnL
	}
	suite.InDelta(result.Run.InitialCapital+netTotal, result.Run.FinalEquity, 1e-6)

	suite.Equal(2, result.Run.TradeCount)
	suite.InDelta(100.0, result.Run.WinRatePct, 1e-9)
	suite.Len(result.EquityCurve, len(candles))
}

func (suite *EngineTestSuite) TestFillsUseNextBarOpen() {
	candles := rampCandles(4)
	actions := []types.SignalAction{types.SignalActionBuy, types.SignalActionHold, types.SignalActionSell}

	result := suite.run(suite.settings(), candles, actions)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]

	// Entry priced off bar 1's open, exit off bar 3's open; neither uses the
	// signal bar itself.
	suite.InDelta(candles[1].Open*1.001, trade.EntryPrice, 1e-9)
	suite.InDelta(candles[3].Open*0.999, trade.ExitPrice, 1e-9)
	suite.Equal(candles[1].OpenTime, trade.EntryTime)
	suite.Equal(candles[3].OpenTime, trade.ExitTime)
}

func (suite *EngineTestSuite) TestForcedCloseAtLastCloseWithoutSlippage() {
	candles := rampCandles(6)
	actions := []types.SignalAction{types.SignalActionBuy, types.SignalActionHold, types.SignalActionHold, types.SignalActionHold, types.SignalActionHold}

	result := suite.run(suite.settings(), candles, actions)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]
	suite.Equal(types.ExitReasonEndOfRun, trade.Reason)
	suite.Equal(candles[5].Close, trade.ExitPrice)
	suite.Equal(candles[5].OpenTime, trade.ExitTime)

	netTotal := 0.0
	for _, t := range result.Trades {
		netTotal += t.NetPnL
	}
	suite.InDelta(result.Run.InitialCapital+netTotal, result.Run.FinalEquity, 1e-6)
}

func (suite *EngineTestSuite) TestForcedCloseRecordsOneTradePerLot() {
	settings := suite.settings()
	settings.CooldownBars = 1

	candles := rampCandles(6)
	actions := []types.SignalAction{types.SignalActionBuy, types.SignalActionBuy, types.SignalActionBuy, types.SignalActionHold, types.SignalActionHold}

	result := suite.run(settings, candles, actions)

	suite.Require().Len(result.Trades, 3)
	for _, trade := range result.Trades {
		suite.Equal(types.ExitReasonEndOfRun, trade.Reason)
		suite.Equal(candles[5].Close, trade.ExitPrice)
	}
	suite.InDelta(candles[1].Open*1.001, result.Trades[0].EntryPrice, 1e-9)
	suite.InDelta(candles[2].Open*1.001, result.Trades[1].EntryPrice, 1e-9)
	suite.InDelta(candles[3].Open*1.001, result.Trades[2].EntryPrice, 1e-9)
}

func (suite *EngineTestSuite) TestMaxEntriesCapsOpenLots() {
	settings := suite.settings()
	settings.MaxEntries = 1
	settings.CooldownBars = 0

	candles := rampCandles(6)
	actions := []types.SignalAction{types.SignalActionBuy, types.SignalActionBuy, types.SignalActionBuy, types.SignalActionHold, types.SignalActionSell}

	result := suite.run(settings, candles, actions)

	suite.Require().Len(result.Trades, 1)
	suite.InDelta(candles[1].Open*1.001, result.Trades[0].EntryPrice, 1e-9)
}

func (suite *EngineTestSuite) TestSellWithoutPositionIsNoOp() {
	candles := rampCandles(4)
	actions := []types.SignalAction{types.SignalActionSell, types.SignalActionHold, types.SignalActionSell}

	result := suite.run(suite.settings(), candles, actions)

	suite.Empty(result.Trades)
	suite.Equal(suite.settings().InitialCapital, result.Run.FinalEquity)
	suite.Zero(result.Run.WinRatePct)
	suite.Zero(result.Run.TotalReturnPct)
}

func (suite *EngineTestSuite) TestWarmupBarsAreSkipped() {
	candles := rampCandles(5)
	series := closeSeries(candles)
	series["close"][0] = optional.None[float64]()
	series["close"][1] = optional.None[float64]()

	mdl := &scriptedModel{actions: []types.SignalAction{types.SignalActionBuy, types.SignalActionBuy}}
	eng, err := NewEngine(suite.settings(), suite.logger)
	suite.Require().NoError(err)

	result, err := eng.Execute(context.Background(), candles, series, mdl)
	suite.Require().NoError(err)

	// Bars 0 and 1 were unevaluable, so the first buy lands on bar 2.
	suite.Equal(2, mdl.calls)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(candles[3].OpenTime, result.Trades[0].EntryTime)
	suite.Len(result.EquityCurve, len(candles))
}

func (suite *EngineTestSuite) TestDeterministicAcrossRuns() {
	candles := rampCandles(11)
	actions := make([]types.SignalAction, 10)
	for i := range actions {
		actions[i] = types.SignalActionHold
	}
	actions[1] = types.SignalActionBuy
	actions[5] = types.SignalActionSell
	actions[7] = types.SignalActionBuy

	first := suite.run(suite.settings(), candles, actions)
	second := suite.run(suite.settings(), candles, actions)

	suite.NotEqual(first.Run.RunID, second.Run.RunID)
	suite.Equal(first.EquityCurve, second.EquityCurve)
	suite.Equal(first.Run.FinalEquity, second.Run.FinalEquity)
	suite.Equal(first.Run.MaxDrawdownPct, second.Run.MaxDrawdownPct)

	suite.Require().Len(second.Trades, len(first.Trades))
	for i := range first.Trades {
		a, b := first.Trades[i], second.Trades[i]
		a.RunID, b.RunID = "", ""
		suite.Equal(a, b)
	}
}

func (suite *EngineTestSuite) TestMetricBoundsOnVolatileRun() {
	candles := rampCandles(20)
	// Force a loss: buy high, crash, sell low.
	for i := 10; i < 20; i++ {
		candles[i].Open = 50 - float64(i-10)
		candles[i].Close = candles[i].Open + 0.5
		candles[i].High = candles[i].Open + 1
		candles[i].Low = candles[i].Open - 1
	}

	actions := make([]types.SignalAction, 19)
	for i := range actions {
		actions[i] = types.SignalActionHold
	}
	actions[5] = types.SignalActionBuy
	actions[15] = types.SignalActionSell

	result := suite.run(suite.settings(), candles, actions)

	suite.GreaterOrEqual(result.Run.MaxDrawdownPct, 0.0)
	suite.LessOrEqual(result.Run.MaxDrawdownPct, 100.0)
	suite.GreaterOrEqual(result.Run.WinRatePct, 0.0)
	suite.LessOrEqual(result.Run.WinRatePct, 100.0)
	suite.Negative(result.Run.TotalReturnPct)
	suite.Positive(result.Run.MaxDrawdownPct)
}

func (suite *EngineTestSuite) TestCancellationAborts() {
	candles := rampCandles(10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng, err := NewEngine(suite.settings(), suite.logger)
	suite.Require().NoError(err)

	result, err := eng.Execute(ctx, candles, closeSeries(candles), &scriptedModel{})
	suite.Require().Error(err)
	suite.Nil(result)
	suite.True(errors.HasCode(err, errors.ErrCodeSimulationAborted))
}

func (suite *EngineTestSuite) TestTooFewCandles() {
	candles := rampCandles(1)

	eng, err := NewEngine(suite.settings(), suite.logger)
	suite.Require().NoError(err)

	_, err = eng.Execute(context.Background(), candles, closeSeries(candles), &scriptedModel{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeSimulationEmptyRange))
}

func (suite *EngineTestSuite) TestMissingInputSeries() {
	candles := rampCandles(5)

	eng, err := NewEngine(suite.settings(), suite.logger)
	suite.Require().NoError(err)

	_, err = eng.Execute(context.Background(), candles, map[string][]optional.Option[float64]{}, &scriptedModel{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInputNotFound))
}

func (suite *EngineTestSuite) TestSettingsValidation() {
	cases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero capital", func(s *Settings) { s.InitialCapital = 0 }},
		{"entry size above 100", func(s *Settings) { s.EntrySizePercent = 101 }},
		{"negative slippage", func(s *Settings) { s.SlippageBps = -1 }},
		{"negative fee", func(s *Settings) { s.FeeBps = -1 }},
		{"negative max entries", func(s *Settings) { s.MaxEntries = -1 }},
		{"negative cooldown", func(s *Settings) { s.CooldownBars = -1 }},
	}

	for _, tc := range cases {
		settings := suite.settings()
		tc.mutate(&settings)

		_, err := NewEngine(settings, suite.logger)
		suite.Require().Error(err, tc.name)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration), tc.name)
	}
}
