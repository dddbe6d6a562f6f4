package engine

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jhyeon-dev/coinwatch/internal/types"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsTestSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) TestTotalReturnPct() {
	suite.InDelta(10.0, TotalReturnPct(1000, 1100), 1e-9)
	suite.InDelta(-25.0, TotalReturnPct(1000, 750), 1e-9)
	suite.Zero(TotalReturnPct(0, 500))
	suite.Zero(TotalReturnPct(-100, 500))
}

func (suite *MetricsTestSuite) TestMaxDrawdownPct() {
	suite.InDelta(25.0, CalculateMaxDrawdownPct([]float64{100, 120, 90, 110}), 1e-9)
	suite.Zero(CalculateMaxDrawdownPct([]float64{100, 110, 120}))
	suite.Zero(CalculateMaxDrawdownPct(nil))

	// Non-positive points before equity turns positive are ignored.
	suite.InDelta(50.0, CalculateMaxDrawdownPct([]float64{0, 0, 100, 50}), 1e-9)
}

func (suite *MetricsTestSuite) TestWinRatePct() {
	trades := []types.Trade{
		{NetPnL: 10},
		{NetPnL: -5},
		{NetPnL: 0},
		{NetPnL: 3},
	}

	suite.InDelta(50.0, WinRatePct(trades), 1e-9)
	suite.Zero(WinRatePct(nil))
}

func (suite *MetricsTestSuite) TestResolveFeeBps() {
	suite.Equal(5.0, ResolveFeeBps(types.ExchangeUpbit, nil))
	suite.Equal(10.0, ResolveFeeBps(types.ExchangeBinance, nil))

	overrides := map[string]float64{"binance": 7.5}
	suite.Equal(7.5, ResolveFeeBps(types.ExchangeBinance, overrides))
	suite.Equal(5.0, ResolveFeeBps(types.ExchangeUpbit, overrides))
}
