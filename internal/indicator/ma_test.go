package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

type MovingAverageTestSuite struct {
	suite.Suite
}

func TestMovingAverageSuite(t *testing.T) {
	suite.Run(t, new(MovingAverageTestSuite))
}

func (suite *MovingAverageTestSuite) TestNewValidation() {
	_, err := NewSMA(0)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidPeriod, errors.GetCode(err))

	_, err = NewEMA(-1)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidPeriod, errors.GetCode(err))
}

func (suite *MovingAverageTestSuite) TestSMAValues() {
	sma, err := NewSMA(3)
	suite.Require().NoError(err)
	suite.Equal(types.IndicatorTypeSMA, sma.Name())
	suite.Equal(3, sma.RequiredCandles())

	values, err := sma.Calculate(candlesFromCloses(1, 2, 3, 4, 5))
	suite.Require().NoError(err)
	suite.Equal([]float64{2, 3, 4}, values)
}

func (suite *MovingAverageTestSuite) TestSMAPeriodOne() {
	sma, err := NewSMA(1)
	suite.Require().NoError(err)

	values, err := sma.Calculate(candlesFromCloses(7, 8, 9))
	suite.Require().NoError(err)
	suite.Equal([]float64{7, 8, 9}, values)
}

func (suite *MovingAverageTestSuite) TestSMAInsufficientData() {
	sma, err := NewSMA(10)
	suite.Require().NoError(err)

	_, err = sma.Calculate(candlesFromCloses(1, 2, 3))
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *MovingAverageTestSuite) TestEMAValues() {
	ema, err := NewEMA(3)
	suite.Require().NoError(err)
	suite.Equal(types.IndicatorTypeEMA, ema.Name())
	suite.Equal(3, ema.RequiredCandles())

	// Seed is SMA(1,2,3)=2, then k=0.5: 4*0.5+2*0.5=3, 5*0.5+3*0.5=4, ...
	values, err := ema.Calculate(candlesFromCloses(1, 2, 3, 4, 5, 6))
	suite.Require().NoError(err)
	suite.Require().Len(values, 4)
	suite.InDelta(2.0, values[0], 1e-12)
	suite.InDelta(3.0, values[1], 1e-12)
	suite.InDelta(4.0, values[2], 1e-12)
	suite.InDelta(5.0, values[3], 1e-12)
}

func (suite *MovingAverageTestSuite) TestEMAFlatSeries() {
	ema, err := NewEMA(4)
	suite.Require().NoError(err)

	values, err := ema.Calculate(candlesFromCloses(25, 25, 25, 25, 25, 25))
	suite.Require().NoError(err)

	for _, v := range values {
		suite.InDelta(25.0, v, 1e-12)
	}
}

func (suite *MovingAverageTestSuite) TestSeriesLength() {
	for _, period := range []int{1, 2, 5, 10} {
		sma, err := NewSMA(period)
		suite.Require().NoError(err)

		closes := make([]float64, 12)
		for i := range closes {
			closes[i] = float64(i + 1)
		}

		values, err := sma.Calculate(candlesFromCloses(closes...))
		suite.Require().NoError(err)
		suite.Len(values, len(closes)-period+1)
	}
}
