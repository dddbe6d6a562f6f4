package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

type VolumeMATestSuite struct {
	suite.Suite
}

func TestVolumeMASuite(t *testing.T) {
	suite.Run(t, new(VolumeMATestSuite))
}

func (suite *VolumeMATestSuite) TestNewValidation() {
	_, err := NewVolumeMA(0)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidPeriod, errors.GetCode(err))

	vma, err := NewVolumeMA(20)
	suite.NoError(err)
	suite.Equal(types.IndicatorTypeVolumeMA, vma.Name())
	suite.Equal(20, vma.RequiredCandles())
}

func (suite *VolumeMATestSuite) TestCalculateAverages() {
	vma, err := NewVolumeMA(3)
	suite.Require().NoError(err)

	values, err := vma.Calculate(candlesFromVolumes(10, 20, 30, 40, 50))
	suite.Require().NoError(err)
	suite.Equal([]float64{20, 30, 40}, values)
}

func (suite *VolumeMATestSuite) TestDetectSurges() {
	vma, err := NewVolumeMA(3)
	suite.Require().NoError(err)

	// Last window [10 10 60] averages 26.67; 60 exceeds 1.5x that, earlier
	// windows are flat.
	surges, err := vma.DetectSurges(candlesFromVolumes(10, 10, 10, 10, 60), 1.5)
	suite.Require().NoError(err)
	suite.Equal([]bool{false, false, true}, surges)

	surges, err = vma.DetectSurges(candlesFromVolumes(10, 10, 10, 10, 10), 1.5)
	suite.Require().NoError(err)
	suite.Equal([]bool{false, false, false}, surges)
}

// A volume exactly at average*multiplier must not trigger.
func (suite *VolumeMATestSuite) TestSurgeBoundaryIsStrict() {
	vma, err := NewVolumeMA(3)
	suite.Require().NoError(err)

	// Window [10 10 40]: average 20, threshold 40, 40 == 40 is no surge.
	surges, err := vma.DetectSurges(candlesFromVolumes(10, 10, 40), 2)
	suite.Require().NoError(err)
	suite.Equal([]bool{false}, surges)

	// Window [10 10 41]: average 20.33, threshold 40.67, 41 triggers.
	surges, err = vma.DetectSurges(candlesFromVolumes(10, 10, 41), 2)
	suite.Require().NoError(err)
	suite.Equal([]bool{true}, surges)
}

func (suite *VolumeMATestSuite) TestSurgeMultiplierValidation() {
	vma, err := NewVolumeMA(3)
	suite.Require().NoError(err)

	_, err = vma.DetectSurges(candlesFromVolumes(1, 2, 3, 4), 0)
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidMultiplier, errors.GetCode(err))
}

func (suite *VolumeMATestSuite) TestInsufficientData() {
	vma, err := NewVolumeMA(5)
	suite.Require().NoError(err)

	_, err = vma.Calculate(candlesFromVolumes(1, 2))
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}
