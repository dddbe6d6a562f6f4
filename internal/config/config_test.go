package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) writeConfig(content string) string {
	path := filepath.Join(suite.T().TempDir(), "config.yaml")
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0o644))

	return path
}

func (suite *ConfigTestSuite) TestDefaultsApplied() {
	cfg, err := Load(suite.writeConfig("general: {}\n"))
	suite.Require().NoError(err)

	suite.Equal("info", cfg.General.LogLevel)
	suite.Equal("console", cfg.General.LogFormat)
	suite.Equal("./data", cfg.General.DataDir)
	suite.Equal(500, cfg.General.HistoricalCandles)
	suite.Equal(5, cfg.General.DefaultCooldownMinutes)
	suite.Equal(":8080", cfg.Server.ListenAddr)
	suite.Empty(cfg.Alerts)
	suite.Nil(cfg.Backtest)
	suite.Nil(cfg.Live.Risk.MaxEntriesPerPosition)
}

func (suite *ConfigTestSuite) TestMissingFile() {
	_, err := Load(filepath.Join(suite.T().TempDir(), "nope.yaml"))
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestInvalidYAML() {
	_, err := Load(suite.writeConfig("general: [not a mapping\n"))
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestInvalidTimeframeRejected() {
	_, err := Load(suite.writeConfig(`
general: {}
exchanges:
  - name: upbit
    base_url: https://api.upbit.com
coins:
  - exchange: upbit
    symbol: KRW-BTC
    timeframes: ["2m"]
`))
	suite.Error(err)
	suite.Equal(errors.ErrCodeInvalidConfiguration, errors.GetCode(err))
}

func (suite *ConfigTestSuite) TestUnknownCoinExchangeRejected() {
	_, err := Load(suite.writeConfig(`
general: {}
exchanges:
  - name: upbit
coins:
  - exchange: binance
    symbol: BTCUSDT
    timeframes: ["1m"]
`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestAlertValidation() {
	base := `
general: {}
coins:
  - exchange: binance
    symbol: BTCUSDT
    timeframes: ["1m"]
alerts:
  - name: rsi-overbought
    exchange: binance
    symbol: BTCUSDT
    indicator: rsi
    params:
      period: 14
`

	cfg, err := Load(suite.writeConfig(base + `
    condition: above
    threshold: 70
`))
	suite.Require().NoError(err)
	suite.Len(cfg.Alerts, 1)
	suite.Equal(14, *cfg.Alerts[0].Params.Period)

	// Missing threshold.
	_, err = Load(suite.writeConfig(base + `
    condition: above
`))
	suite.Error(err)

	// Between requires threshold_high above threshold.
	_, err = Load(suite.writeConfig(base + `
    condition: between
    threshold: 60
    threshold_high: 40
`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestDuplicateAlertNameRejected() {
	_, err := Load(suite.writeConfig(`
general: {}
alerts:
  - name: dup
    exchange: binance
    symbol: BTCUSDT
    indicator: rsi
    condition: above
    threshold: 70
  - name: dup
    exchange: binance
    symbol: BTCUSDT
    indicator: rsi
    condition: below
    threshold: 30
`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestDuplicateInputNameRejected() {
	_, err := Load(suite.writeConfig(`
general: {}
inputs:
  - name: rsi_14
    kind: rsi
  - name: rsi_14
    kind: rsi
`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestModelInputReferences() {
	_, err := Load(suite.writeConfig(`
general: {}
inputs:
  - name: sma_short
    kind: sma
    params:
      period: 5
models:
  - name: crosser
    kind: sma_cross
    inputs: ["sma_short", "sma_long"]
`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestBacktestDefaultsAndValidation() {
	cfg, err := Load(suite.writeConfig(`
general: {}
models:
  - name: rsi-reversion
    kind: rsi_reversion
backtest:
  exchange: upbit
  symbol: KRW-BTC
  timeframe: 1m
  model: rsi-reversion
  start_time: 2025-01-01T00:00:00Z
  end_time: 2025-01-02T00:00:00Z
`))
	suite.Require().NoError(err)
	suite.Require().NotNil(cfg.Backtest)

	suite.Equal(1_000_000.0, cfg.Backtest.InitialCapitalOrDefault())
	suite.Equal(10.0, cfg.Backtest.EntrySizePercentOrDefault())
	suite.Equal(10.0, cfg.Backtest.Costs.SlippageBpsOrDefault())
	suite.Equal(3, cfg.Backtest.Risk.MaxEntriesOrDefault())
	suite.Equal(3, cfg.Backtest.Risk.CooldownBarsOrDefault())

	_, err = Load(suite.writeConfig(`
general: {}
backtest:
  exchange: upbit
  symbol: KRW-BTC
  timeframe: 1m
  model: missing
  start_time: 2025-01-02T00:00:00Z
  end_time: 2025-01-01T00:00:00Z
`))
	suite.Error(err)
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	cfg := &Config{}
	schemaJSON, err := cfg.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.Contains(schemaJSON, "coinwatch-config")
	suite.Contains(schemaJSON, "general")
}
