// Package config loads and validates the YAML configuration file that
// drives the live watcher, the backtester and the report server.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Config is the root of the YAML configuration file.
type Config struct {
	General   GeneralConfig    `yaml:"general" json:"general"`
	Exchanges []ExchangeConfig `yaml:"exchanges" json:"exchanges" validate:"dive"`
	Coins     []CoinConfig     `yaml:"coins" json:"coins" validate:"dive"`
	Alerts    []AlertConfig    `yaml:"alerts" json:"alerts" validate:"dive"`
	Inputs    []InputConfig    `yaml:"inputs" json:"inputs" validate:"dive"`
	Models    []ModelConfig    `yaml:"models" json:"models" validate:"dive"`
	Backtest  *BacktestConfig  `yaml:"backtest" json:"backtest,omitempty"`
	Live      LiveConfig       `yaml:"live" json:"live"`
	Server    ServerConfig     `yaml:"server" json:"server"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	LogLevel               string `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat              string `yaml:"log_format" json:"log_format" validate:"omitempty,oneof=console json"`
	DataDir                string `yaml:"data_dir" json:"data_dir"`
	HistoricalCandles      int    `yaml:"historical_candles" json:"historical_candles" validate:"omitempty,gt=0"`
	DefaultCooldownMinutes int    `yaml:"default_cooldown_minutes" json:"default_cooldown_minutes" validate:"omitempty,gte=0"`
}

// ExchangeConfig declares one upstream exchange.
type ExchangeConfig struct {
	Name    string `yaml:"name" json:"name" validate:"required,oneof=upbit binance"`
	Enabled *bool  `yaml:"enabled" json:"enabled,omitempty"`
	BaseURL string `yaml:"base_url" json:"base_url" validate:"omitempty,url"`
	WsURL   string `yaml:"ws_url" json:"ws_url"`
}

// IsEnabled reports whether the exchange should be connected. Unset means
// enabled.
func (e ExchangeConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// CoinConfig declares one watched market.
type CoinConfig struct {
	Exchange   string   `yaml:"exchange" json:"exchange" validate:"required"`
	Symbol     string   `yaml:"symbol" json:"symbol" validate:"required"`
	Timeframes []string `yaml:"timeframes" json:"timeframes" validate:"required,min=1"`
}

// IndicatorParams carries the optional tuning knobs shared by alert rules
// and signal inputs. Nil fields fall back to per-indicator defaults.
type IndicatorParams struct {
	Period           *int     `yaml:"period" json:"period,omitempty" validate:"omitempty,gt=0"`
	FastPeriod       *int     `yaml:"fast_period" json:"fast_period,omitempty" validate:"omitempty,gt=0"`
	SlowPeriod       *int     `yaml:"slow_period" json:"slow_period,omitempty" validate:"omitempty,gt=0"`
	SignalPeriod     *int     `yaml:"signal_period" json:"signal_period,omitempty" validate:"omitempty,gt=0"`
	StdDevMultiplier *float64 `yaml:"std_dev_multiplier" json:"std_dev_multiplier,omitempty" validate:"omitempty,gt=0"`
	SurgeMultiplier  *float64 `yaml:"surge_multiplier" json:"surge_multiplier,omitempty" validate:"omitempty,gt=0"`
}

// AlertConfig declares one live alert rule.
type AlertConfig struct {
	Name            string          `yaml:"name" json:"name" validate:"required"`
	Exchange        string          `yaml:"exchange" json:"exchange" validate:"required,oneof=upbit binance"`
	Symbol          string          `yaml:"symbol" json:"symbol" validate:"required"`
	Indicator       string          `yaml:"indicator" json:"indicator" validate:"required,oneof=rsi sma ema macd bollinger volume_ma"`
	Params          IndicatorParams `yaml:"params" json:"params"`
	Condition       string          `yaml:"condition" json:"condition" validate:"required,oneof=above below cross_above cross_below between"`
	Threshold       *float64        `yaml:"threshold" json:"threshold,omitempty"`
	ThresholdHigh   *float64        `yaml:"threshold_high" json:"threshold_high,omitempty"`
	CooldownMinutes *int            `yaml:"cooldown_minutes" json:"cooldown_minutes,omitempty" validate:"omitempty,gte=0"`
}

// InputConfig declares one named model input series.
type InputConfig struct {
	Name   string          `yaml:"name" json:"name" validate:"required"`
	Kind   string          `yaml:"kind" json:"kind" validate:"required,oneof=close rsi sma ema macd bollinger volume_ma volume_surge"`
	Params IndicatorParams `yaml:"params" json:"params"`
}

// ModelParams carries the optional tuning knobs of trading models.
type ModelParams struct {
	Input      *string  `yaml:"input" json:"input,omitempty"`
	Oversold   *float64 `yaml:"oversold" json:"oversold,omitempty"`
	Overbought *float64 `yaml:"overbought" json:"overbought,omitempty"`
	ShortInput *string  `yaml:"short_input" json:"short_input,omitempty"`
	LongInput  *string  `yaml:"long_input" json:"long_input,omitempty"`
}

// ModelConfig declares one trading model.
type ModelConfig struct {
	Name   string      `yaml:"name" json:"name" validate:"required"`
	Kind   string      `yaml:"kind" json:"kind" validate:"required,oneof=rsi_reversion sma_cross"`
	Inputs []string    `yaml:"inputs" json:"inputs"`
	Params ModelParams `yaml:"params" json:"params"`
}

// BacktestCostConfig models execution costs.
type BacktestCostConfig struct {
	SlippageBps     *float64           `yaml:"slippage_bps" json:"slippage_bps,omitempty" validate:"omitempty,gte=0"`
	FeeBpsOverrides map[string]float64 `yaml:"fee_bps_overrides" json:"fee_bps_overrides,omitempty"`
}

// RiskPolicyConfig limits position building during a backtest.
type RiskPolicyConfig struct {
	MaxEntriesPerPosition *int `yaml:"max_entries_per_position" json:"max_entries_per_position,omitempty" validate:"omitempty,gte=0"`
	CooldownBars          *int `yaml:"cooldown_bars" json:"cooldown_bars,omitempty" validate:"omitempty,gte=0"`
}

// BacktestConfig declares one backtest run.
type BacktestConfig struct {
	Exchange         string             `yaml:"exchange" json:"exchange" validate:"required,oneof=upbit binance"`
	Symbol           string             `yaml:"symbol" json:"symbol" validate:"required"`
	Timeframe        string             `yaml:"timeframe" json:"timeframe" validate:"required"`
	Model            string             `yaml:"model" json:"model" validate:"required"`
	StartTime        time.Time          `yaml:"start_time" json:"start_time" validate:"required"`
	EndTime          time.Time          `yaml:"end_time" json:"end_time" validate:"required"`
	InitialCapital   *float64           `yaml:"initial_capital" json:"initial_capital,omitempty" validate:"omitempty,gt=0"`
	EntrySizePercent *float64           `yaml:"entry_size_percent" json:"entry_size_percent,omitempty" validate:"omitempty,gt=0,lte=100"`
	Costs            BacktestCostConfig `yaml:"costs" json:"costs"`
	Risk             RiskPolicyConfig   `yaml:"risk" json:"risk"`
}

// LiveRiskConfig limits the live analysis path.
type LiveRiskConfig struct {
	MaxEntriesPerPosition *int `yaml:"max_entries_per_position" json:"max_entries_per_position,omitempty" validate:"omitempty,gte=0"`
}

// LiveConfig holds live-path settings.
type LiveConfig struct {
	Risk LiveRiskConfig `yaml:"risk" json:"risk"`
}

// ServerConfig holds the report API settings.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// Defaults applied to omitted fields.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "console"
	DefaultDataDir           = "./data"
	DefaultHistoricalCandles = 500
	DefaultCooldownMinutes   = 5
	DefaultInitialCapital    = 1_000_000.0
	DefaultEntrySizePercent  = 10.0
	DefaultSlippageBps       = 10.0
	DefaultMaxEntries        = 3
	DefaultCooldownBars      = 3
	DefaultListenAddr        = ":8080"
)

// Load reads, defaults and validates a configuration file.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config file", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.General.LogLevel == "" {
		c.General.LogLevel = DefaultLogLevel
	}

	if c.General.LogFormat == "" {
		c.General.LogFormat = DefaultLogFormat
	}

	if c.General.DataDir == "" {
		c.General.DataDir = DefaultDataDir
	}

	if c.General.HistoricalCandles == 0 {
		c.General.HistoricalCandles = DefaultHistoricalCandles
	}

	if c.General.DefaultCooldownMinutes == 0 {
		c.General.DefaultCooldownMinutes = DefaultCooldownMinutes
	}

	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
}

// InitialCapitalOrDefault returns the configured initial capital.
func (b *BacktestConfig) InitialCapitalOrDefault() float64 {
	if b.InitialCapital != nil {
		return *b.InitialCapital
	}

	return DefaultInitialCapital
}

// EntrySizePercentOrDefault returns the configured entry size percent.
func (b *BacktestConfig) EntrySizePercentOrDefault() float64 {
	if b.EntrySizePercent != nil {
		return *b.EntrySizePercent
	}

	return DefaultEntrySizePercent
}

// SlippageBpsOrDefault returns the configured slippage in basis points.
func (c BacktestCostConfig) SlippageBpsOrDefault() float64 {
	if c.SlippageBps != nil {
		return *c.SlippageBps
	}

	return DefaultSlippageBps
}

// MaxEntriesOrDefault returns the pyramiding entry cap. Zero means
// unlimited.
func (r RiskPolicyConfig) MaxEntriesOrDefault() int {
	if r.MaxEntriesPerPosition != nil {
		return *r.MaxEntriesPerPosition
	}

	return DefaultMaxEntries
}

// CooldownBarsOrDefault returns the minimum bar spacing between entries.
func (r RiskPolicyConfig) CooldownBarsOrDefault() int {
	if r.CooldownBars != nil {
		return *r.CooldownBars
	}

	return DefaultCooldownBars
}
