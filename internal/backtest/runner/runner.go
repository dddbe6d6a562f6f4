// Package runner wires stored candles, input series, and a trading model
// into one backtest execution and persists the outcome.
package runner

import (
	"context"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	engine "github.com/jhyeon-dev/coinwatch/internal/backtest/engine/engine_v1"
	"github.com/jhyeon-dev/coinwatch/internal/config"
	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/model"
	"github.com/jhyeon-dev/coinwatch/internal/signalinput"
	"github.com/jhyeon-dev/coinwatch/internal/storage"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Runner executes backtests against the candle store.
type Runner struct {
	storage storage.Storage
	logger  *logger.Logger
}

// NewRunner creates a runner backed by the given storage.
func NewRunner(store storage.Storage, log *logger.Logger) *Runner {
	return &Runner{storage: store, logger: log}
}

// Run executes the backtest declared in cfg.Backtest and saves the run
// summary plus trade ledger. The returned result is the same data that was
// persisted.
func (r *Runner) Run(ctx context.Context, cfg *config.Config, showProgress bool) (*engine.Result, error) {
	bc := cfg.Backtest
	if bc == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "no backtest section configured")
	}

	exchange, err := types.ParseExchange(bc.Exchange)
	if err != nil {
		return nil, err
	}
	timeframe, err := types.ParseTimeFrame(bc.Timeframe)
	if err != nil {
		return nil, err
	}

	candles, err := r.storage.GetCandlesInRange(ctx, exchange, bc.Symbol, timeframe, bc.StartTime, bc.EndTime)
	if err != nil {
		return nil, err
	}
	if len(candles) < 2 {
		return nil, errors.Newf(errors.ErrCodeSimulationEmptyRange,
			"need at least 2 candles between %s and %s, got %d", bc.StartTime, bc.EndTime, len(candles))
	}
	if err := types.ValidateAscending(candles); err != nil {
		return nil, err
	}

	inputs, err := buildInputs(cfg)
	if err != nil {
		return nil, err
	}

	maxRequired := 0
	for _, input := range inputs {
		if input.RequiredCandles() > maxRequired {
			maxRequired = input.RequiredCandles()
		}
	}
	if len(candles) < maxRequired {
		return nil, errors.NewInsufficientDataError(maxRequired, len(candles))
	}

	series := make(map[string][]optional.Option[float64], len(inputs))
	for _, input := range inputs {
		values, err := input.Series(candles)
		if err != nil {
			return nil, err
		}
		series[input.Name()] = values
	}

	mdl, err := resolveModel(cfg.Models, bc.Model)
	if err != nil {
		return nil, err
	}

	settings := engine.Settings{
		Exchange:         exchange,
		Symbol:           bc.Symbol,
		Timeframe:        timeframe,
		ModelName:        mdl.Name(),
		InitialCapital:   bc.InitialCapitalOrDefault(),
		EntrySizePercent: bc.EntrySizePercentOrDefault(),
		SlippageBps:      bc.Costs.SlippageBpsOrDefault(),
		FeeBps:           engine.ResolveFeeBps(exchange, bc.Costs.FeeBpsOverrides),
		MaxEntries:       bc.Risk.MaxEntriesOrDefault(),
		CooldownBars:     bc.Risk.CooldownBarsOrDefault(),
		ShowProgress:     showProgress,
	}

	eng, err := engine.NewEngine(settings, r.logger)
	if err != nil {
		return nil, err
	}

	r.logger.Info("starting backtest",
		zap.String("exchange", string(exchange)),
		zap.String("symbol", bc.Symbol),
		zap.String("model", mdl.Name()),
		zap.Int("candles", len(candles)),
	)

	result, err := eng.Execute(ctx, candles, series, mdl)
	if err != nil {
		return nil, err
	}

	if err := r.storage.SaveBacktestResults(ctx, result.Run, result.Trades); err != nil {
		return nil, err
	}

	return result, nil
}

func buildInputs(cfg *config.Config) ([]signalinput.Input, error) {
	if len(cfg.Inputs) > 0 {
		return signalinput.BuildInputs(cfg.Inputs)
	}

	return signalinput.BuildDefaultInputs()
}

// resolveModel builds the configured model by name. When the name matches no
// config entry the built-in default is accepted if its name matches, so runs
// work without a models section.
func resolveModel(configs []config.ModelConfig, name string) (model.TradingModel, error) {
	for _, mc := range configs {
		if mc.Name == name {
			return model.Build(mc)
		}
	}

	fallback := model.BuildDefault()
	if fallback.Name() == name {
		return fallback, nil
	}

	return nil, errors.Newf(errors.ErrCodeModelNotFound, "model %q is not defined", name)
}
