// Package engine runs a long-only backtest over a fixed candle window.
// Signals are evaluated on each bar's close and filled at the next bar's
// open, so a fill can never use information from its own bar.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/model"
	"github.com/jhyeon-dev/coinwatch/internal/strategy"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Settings parameterizes one backtest run. All monetary fields are in quote
// currency; cost fields are in basis points.
type Settings struct {
	Exchange  types.Exchange
	Symbol    string
	Timeframe types.TimeFrame
	ModelName string

	InitialCapital   float64
	EntrySizePercent float64
	SlippageBps      float64
	FeeBps           float64

	// MaxEntries caps open lots per position. Zero means unlimited.
	MaxEntries int
	// CooldownBars is the minimum fill-bar spacing between entries.
	CooldownBars int

	ShowProgress bool
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	if s.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "initial capital must be positive, got %f", s.InitialCapital)
	}
	if s.EntrySizePercent <= 0 || s.EntrySizePercent > 100 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "entry size percent must be in (0, 100], got %f", s.EntrySizePercent)
	}
	if s.SlippageBps < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "slippage bps must be non-negative, got %f", s.SlippageBps)
	}
	if s.FeeBps < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "fee bps must be non-negative, got %f", s.FeeBps)
	}
	if s.MaxEntries < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "max entries must be non-negative, got %d", s.MaxEntries)
	}
	if s.CooldownBars < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "cooldown bars must be non-negative, got %d", s.CooldownBars)
	}

	return nil
}

// Result bundles everything one run produced. Trades are ordered by exit
// time; EquityCurve has one entry per candle, the last being the
// post-liquidation cash balance.
type Result struct {
	Run         types.BacktestRun
	Trades      []types.Trade
	EquityCurve []float64
}

// Engine holds the mutable state of one run. Not safe for reuse; build a
// fresh Engine per Execute call.
type Engine struct {
	settings Settings
	logger   *logger.Logger

	runID       string
	cash        float64
	openLots    []types.Lot
	trades      []types.Trade
	equityCurve []float64
	gate        *strategy.BarGate
}

// NewEngine creates an engine for one run.
func NewEngine(settings Settings, log *logger.Logger) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		settings: settings,
		logger:   log,
		runID:    uuid.NewString(),
		cash:     settings.InitialCapital,
		gate:     strategy.NewBarGate(settings.CooldownBars),
	}, nil
}

// Execute walks the candles once and returns the completed run. The series
// map holds one aligned input series per name, each the same length as
// candles. Cancellation via ctx aborts between bars and nothing is returned.
func (e *Engine) Execute(ctx context.Context, candles []types.Candle, series map[string][]optional.Option[float64], mdl model.TradingModel) (*Result, error) {
	if len(candles) < 2 {
		return nil, errors.Newf(errors.ErrCodeSimulationEmptyRange, "need at least 2 candles, got %d", len(candles))
	}

	for _, name := range mdl.RequiredInputs() {
		values, ok := series[name]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeInputNotFound, "model %q requires input %q which was not provided", mdl.Name(), name)
		}
		if len(values) != len(candles) {
			return nil, errors.Newf(errors.ErrCodeSimulationState, "input %q has %d values for %d candles", name, len(values), len(candles))
		}
	}

	var bar *progressbar.ProgressBar
	if e.settings.ShowProgress {
		bar = progressbar.Default(int64(len(candles) - 1))
	}

	// The last bar never produces a fill; it only prices the forced close.
	for i := 0; i < len(candles)-1; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(errors.ErrCodeSimulationAborted, "backtest cancelled", ctx.Err())
		default:
		}

		featureCtx, ok := collectFeatures(series, mdl.RequiredInputs(), i)
		if ok {
			action, err := mdl.Evaluate(featureCtx)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeSimulationState, err, "model %q at bar %d", mdl.Name(), i)
			}

			switch action {
			case types.SignalActionBuy:
				e.tryBuy(i, candles)
			case types.SignalActionSell:
				e.trySell(i, candles)
			case types.SignalActionHold:
			}
		}

		e.equityCurve = append(e.equityCurve, e.equityAt(candles[i].Close))
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	e.forceClose(candles)
	e.equityCurve = append(e.equityCurve, e.cash)

	run := e.buildRun(candles)
	e.logger.Info("backtest finished",
		zap.String("run_id", run.RunID),
		zap.String("model", run.ModelName),
		zap.Int("trades", run.TradeCount),
		zap.Float64("final_equity", run.FinalEquity),
	)

	return &Result{Run: run, Trades: e.trades, EquityCurve: e.equityCurve}, nil
}

// collectFeatures gathers the model's inputs at one bar. Any input still in
// its warm-up window makes the whole bar unevaluable.
func collectFeatures(series map[string][]optional.Option[float64], required []string, bar int) (model.Context, bool) {
	features := make(map[string]float64, len(required))
	for _, name := range required {
		value, err := series[name][bar].Take()
		if err != nil {
			return model.Context{}, false
		}
		features[name] = value
	}

	return model.Context{Features: features}, true
}

// tryBuy opens a new lot filled at the next bar's open, skewed against us by
// slippage. Sizing targets a fixed percentage of current equity but never
// spends more cash than the fee-adjusted balance allows.
func (e *Engine) tryBuy(i int, candles []types.Candle) {
	if e.settings.MaxEntries > 0 && len(e.openLots) >= e.settings.MaxEntries {
		return
	}

	fillBar := i + 1
	if !e.gate.Allow(fillBar) {
		return
	}

	fill := applySlippage(candles[fillBar].Open, e.settings.SlippageBps, true)
	if fill <= 0 {
		return
	}

	feeMultiplier := 1 + e.settings.FeeBps/10_000
	equity := e.equityAt(candles[i].Close)
	target := equity * e.settings.EntrySizePercent / 100
	affordable := e.cash / feeMultiplier

	notional := target
	if affordable < notional {
		notional = affordable
	}
	if notional <= 0 {
		return
	}

	fee := notional * e.settings.FeeBps / 10_000
	quantity := notional / fill
	e.cash -= notional + fee

	e.openLots = append(e.openLots, types.Lot{
		EntryTime:  candles[fillBar].OpenTime,
		EntryPrice: fill,
		Quantity:   quantity,
		FeePaid:    fee,
	})
	e.gate.Record(fillBar)

	e.logger.Debug("opened lot",
		zap.String("run_id", e.runID),
		zap.Int("fill_bar", fillBar),
		zap.Float64("fill", fill),
		zap.Float64("quantity", quantity),
	)
}

// trySell liquidates every open lot at the next bar's open.
func (e *Engine) trySell(i int, candles []types.Candle) {
	if len(e.openLots) == 0 {
		return
	}

	fill := applySlippage(candles[i+1].Open, e.settings.SlippageBps, false)
	e.closeAllLots(fill, candles[i+1].OpenTime, types.ExitReasonSignal)
}

// forceClose liquidates any lots still open at the end of the window, priced
// at the last candle's close with no slippage applied.
func (e *Engine) forceClose(candles []types.Candle) {
	if len(e.openLots) == 0 {
		return
	}

	last := candles[len(candles)-1]
	e.closeAllLots(last.Close, last.OpenTime, types.ExitReasonEndOfRun)
}

// closeAllLots records one trade per open lot so each trade carries its own
// entry price and fees. PnL is computed in decimal to keep the ledger exact.
func (e *Engine) closeAllLots(fill float64, exitTime time.Time, reason types.ExitReason) {
	fillDec := decimal.NewFromFloat(fill)

	for _, lot := range e.openLots {
		exitNotional := fill * lot.Quantity
		exitFee := exitNotional * e.settings.FeeBps / 10_000

		grossDec := fillDec.Sub(decimal.NewFromFloat(lot.EntryPrice)).Mul(decimal.NewFromFloat(lot.Quantity))
		netDec := grossDec.Sub(decimal.NewFromFloat(lot.FeePaid)).Sub(decimal.NewFromFloat(exitFee))

		e.cash += exitNotional - exitFee
		e.trades = append(e.trades, types.Trade{
			RunID:      e.runID,
			Exchange:   e.settings.Exchange,
			Symbol:     e.settings.Symbol,
			EntryTime:  lot.EntryTime,
			ExitTime:   exitTime,
			EntryPrice: lot.EntryPrice,
			ExitPrice:  fill,
			Quantity:   lot.Quantity,
			GrossPnL:   grossDec.InexactFloat64(),
			NetPnL:     netDec.InexactFloat64(),
			FeePaid:    lot.FeePaid + exitFee,
			Reason:     reason,
		})
	}

	e.openLots = e.openLots[:0]
}

// equityAt marks all open lots at the given price and adds cash.
func (e *Engine) equityAt(price float64) float64 {
	equity := e.cash
	for _, lot := range e.openLots {
		equity += lot.Quantity * price
	}

	return equity
}

func (e *Engine) buildRun(candles []types.Candle) types.BacktestRun {
	finalEquity := e.equityCurve[len(e.equityCurve)-1]

	return types.BacktestRun{
		RunID:          e.runID,
		ModelName:      e.settings.ModelName,
		Exchange:       e.settings.Exchange,
		Symbol:         e.settings.Symbol,
		Timeframe:      e.settings.Timeframe,
		StartTime:      candles[0].OpenTime,
		EndTime:        candles[len(candles)-1].OpenTime,
		InitialCapital: e.settings.InitialCapital,
		FinalEquity:    finalEquity,
		TotalReturnPct: TotalReturnPct(e.settings.InitialCapital, finalEquity),
		MaxDrawdownPct: CalculateMaxDrawdownPct(e.equityCurve),
		WinRatePct:     WinRatePct(e.trades),
		TradeCount:     len(e.trades),
		CreatedAt:      time.Now().UTC(),
	}
}

// applySlippage skews a fill price against the trader: up for entries, down
// for exits.
func applySlippage(price, bps float64, entry bool) float64 {
	fraction := bps / 10_000
	if entry {
		return price * (1 + fraction)
	}

	return price * (1 - fraction)
}
