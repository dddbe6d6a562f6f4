package live

import (
	"context"

	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/config"
	"github.com/jhyeon-dev/coinwatch/internal/exchange"
	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/notifier"
	"github.com/jhyeon-dev/coinwatch/internal/storage"
	"github.com/jhyeon-dev/coinwatch/internal/strategy"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/pkg/errors"
)

// Runner owns the live watch loop: seed history, subscribe to trade streams,
// and keep evaluating until the context is cancelled.
type Runner struct {
	cfg       *config.Config
	storage   storage.Storage
	exchanges map[types.Exchange]exchange.Exchange
	notifier  notifier.Notifier
	logger    *logger.Logger
}

// NewRunner wires the live loop. The exchanges map holds one connected
// client per venue named in the config.
func NewRunner(cfg *config.Config, store storage.Storage, exchanges map[types.Exchange]exchange.Exchange, notify notifier.Notifier, log *logger.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		storage:   store,
		exchanges: exchanges,
		notifier:  notify,
		logger:    log,
	}
}

// Run blocks until ctx is cancelled. Historical candles are fetched first so
// indicators have warm-up data before the first live trade arrives.
func (r *Runner) Run(ctx context.Context) error {
	rules, err := strategy.BuildRules(r.cfg)
	if err != nil {
		return err
	}

	analyzer, err := NewAnalyzer(rules, r.storage, r.notifier, r.logger)
	if err != nil {
		return err
	}
	candleSync := NewCandleSync(r.storage, r.logger)

	if err := r.SeedHistory(ctx); err != nil {
		return err
	}

	handler := func(trade types.MarketTrade) {
		if err := candleSync.OnTrade(ctx, trade); err != nil {
			r.logger.Error("failed to persist candle",
				zap.String("symbol", trade.Symbol),
				zap.Error(err),
			)
		}

		analyzer.OnTrade(ctx, trade)
	}

	stops, dones, err := r.subscribe(handler)
	if err != nil {
		for _, stop := range stops {
			stop()
		}
		return err
	}
	if len(dones) == 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "no coins to watch")
	}

	r.logger.Info("live watch running", zap.Int("streams", len(dones)))

	<-ctx.Done()

	for _, stop := range stops {
		stop()
	}
	for _, done := range dones {
		<-done
	}

	// The in-flight minute would otherwise be lost.
	if err := candleSync.Flush(context.WithoutCancel(ctx)); err != nil {
		r.logger.Error("failed to flush forming candles", zap.Error(err))
	}

	r.logger.Info("live watch stopped")

	return nil
}

// SeedHistory fetches recent candles for every configured coin and upserts
// them. Safe to re-run; the candle key makes it idempotent.
func (r *Runner) SeedHistory(ctx context.Context) error {
	limit := r.cfg.General.HistoricalCandles

	for _, coin := range r.cfg.Coins {
		ex, err := types.ParseExchange(coin.Exchange)
		if err != nil {
			return err
		}

		client, ok := r.exchanges[ex]
		if !ok {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "no client for exchange %q", coin.Exchange)
		}

		for _, tf := range coin.Timeframes {
			timeframe, err := types.ParseTimeFrame(tf)
			if err != nil {
				return err
			}

			candles, err := client.FetchCandles(ctx, coin.Symbol, timeframe, limit)
			if err != nil {
				return err
			}
			if err := r.storage.UpsertCandles(ctx, candles); err != nil {
				return err
			}

			r.logger.Info("seeded history",
				zap.String("exchange", coin.Exchange),
				zap.String("symbol", coin.Symbol),
				zap.String("timeframe", tf),
				zap.Int("candles", len(candles)),
			)
		}
	}

	return nil
}

func (r *Runner) subscribe(handler exchange.TradeHandler) ([]func(), []<-chan struct{}, error) {
	perExchange := make(map[types.Exchange][]string)
	for _, coin := range r.cfg.Coins {
		ex, err := types.ParseExchange(coin.Exchange)
		if err != nil {
			return nil, nil, err
		}

		if !containsString(perExchange[ex], coin.Symbol) {
			perExchange[ex] = append(perExchange[ex], coin.Symbol)
		}
	}

	var (
		stops []func()
		dones []<-chan struct{}
	)

	for ex, symbols := range perExchange {
		client, ok := r.exchanges[ex]
		if !ok {
			return stops, nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "no client for exchange %q", ex)
		}

		errHandler := func(err error) {
			r.logger.Error("trade stream error",
				zap.String("exchange", string(ex)),
				zap.Error(err),
			)
		}

		stop, done, err := client.SubscribeTrades(symbols, handler, errHandler)
		if err != nil {
			return stops, nil, err
		}

		stops = append(stops, stop)
		dones = append(dones, done)
	}

	return stops, dones, nil
}

func containsString(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}

	return false
}
