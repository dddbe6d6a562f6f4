package live

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/indicator"
	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/notifier"
	"github.com/jhyeon-dev/coinwatch/internal/storage"
	"github.com/jhyeon-dev/coinwatch/internal/strategy"
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// ruleRuntime pairs a rule with its built indicator so the indicator is
// constructed once, not per tick.
type ruleRuntime struct {
	rule      strategy.AlertRule
	indicator indicator.Indicator
}

// Analyzer evaluates alert rules on every incoming trade. One failing rule
// never blocks the others; its error is logged and evaluation moves on.
type Analyzer struct {
	rules    []ruleRuntime
	storage  storage.Storage
	notifier notifier.Notifier
	logger   *logger.Logger
	now      func() time.Time
}

// NewAnalyzer builds the per-rule indicators up front and returns an
// analyzer ready to receive trades.
func NewAnalyzer(rules []strategy.AlertRule, store storage.Storage, notify notifier.Notifier, log *logger.Logger) (*Analyzer, error) {
	runtimes := make([]ruleRuntime, 0, len(rules))
	for _, rule := range rules {
		ind, err := indicator.Build(rule.Indicator, rule.Params)
		if err != nil {
			return nil, err
		}

		runtimes = append(runtimes, ruleRuntime{rule: rule, indicator: ind})
	}

	return &Analyzer{
		rules:    runtimes,
		storage:  store,
		notifier: notify,
		logger:   log,
		now:      time.Now,
	}, nil
}

// OnTrade evaluates every rule watching the trade's market.
func (a *Analyzer) OnTrade(ctx context.Context, trade types.MarketTrade) {
	for _, rt := range a.rules {
		if rt.rule.Exchange != trade.Exchange || rt.rule.Symbol != trade.Symbol {
			continue
		}

		if err := a.evaluateRule(ctx, rt, trade); err != nil {
			a.logger.Error("rule evaluation failed",
				zap.String("rule", rt.rule.Name),
				zap.Error(err),
			)
		}
	}
}

func (a *Analyzer) evaluateRule(ctx context.Context, rt ruleRuntime, trade types.MarketTrade) error {
	// One extra candle so the condition can see the previous value for
	// cross detection.
	limit := rt.indicator.RequiredCandles() + 1

	recent, err := a.storage.GetRecentCandles(ctx, rt.rule.Exchange, rt.rule.Symbol, types.TimeFrameMin1, limit)
	if err != nil {
		return err
	}
	if len(recent) < rt.indicator.RequiredCandles() {
		a.logger.Debug("not enough candles yet",
			zap.String("rule", rt.rule.Name),
			zap.Int("have", len(recent)),
			zap.Int("need", rt.indicator.RequiredCandles()),
		)
		return nil
	}

	candles := types.ReverseCandles(recent)

	values, err := rt.indicator.Calculate(candles)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	current := values[len(values)-1]
	previous := optional.None[float64]()
	if len(values) >= 2 {
		previous = optional.Some(values[len(values)-2])
	}

	result := strategy.Evaluate(rt.rule, current, previous)
	if !result.Triggered {
		return nil
	}

	now := a.now()

	allowed, err := strategy.ShouldAlert(ctx, a.storage, rt.rule, now)
	if err != nil {
		return err
	}
	if !allowed {
		a.logger.Debug("alert suppressed by cooldown", zap.String("rule", rt.rule.Name))
		return nil
	}

	a.notifier.Notify(rt.rule.Exchange, rt.rule.Symbol, trade.Price, result)

	return a.storage.LogAlert(ctx, rt.rule.Name, rt.rule.Exchange, rt.rule.Symbol, now, result.IndicatorValue, result.Message)
}
