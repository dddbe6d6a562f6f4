package types

// SignalAction is the directional decision a trading model emits per bar.
type SignalAction string

const (
	// SignalActionBuy tells the engine to open or extend a long position.
	SignalActionBuy SignalAction = "buy"
	// SignalActionSell tells the engine to fully liquidate the position.
	SignalActionSell SignalAction = "sell"
	// SignalActionHold tells the engine to take no action.
	SignalActionHold SignalAction = "hold"
)

// EvaluationResult is the outcome of evaluating one alert rule against an
// indicator value. Created fresh per evaluation, never retained.
type EvaluationResult struct {
	Triggered      bool    `json:"triggered"`
	RuleName       string  `json:"rule_name"`
	IndicatorValue float64 `json:"indicator_value"`
	Message        string  `json:"message"`
}
