package types

import (
	"time"
)

// ExitReason tags why a round-trip trade was closed.
type ExitReason string

const (
	// ExitReasonSignal marks a liquidation requested by the trading model.
	ExitReasonSignal ExitReason = "signal_exit"
	// ExitReasonEndOfRun marks a forced liquidation at the end of a backtest.
	ExitReasonEndOfRun ExitReason = "forced_end_of_run"
)

// Lot is one open entry inside a position. A position holds one lot per fill
// while pyramiding.
type Lot struct {
	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	Quantity   float64   `json:"quantity"`
	FeePaid    float64   `json:"fee_paid"`
}

// Trade is a closed round trip. One Trade is recorded per lot at liquidation;
// each uses its own entry price so PnL is exact per lot. Immutable once
// appended to the run's ledger.
type Trade struct {
	RunID      string     `json:"run_id"`
	Exchange   Exchange   `json:"exchange"`
	Symbol     string     `json:"symbol"`
	EntryTime  time.Time  `json:"entry_time"`
	ExitTime   time.Time  `json:"exit_time"`
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  float64    `json:"exit_price"`
	Quantity   float64    `json:"quantity"`
	GrossPnL   float64    `json:"gross_pnl"`
	NetPnL     float64    `json:"net_pnl"`
	FeePaid    float64    `json:"fee_paid"`
	Reason     ExitReason `json:"reason"`
}

// BacktestRun is the persisted summary of one completed backtest.
// Created once at the end of a run, never mutated afterwards.
type BacktestRun struct {
	RunID          string    `json:"run_id"`
	ModelName      string    `json:"model_name"`
	Exchange       Exchange  `json:"exchange"`
	Symbol         string    `json:"symbol"`
	Timeframe      TimeFrame `json:"timeframe"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	InitialCapital float64   `json:"initial_capital"`
	FinalEquity    float64   `json:"final_equity"`
	TotalReturnPct float64   `json:"total_return_pct"`
	MaxDrawdownPct float64   `json:"max_drawdown_pct"`
	WinRatePct     float64   `json:"win_rate_pct"`
	TradeCount     int       `json:"trade_count"`
	CreatedAt      time.Time `json:"created_at"`
}
