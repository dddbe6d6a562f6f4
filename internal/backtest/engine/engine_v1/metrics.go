package engine

import "github.com/jhyeon-dev/coinwatch/internal/types"

// TotalReturnPct is the simple return of the run in percent.
func TotalReturnPct(initialCapital, finalEquity float64) float64 {
	if initialCapital <= 0 {
		return 0
	}

	return (finalEquity - initialCapital) / initialCapital * 100
}

// CalculateMaxDrawdownPct returns the largest peak-to-trough equity decline
// in percent. Points before equity first turns positive are skipped.
func CalculateMaxDrawdownPct(equityCurve []float64) float64 {
	var peak, maxDrawdown float64
	for _, equity := range equityCurve {
		if equity > peak {
			peak = equity
		}
		if peak <= 0 {
			continue
		}

		drawdown := (peak - equity) / peak
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown * 100
}

// WinRatePct is the share of trades with positive net PnL, in percent. A run
// with no trades has a win rate of zero.
func WinRatePct(trades []types.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}

	wins := 0
	for _, trade := range trades {
		if trade.NetPnL > 0 {
			wins++
		}
	}

	return float64(wins) / float64(len(trades)) * 100
}
