package engine

import "github.com/jhyeon-dev/coinwatch/internal/types"

// Taker fee defaults per exchange, in basis points.
const (
	DefaultUpbitFeeBps   = 5.0
	DefaultBinanceFeeBps = 10.0
)

// ResolveFeeBps returns the fee for one exchange, preferring a configured
// override over the built-in default. Unknown exchanges fall back to the
// Binance default.
func ResolveFeeBps(exchange types.Exchange, overrides map[string]float64) float64 {
	if fee, ok := overrides[string(exchange)]; ok {
		return fee
	}

	switch exchange {
	case types.ExchangeUpbit:
		return DefaultUpbitFeeBps
	default:
		return DefaultBinanceFeeBps
	}
}
