// Package notifier delivers fired alerts to the user.
package notifier

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// Notifier receives triggered alert evaluations.
type Notifier interface {
	// Notify delivers one fired alert. Implementations must not block the
	// caller on slow delivery.
	Notify(exchange types.Exchange, symbol string, price float64, result types.EvaluationResult)
}
