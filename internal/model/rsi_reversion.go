package model

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// rsiReversion buys oversold and sells overbought: RSI below the oversold
// band emits buy, above the overbought band emits sell, anything in between
// holds.
type rsiReversion struct {
	name       string
	input      string
	oversold   float64
	overbought float64
	required   []string
}

func newRSIReversion(name, input string, oversold, overbought float64) *rsiReversion {
	return &rsiReversion{
		name:       name,
		input:      input,
		oversold:   oversold,
		overbought: overbought,
		required:   []string{input},
	}
}

func (m *rsiReversion) Name() string {
	return m.name
}

func (m *rsiReversion) RequiredInputs() []string {
	return m.required
}

func (m *rsiReversion) Evaluate(ctx Context) (types.SignalAction, error) {
	rsi, ok := ctx.Features[m.input]
	if !ok {
		return types.SignalActionHold, nil
	}

	switch {
	case rsi < m.oversold:
		return types.SignalActionBuy, nil
	case rsi > m.overbought:
		return types.SignalActionSell, nil
	default:
		return types.SignalActionHold, nil
	}
}
