package model

import (
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// smaCross follows the relation of a short and a long moving average: short
// above long emits buy, short below long emits sell, equal holds.
type smaCross struct {
	name       string
	shortInput string
	longInput  string
	required   []string
}

func newSMACross(name, shortInput, longInput string) *smaCross {
	return &smaCross{
		name:       name,
		shortInput: shortInput,
		longInput:  longInput,
		required:   []string{shortInput, longInput},
	}
}

func (m *smaCross) Name() string {
	return m.name
}

func (m *smaCross) RequiredInputs() []string {
	return m.required
}

func (m *smaCross) Evaluate(ctx Context) (types.SignalAction, error) {
	short, okShort := ctx.Features[m.shortInput]
	long, okLong := ctx.Features[m.longInput]

	if !okShort || !okLong {
		return types.SignalActionHold, nil
	}

	switch {
	case short > long:
		return types.SignalActionBuy, nil
	case short < long:
		return types.SignalActionSell, nil
	default:
		return types.SignalActionHold, nil
	}
}
