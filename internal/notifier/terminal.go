package notifier

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

// Style definitions.
var (
	alertBadgeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	marketStyle     = lipgloss.NewStyle().Bold(true)
	valueStyle      = lipgloss.NewStyle().Faint(true)
)

// TerminalNotifier prints fired alerts to a terminal and mirrors them into
// the structured log.
type TerminalNotifier struct {
	out    io.Writer
	logger *logger.Logger
}

var _ Notifier = (*TerminalNotifier)(nil)

// NewTerminalNotifier creates a notifier writing to stdout.
func NewTerminalNotifier(log *logger.Logger) *TerminalNotifier {
	return &TerminalNotifier{out: os.Stdout, logger: log}
}

// Notify implements Notifier.
func (n *TerminalNotifier) Notify(exchange types.Exchange, symbol string, price float64, result types.EvaluationResult) {
	fmt.Fprintf(n.out, "%s %s %s\n",
		alertBadgeStyle.Render("ALERT"),
		marketStyle.Render(fmt.Sprintf("%s %s", exchange, symbol)),
		valueStyle.Render(fmt.Sprintf("price=%.4f value=%.4f %s", price, result.IndicatorValue, result.Message)))

	n.logger.Warn("alert fired",
		zap.String("exchange", string(exchange)),
		zap.String("symbol", symbol),
		zap.String("alert", result.RuleName),
		zap.Float64("indicator_value", result.IndicatorValue),
		zap.Float64("price", price))
}
