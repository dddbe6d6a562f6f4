package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jhyeon-dev/coinwatch/internal/api"
	"github.com/jhyeon-dev/coinwatch/internal/config"
	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/storage"
	"github.com/jhyeon-dev/coinwatch/internal/types"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle    = lipgloss.NewStyle().Faint(true)
	positiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	negativeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func printRunSummary(run types.BacktestRun) {
	fmt.Println(headerStyle.Render("Backtest " + run.RunID))
	fmt.Printf("%s %s %s %s, %s → %s\n",
		labelStyle.Render("market:"), run.Exchange, run.Symbol, run.Timeframe,
		run.StartTime.Format(time.RFC3339), run.EndTime.Format(time.RFC3339))
	fmt.Printf("%s %s\n", labelStyle.Render("model:"), run.ModelName)
	fmt.Printf("%s %.2f → %.2f (%s)\n",
		labelStyle.Render("equity:"), run.InitialCapital, run.FinalEquity, renderPct(run.TotalReturnPct))
	fmt.Printf("%s drawdown %.2f%%, win rate %.2f%%, %d trades\n",
		labelStyle.Render("stats: "), run.MaxDrawdownPct, run.WinRatePct, run.TradeCount)
}

func renderPct(pct float64) string {
	text := fmt.Sprintf("%+.2f%%", pct)
	if pct >= 0 {
		return positiveStyle.Render(text)
	}

	return negativeStyle.Render(text)
}

func reportRuns(ctx context.Context, store storage.Storage, limit int) error {
	runs, err := store.ListBacktestRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no backtest runs stored yet")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s  %-20s  %-18s  %10s  %8s  %6s",
		"RUN ID", "MODEL", "MARKET", "RETURN", "WIN", "TRADES")))

	for _, run := range runs {
		market := fmt.Sprintf("%s %s %s", run.Exchange, run.Symbol, run.Timeframe)
		fmt.Printf("%-36s  %-20s  %-18s  %10s  %7.2f%%  %6d\n",
			run.RunID, run.ModelName, market, renderPct(run.TotalReturnPct), run.WinRatePct, run.TradeCount)
	}

	return nil
}

func reportRun(ctx context.Context, store storage.Storage, runID string, tradesLimit int) error {
	run, err := store.GetBacktestRun(ctx, runID)
	if err != nil {
		return err
	}
	if run.IsNone() {
		return fmt.Errorf("run %q not found", runID)
	}

	printRunSummary(run.Unwrap())

	trades, err := store.ListBacktestTrades(ctx, runID, tradesLimit)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		fmt.Println("\nno trades recorded")
		return nil
	}

	fmt.Println()
	fmt.Println(headerStyle.Render(fmt.Sprintf("%-20s  %-20s  %10s  %10s  %12s  %10s  %s",
		"ENTRY", "EXIT", "ENTRY PX", "EXIT PX", "QTY", "NET PNL", "REASON")))

	for _, trade := range trades {
		fmt.Printf("%-20s  %-20s  %10.4f  %10.4f  %12.6f  %10s  %s\n",
			trade.EntryTime.Format("2006-01-02 15:04"),
			trade.ExitTime.Format("2006-01-02 15:04"),
			trade.EntryPrice, trade.ExitPrice, trade.Quantity,
			renderPnL(trade.NetPnL), trade.Reason)
	}

	return nil
}

func renderPnL(pnl float64) string {
	text := fmt.Sprintf("%+.4f", pnl)
	if pnl >= 0 {
		return positiveStyle.Render(text)
	}

	return negativeStyle.Render(text)
}

// serveAPI runs the report server until interrupted, then drains in-flight
// requests.
func serveAPI(ctx context.Context, cfg *config.Config, store storage.Storage, log *logger.Logger) error {
	server := api.NewServer(cfg.Server.ListenAddr, store, log)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errC := make(chan error, 1)
	go func() { errC <- server.Start() }()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	return <-errC
}
