// coinwatch is the command line entry point: live alert watching, backtests,
// report browsing, candle fetching and the report API server.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/jhyeon-dev/coinwatch/internal/backtest/runner"
	"github.com/jhyeon-dev/coinwatch/internal/config"
	"github.com/jhyeon-dev/coinwatch/internal/exchange"
	"github.com/jhyeon-dev/coinwatch/internal/live"
	"github.com/jhyeon-dev/coinwatch/internal/logger"
	"github.com/jhyeon-dev/coinwatch/internal/notifier"
	"github.com/jhyeon-dev/coinwatch/internal/storage"
	"github.com/jhyeon-dev/coinwatch/internal/types"
	"github.com/jhyeon-dev/coinwatch/internal/version"
)

const databaseFile = "coinwatch.duckdb"

func main() {
	cmd := &cli.Command{
		Name:    "coinwatch",
		Usage:   "Crypto price watcher: live indicator alerts and signal backtests",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file",
				Value:   "config.yaml",
			},
		},
		Commands: []*cli.Command{
			liveCommand(),
			backtestCommand(),
			fetchCommand(),
			serveCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig reads and validates the config file named by the root flag.
func loadConfig(cmd *cli.Command) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLogger(cfg.General.LogLevel, cfg.General.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	return cfg, log, nil
}

func openStorage(cfg *config.Config, log *logger.Logger) (storage.Storage, error) {
	return storage.NewDuckDBStorage(filepath.Join(cfg.General.DataDir, databaseFile), log)
}

func buildExchanges(cfg *config.Config, log *logger.Logger) map[types.Exchange]exchange.Exchange {
	clients := make(map[types.Exchange]exchange.Exchange)

	for _, ex := range cfg.Exchanges {
		if !ex.IsEnabled() {
			continue
		}

		switch ex.Name {
		case string(types.ExchangeBinance):
			clients[types.ExchangeBinance] = exchange.NewBinanceExchange(log)
		case string(types.ExchangeUpbit):
			clients[types.ExchangeUpbit] = exchange.NewUpbitExchange(log,
				exchange.WithUpbitURLs(ex.BaseURL, ex.WsURL))
		}
	}

	// Live watching works out of the box without an exchanges section.
	if len(clients) == 0 {
		clients[types.ExchangeBinance] = exchange.NewBinanceExchange(log)
	}

	return clients
}

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "Watch configured markets and fire indicator alerts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			store, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			watcher := live.NewRunner(cfg, store, buildExchanges(cfg, log), notifier.NewTerminalNotifier(log), log)

			return watcher.Run(ctx)
		},
	}
}

func backtestCommand() *cli.Command {
	return &cli.Command{
		Name:  "backtest",
		Usage: "Run and inspect signal backtests",
		Commands: []*cli.Command{
			backtestRunCommand(),
			backtestReportCommand(),
		},
	}
}

func backtestRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Execute the backtest declared in the config file",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "progress",
				Usage: "Show a progress bar while simulating",
				Value: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			store, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := runner.NewRunner(store, log).Run(ctx, cfg, cmd.Bool("progress"))
			if err != nil {
				return err
			}

			printRunSummary(result.Run)

			return nil
		},
	}
}

func backtestReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "Show stored backtest runs, or one run with its trades",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run to show in detail; omit to list recent runs",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum runs to list",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "trades-limit",
				Usage: "Maximum trades to show for a run",
				Value: 50,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			store, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			if runID := cmd.String("run-id"); runID != "" {
				return reportRun(ctx, store, runID, int(cmd.Int("trades-limit")))
			}

			return reportRuns(ctx, store, int(cmd.Int("limit")))
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch historical candles for the configured coins into storage",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			store, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			watcher := live.NewRunner(cfg, store, buildExchanges(cfg, log), notifier.NewTerminalNotifier(log), log)

			return watcher.SeedHistory(ctx)
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve stored backtest results over HTTP",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			store, err := openStorage(cfg, log)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			return serveAPI(ctx, cfg, store, log)
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the config file",
		Action: func(_ context.Context, _ *cli.Command) error {
			schemaJSON, err := (&config.Config{}).GenerateSchemaJSON()
			if err != nil {
				return err
			}

			fmt.Println(schemaJSON)

			return nil
		},
	}
}
