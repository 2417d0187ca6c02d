package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rustyeddy/trendbot/bot"
	"github.com/rustyeddy/trendbot/bybit"
	"github.com/rustyeddy/trendbot/config"
	"github.com/rustyeddy/trendbot/journal"
	"github.com/rustyeddy/trendbot/ledger"
	"github.com/rustyeddy/trendbot/metrics"
	"github.com/rustyeddy/trendbot/strategies"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop until interrupted",
	Long: `Run the search/manage loop against live Bybit market data.

The loop stops cleanly on SIGINT or SIGTERM. An open position is not
persisted; the balance and trade history are.

Examples:
  trendbot run
  trendbot run --config trendbot.yaml --metrics-addr :9100
  TRADING_MODE=long trendbot run --testnet`,
	RunE: runRun,
}

var (
	runMetricsAddr string
	runTestnet     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides METRICS_ADDR)")
	runCmd.Flags().BoolVar(&runTestnet, "testnet", false, "use the Bybit testnet (same as BYBIT_TESTNET=true)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMetricsAddr != "" {
		cfg.Metrics.Addr = runMetricsAddr
	}
	if runTestnet {
		cfg.Exchange.Testnet = true
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, closeJournal, err := buildBot(cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := closeJournal(); err != nil {
			log.Warn("close journal", zap.Error(err))
		}
	}()

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	return b.Run(ctx)
}

// buildBot wires the exchange client, journal, ledger and signal source.
func buildBot(cfg *config.Config, log *zap.Logger) (*bot.Bot, func() error, error) {
	params, err := cfg.Strategy()
	if err != nil {
		return nil, nil, err
	}

	client, err := bybit.NewClient(bybit.Options{
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		Testnet:   cfg.Exchange.Testnet,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("bybit client: %w", err)
	}
	gw := bybit.NewGateway(client, bybit.GatewayOptions{
		MaxRetries: cfg.Exchange.MaxRetries,
		RetryDelay: cfg.Exchange.RetryDelay,
		Logger:     log.Named("bybit"),
	})

	kind, err := journal.ParseKind(cfg.Journal.Type)
	if err != nil {
		return nil, nil, err
	}
	j, err := journal.Open(kind, cfg.Journal.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open journal: %w", err)
	}

	fees, err := feesFromConfig(cfg.Fees)
	if err != nil {
		j.Close()
		return nil, nil, err
	}
	l := ledger.New(ledger.Options{
		Store:          ledger.NewBalanceStore(cfg.Account.BalanceFile),
		Journal:        j,
		Fees:           fees,
		DefaultBalance: decimal.NewFromFloat(cfg.Account.DefaultBalance),
		Logger:         log.Named("ledger"),
	})

	src, err := strategies.New(cfg.Trading.Strategy, params, gw, strategies.Options{
		ScanPause: strategies.DefaultScanPause,
		Logger:    log.Named("signal"),
	})
	if err != nil {
		j.Close()
		return nil, nil, err
	}

	log.Info("starting",
		zap.String("strategy", cfg.Trading.Strategy.String()),
		zap.String("mode", cfg.Trading.Mode.String()),
		zap.Float64("risk_usdt", cfg.Trading.RiskPerTradeUSDT),
		zap.String("category", params.Category),
		zap.String("interval", params.Interval),
		zap.Int("ema_fast", params.EMAFast),
		zap.Int("ema_slow", params.EMASlow),
		zap.Float64("sl_percent", params.SLPercent),
		zap.Float64("tp_percent", params.TPPercent),
		zap.String("journal", cfg.Journal.Path),
		zap.String("base_url", client.BaseURL()),
	)

	b := bot.New(bot.Options{
		Source:   src,
		Prices:   gw,
		Ledger:   l,
		Params:   params,
		Mode:     cfg.Trading.Mode,
		RiskUSDT: decimal.NewFromFloat(cfg.Trading.RiskPerTradeUSDT),
		Policy:   cfg.RiskPolicy(),
		Logger:   log.Named("bot"),
	})
	return b, j.Close, nil
}

func feesFromConfig(fc config.FeeConfig) (ledger.Fees, error) {
	kind, err := ledger.ParseFeeKind(fc.EntryType)
	if err != nil {
		return ledger.Fees{}, err
	}
	return ledger.Fees{
		TakerPercent: decimal.NewFromFloat(fc.TakerPercent),
		MakerPercent: decimal.NewFromFloat(fc.MakerPercent),
		EntryKind:    kind,
	}, nil
}
