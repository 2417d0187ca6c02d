package cmd

import (
	"fmt"
	"os"

	"github.com/rustyeddy/trendbot/config"
	"github.com/rustyeddy/trendbot/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "trendbot",
	Short: "EMA trend-following bot that paper trades Bybit markets",
	Long: `Trendbot scans Bybit v5 market data for fast/slow EMA crossovers and
simulates one position at a time against a locally tracked balance.

Fees, PnL and the trade history are accounted locally. No orders are sent
to the exchange.

Configuration is read from defaults, an optional YAML file (--config),
.env files and finally the process environment.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	cfgPath   string
	envFiles  []string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to YAML config file (optional)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files to load (missing files are skipped)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: console|json (overrides LOG_FORMAT)")
}

// loadConfig resolves the configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath, envFiles...)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}
