package cmd

import (
	"fmt"

	"github.com/rustyeddy/trendbot/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate, validate or show configuration",
	Long: `Manage trendbot configuration.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate a configuration file
  show     - Print the effective configuration (file + .env + environment)

Examples:
  trendbot config init -o trendbot.yaml
  trendbot config validate -f trendbot.yaml
  trendbot config show --config trendbot.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE:  runConfigValidate,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "trendbot.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  trendbot run --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	p, err := cfg.Strategy()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Strategy: %s EMA %d/%d on %s %s candles\n", cfg.Trading.Strategy, p.EMAFast, p.EMASlow, p.Category, p.Interval)
	fmt.Fprintf(out, "  Risk: %.2f USDT per trade, SL %.2f%%, TP %.2f%%, mode %s\n",
		cfg.Trading.RiskPerTradeUSDT, p.SLPercent, p.TPPercent, cfg.Trading.Mode)
	fmt.Fprintf(out, "  Journal: %s (%s)\n", cfg.Journal.Type, cfg.Journal.Path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// never echo credentials
	if cfg.Exchange.APIKey != "" {
		cfg.Exchange.APIKey = "****"
	}
	if cfg.Exchange.APISecret != "" {
		cfg.Exchange.APISecret = "****"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
