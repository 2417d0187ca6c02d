package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rustyeddy/trendbot/journal"
	"github.com/rustyeddy/trendbot/ledger"
	"github.com/rustyeddy/trendbot/market"
	"github.com/rustyeddy/trendbot/risk"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration.
type Config struct {
	Account  AccountConfig  `yaml:"account"`
	Trading  TradingConfig  `yaml:"trading"`
	Fees     FeeConfig      `yaml:"fees"`
	Exchange ExchangeConfig `yaml:"exchange"`
	Journal  JournalConfig  `yaml:"journal"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AccountConfig describes the simulated cash account.
type AccountConfig struct {
	DefaultBalance float64 `yaml:"default_balance"`
	BalanceFile    string  `yaml:"balance_file"`
}

// TradingConfig selects the strategy and how much to risk per trade.
type TradingConfig struct {
	Strategy         StrategyType `yaml:"strategy"`
	Mode             TradingMode  `yaml:"mode"`
	RiskPerTradeUSDT float64      `yaml:"risk_per_trade_usdt"`
	// Pre-trade limits; zero disables.
	MaxRiskPercent float64 `yaml:"max_risk_percent,omitempty"`
	MinRR          float64 `yaml:"min_rr,omitempty"`
	// Params overrides the strategy defaults field by field. Zero values
	// keep the default.
	Params StrategyParams `yaml:"params,omitempty"`
}

// FeeConfig holds signed exchange fee percentages. Negative is a rebate.
type FeeConfig struct {
	TakerPercent float64 `yaml:"taker_percent"`
	MakerPercent float64 `yaml:"maker_percent"`
	EntryType    string  `yaml:"entry_type"`
}

type ExchangeConfig struct {
	Testnet    bool          `yaml:"testnet"`
	APIKey     string        `yaml:"api_key,omitempty"`
	APISecret  string        `yaml:"api_secret,omitempty"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type JournalConfig struct {
	Type string `yaml:"type"` // xlsx, csv or sqlite
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

type MetricsConfig struct {
	// Addr enables the /metrics endpoint when set, e.g. ":9100".
	Addr string `yaml:"addr,omitempty"`
}

// Default returns the configuration the bot runs with when nothing is set.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			DefaultBalance: 10000,
			BalanceFile:    "balance.txt",
		},
		Trading: TradingConfig{
			Strategy:         StrategyEMA,
			Mode:             Both,
			RiskPerTradeUSDT: 1.0,
		},
		Fees: FeeConfig{
			TakerPercent: 0.055,
			MakerPercent: -0.025,
			EntryType:    "TAKER",
		},
		Exchange: ExchangeConfig{
			MaxRetries: 3,
			RetryDelay: time.Second,
		},
		Journal: JournalConfig{
			Type: "xlsx",
			Path: "trade_history.xlsx",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Strategy resolves the selected strategy type into its parameters, with
// any non-zero overrides applied.
func (c *Config) Strategy() (StrategyParams, error) {
	p, err := DefaultParams(c.Trading.Strategy)
	if err != nil {
		return StrategyParams{}, err
	}
	return p.merge(c.Trading.Params), nil
}

// Load builds the configuration from defaults, the optional yaml file at
// path, the given .env files and finally the process environment. Earlier
// sources are overridden by later ones; .env never overrides variables
// already set in the process.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads a yaml configuration on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// SaveToFile writes the configuration as yaml.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.floatVar("DEFAULT_BALANCE", &c.Account.DefaultBalance)
	e.strVar("BALANCE_FILE", &c.Account.BalanceFile)

	e.textVar("STRATEGY_TYPE", &c.Trading.Strategy)
	e.textVar("TRADING_MODE", &c.Trading.Mode)
	e.floatVar("RISK_PER_TRADE_USDT", &c.Trading.RiskPerTradeUSDT)
	e.floatVar("MAX_RISK_PERCENT", &c.Trading.MaxRiskPercent)
	e.floatVar("MIN_RR", &c.Trading.MinRR)

	p := &c.Trading.Params
	e.floatVar("SL_PERCENT", &p.SLPercent)
	e.floatVar("TP_PERCENT", &p.TPPercent)
	e.intVar("EMA_FAST_LENGTH", &p.EMAFast)
	e.intVar("EMA_SLOW_LENGTH", &p.EMASlow)
	e.intVar("KLINE_LIMIT", &p.KlineLimit)
	e.strVar("KLINE_INTERVAL", &p.Interval)
	e.strVar("CATEGORY", &p.Category)
	e.floatVar("MIN_VOLUME_24H", &p.MinTurnover)
	e.floatVar("MAX_VOLUME_24H", &p.MaxTurnover)
	e.strVar("QUOTE_ASSET", &p.Quote)

	e.floatVar("TAKER_FEE_PERCENT", &c.Fees.TakerPercent)
	e.floatVar("MAKER_FEE_PERCENT", &c.Fees.MakerPercent)
	e.strVar("ENTRY_FEE_TYPE", &c.Fees.EntryType)

	e.boolVar("BYBIT_TESTNET", &c.Exchange.Testnet)
	e.strVar("BYBIT_API_KEY", &c.Exchange.APIKey)
	e.strVar("BYBIT_API_SECRET", &c.Exchange.APISecret)
	e.intVar("MAX_RETRIES", &c.Exchange.MaxRetries)
	e.secondsVar("RETRY_DELAY", &c.Exchange.RetryDelay)

	e.strVar("JOURNAL_TYPE", &c.Journal.Type)
	e.strVar("HISTORY_FILE", &c.Journal.Path)
	e.strVar("LOG_LEVEL", &c.Log.Level)
	e.strVar("LOG_FORMAT", &c.Log.Format)
	e.strVar("METRICS_ADDR", &c.Metrics.Addr)

	return errors.Join(e.errs...)
}

// RiskPolicy returns the pre-trade limits.
func (c *Config) RiskPolicy() risk.Policy {
	return risk.Policy{
		MaxRiskPct: decimal.NewFromFloat(c.Trading.MaxRiskPercent),
		MinRR:      decimal.NewFromFloat(c.Trading.MinRR),
	}
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Account.DefaultBalance < 0 {
		return fmt.Errorf("account.default_balance must not be negative")
	}
	if c.Account.BalanceFile == "" {
		return fmt.Errorf("account.balance_file is required")
	}
	if c.Trading.RiskPerTradeUSDT <= 0 {
		return fmt.Errorf("trading.risk_per_trade_usdt must be positive")
	}
	if c.Trading.MaxRiskPercent < 0 || c.Trading.MinRR < 0 {
		return fmt.Errorf("trading.max_risk_percent and trading.min_rr must not be negative")
	}
	if !c.Trading.Mode.Valid() {
		return fmt.Errorf("trading.mode %d is not one of 0 (long), 1 (short), 2 (both)", c.Trading.Mode)
	}

	p, err := c.Strategy()
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if _, err := ledger.ParseFeeKind(c.Fees.EntryType); err != nil {
		return fmt.Errorf("fees.entry_type: %w", err)
	}
	if c.Exchange.MaxRetries < 1 {
		return fmt.Errorf("exchange.max_retries must be at least 1")
	}
	if c.Exchange.RetryDelay <= 0 {
		return fmt.Errorf("exchange.retry_delay must be positive")
	}
	if _, err := journal.ParseKind(c.Journal.Type); err != nil {
		return fmt.Errorf("journal.type: %w", err)
	}
	if c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required")
	}
	return nil
}

// Validate checks a resolved parameter set.
func (p StrategyParams) Validate() error {
	if p.EMAFast <= 0 || p.EMASlow <= 0 {
		return fmt.Errorf("ema lengths must be positive (fast %d, slow %d)", p.EMAFast, p.EMASlow)
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("ema fast length %d must be less than slow length %d", p.EMAFast, p.EMASlow)
	}
	if p.SLPercent <= 0 {
		return fmt.Errorf("sl_percent must be positive")
	}
	if p.TPPercent <= 0 {
		return fmt.Errorf("tp_percent must be positive")
	}
	if p.KlineLimit < p.EMASlow+1 {
		return fmt.Errorf("kline_limit %d must be at least slow length + 1 (%d)", p.KlineLimit, p.EMASlow+1)
	}
	if p.Interval == "" {
		return fmt.Errorf("kline_interval is required")
	}
	if _, err := market.ParseCategory(p.Category); err != nil {
		return err
	}
	if p.MinTurnover < 0 || p.MinTurnover > p.MaxTurnover {
		return fmt.Errorf("turnover range [%g, %g] is invalid", p.MinTurnover, p.MaxTurnover)
	}
	if p.Quote == "" {
		return fmt.Errorf("quote asset is required")
	}
	return nil
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s=%q: %w", key, v, err))
}

func (e *envReader) strVar(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) floatVar(key string, dst *float64) {
	if v, ok := e.get(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) intVar(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolVar(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

// secondsVar accepts a bare number of seconds or a Go duration string.
func (e *envReader) secondsVar(key string, dst *time.Duration) {
	v, ok := e.get(key)
	if !ok {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(f * float64(time.Second))
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d
}

type textUnmarshaler interface {
	UnmarshalText([]byte) error
}

func (e *envReader) textVar(key string, dst textUnmarshaler) {
	if v, ok := e.get(key); ok {
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			e.fail(key, v, err)
		}
	}
}
