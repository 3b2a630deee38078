// Package config loads environment-driven settings for the engine,
// with an optional YAML overlay for per-symbol strategy parameters.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds environment-driven settings for the engine.
type Config struct {
	DBPath string

	// Broker connection
	BrokerURL           string
	IsLive              bool
	ClientID            string
	ClientSecret        string
	AccessToken         string
	CtidTraderAccountID int64

	// Engine
	Symbols          []string
	AnalysisInterval time.Duration
	DataRefreshInterval time.Duration

	// Risk defaults (overridable per-symbol via YAML overlay)
	RiskPercentage        float64
	DailyLossLimitPercent float64
	MaxPositions          int
	MaxTradesPerSymbol    int
	CooldownMs            int64
	MaxSpreadPips         float64
	StrategyType          string
	StopLossPips          float64
	TakeProfitPips        float64

	// SMC defaults
	SweepMinPips   float64
	CHOCHMinPips   float64
	FVGMinGapPips  float64

	// RSI/VWAP defaults
	RSIPeriod int
	VWAPWindow int

	// Optional external indicator worker (spec.md §1 black-box contract)
	EnableIndicatorWorker bool
	IndicatorWorkerAddr   string

	// Strategy parameter overlay file (YAML)
	StrategyConfigPath string

	overlay map[string]SymbolOverlay
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath: getEnv("DB_PATH", "./data/engine.db"),

		BrokerURL:           getEnv("BROKER_URL", "wss://demo.ctraderapi.com:5035"),
		IsLive:              getEnv("IS_LIVE", "false") == "true",
		ClientID:            os.Getenv("CTRADER_CLIENT_ID"),
		ClientSecret:        os.Getenv("CTRADER_CLIENT_SECRET"),
		AccessToken:         os.Getenv("CTRADER_ACCESS_TOKEN"),
		CtidTraderAccountID: int64(getEnvInt("CTRADER_ACCOUNT_ID", 0)),

		Symbols:             splitAndTrim(getEnv("SYMBOLS", "EURUSD,GBPUSD,USDJPY")),
		AnalysisInterval:    time.Duration(getEnvInt("ANALYSIS_INTERVAL_SECONDS", 30)) * time.Second,
		DataRefreshInterval: time.Duration(getEnvInt("DATA_REFRESH_INTERVAL_SECONDS", 300)) * time.Second,

		RiskPercentage:        getEnvFloat("RISK_PERCENTAGE", 1.0),
		DailyLossLimitPercent: getEnvFloat("DAILY_LOSS_LIMIT_PERCENT", 3.0),
		MaxPositions:          getEnvInt("MAX_POSITIONS", 5),
		MaxTradesPerSymbol:    getEnvInt("MAX_TRADES_PER_SYMBOL", 1),
		CooldownMs:            int64(getEnvInt("COOLDOWN_MS", 60000)),
		MaxSpreadPips:         getEnvFloat("MAX_SPREAD_PIPS", 3.0),
		StrategyType:          getEnv("STRATEGY_TYPE", "hybrid_smc"),
		StopLossPips:          getEnvFloat("STOP_LOSS_PIPS", 20.0),
		TakeProfitPips:        getEnvFloat("TAKE_PROFIT_PIPS", 40.0),

		SweepMinPips:  getEnvFloat("SWEEP_MIN_PIPS", 3),
		CHOCHMinPips:  getEnvFloat("CHOCH_MIN_PIPS", 5),
		FVGMinGapPips: getEnvFloat("FVG_MIN_GAP_PIPS", 2),

		RSIPeriod:  getEnvInt("RSI_PERIOD", 14),
		VWAPWindow: getEnvInt("VWAP_WINDOW", 20),

		EnableIndicatorWorker: getEnv("ENABLE_INDICATOR_WORKER", "false") == "true",
		IndicatorWorkerAddr:   getEnv("INDICATOR_WORKER_ADDR", "localhost:50051"),

		StrategyConfigPath: getEnv("STRATEGY_CONFIG_PATH", ""),
	}

	if cfg.StrategyConfigPath != "" {
		if err := cfg.applyOverlay(cfg.StrategyConfigPath); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// SymbolOverlay holds per-symbol overrides read from the optional YAML
// strategy-parameter file.
type SymbolOverlay struct {
	RiskPercentage *float64 `yaml:"riskPercentage"`
	SweepMinPips   *float64 `yaml:"sweepMinPips"`
	CHOCHMinPips   *float64 `yaml:"chochMinPips"`
	FVGMinGapPips  *float64 `yaml:"fvgMinGapPips"`
	StopLossPips   *float64 `yaml:"stopLossPips"`
	TakeProfitPips *float64 `yaml:"takeProfitPips"`
}

type overlayFile struct {
	Symbols map[string]SymbolOverlay `yaml:"symbols"`
}

func (c *Config) applyOverlay(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var of overlayFile
	if err := yaml.Unmarshal(b, &of); err != nil {
		return err
	}
	c.overlay = of.Symbols
	return nil
}

// Overlay returns the per-symbol override for symbol, if one was
// loaded from the YAML strategy-parameter file.
func (c *Config) Overlay(symbol string) (SymbolOverlay, bool) {
	ov, ok := c.overlay[symbol]
	return ov, ok
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
