package store

import "time"

// BotConfig mirrors the icmarkets_config table.
type BotConfig struct {
	UserID             string
	BotID              string
	StrategyType       string
	Symbols            []string // canonical array representation; never a bare string
	MaxPositions       int
	CooldownMs         int64
	MaxSpread          float64
	MaxTradesPerSymbol int
}

// SMCConfig mirrors the smc_strategy_config table.
type SMCConfig struct {
	UserID                string
	BotID                 string
	LondonStart           int // minutes since UTC midnight
	LondonEnd             int
	NYStart               int
	NYEnd                 int
	RiskPercentage        float64
	DailyLossLimitPercent float64
	MaxOpenTrades         int
	CircuitBreakerEnabled bool
	SessionFilterEnabled  bool
	SweepMinPips          float64
	CHOCHMinPips          float64
	FVGMinGapPips         float64
	MaxTradesPerSession   int
}

// RSIVWAPConfig mirrors the rsi_vwap_config table.
type RSIVWAPConfig struct {
	UserID     string
	BotID      string
	RSIPeriod  int
	VWAPWindow int
	Oversold   float64
	Overbought float64
}

// ForexPosition mirrors the forex_positions table.
type ForexPosition struct {
	UserID      string
	BotID       string
	Symbol      string
	PositionID  int64
	Status      string // OPEN, CLOSED
	Direction   string // BUY, SELL
	Volume      float64
	EntryPrice  float64
	StopLoss    float64
	TakeProfit  float64
	OpenedAt    time.Time
	ClosedAt    *time.Time
}

// SystemLog mirrors the system_logs table.
type SystemLog struct {
	UserID    string
	BotID     string
	Level     string
	Category  string
	Source    string
	Message   string
	Symbol    string
	Signal    string
	LatencyMs int64
	Data      string
	CreatedAt time.Time
}

// RiskState mirrors the risk_state table.
type RiskState struct {
	UserID           string
	BotID            string
	DailyStartEquity float64
	LastResetDate    string // YYYY-MM-DD, UTC
	TradingBlocked   bool
	BlockReason      string
}

// LiquidityPoolRow mirrors the liquidity_pools table.
type LiquidityPoolRow struct {
	BotID          string
	Symbol         string
	PoolKey        string
	Type           string
	Price          float64
	Timestamp      int64
	Source         string
	Priority       int
	Swept          bool
	SweptAt        int64
	SweptCandle    int64
	SweepDirection string
	CreatedAt      int64
}

// FSMSnapshot mirrors the fsm_snapshots table.
type FSMSnapshot struct {
	BotID             string
	Symbol            string
	State             string
	StateChangedAt    int64
	TradesThisSession int
	TransitionsJSON   string
}
