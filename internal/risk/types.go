package risk

// Config carries the tunable risk parameters (spec.md §4.E); main.go
// fills it from internal/config over DefaultConfig. Session windows are
// minutes-since-midnight in Brasilia time, a fixed UTC-3 offset
// (brasiliaOffset in manager.go).
type Config struct {
	RiskPercentage        float64
	DailyLossLimitPercent float64
	MaxOpenTrades         int
	CircuitBreakerEnabled bool
	SessionFilterEnabled  bool
	LondonStart           int
	LondonEnd             int
	NYStart               int
	NYEnd                 int
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		RiskPercentage:        1.0,
		DailyLossLimitPercent: 3.0,
		MaxOpenTrades:         3,
		CircuitBreakerEnabled: true,
		SessionFilterEnabled:  true,
		LondonStart:           4 * 60,  // 04:00 Brasilia
		LondonEnd:             9 * 60,  // 09:00 Brasilia
		NYStart:               9 * 60,  // 09:00 Brasilia
		NYEnd:                 18 * 60, // 18:00 Brasilia
	}
}

// State is the risk manager's daily baseline (spec.md §4.E).
type State struct {
	DailyStartEquity float64
	CurrentEquity    float64
	DailyPnL         float64
	DailyPnLPercent  float64
	OpenTradesCount  int
	TradingBlocked   bool
	BlockReason      string
	LastResetDate    string // YYYY-MM-DD, UTC
}

// CanOpenResult is the outcome of a CanOpenPosition check.
type CanOpenResult struct {
	Allowed bool
	Reason  string
}

// VolumeSpecs describes a broker's min/max/step for a symbol's volume.
// Min and Max can only narrow the default [0.01, 10.0] clamp; a
// positive Step replaces the default 0.01 step.
type VolumeSpecs struct {
	Min  float64
	Max  float64
	Step float64
}

// PositionSizeResult is the output of CalculatePositionSize.
type PositionSizeResult struct {
	LotSize     float64
	RiskUSD     float64
	RiskPercent float64
	CanTrade    bool
	Reason      string
}
