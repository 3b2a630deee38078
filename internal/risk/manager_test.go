package risk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ctrader-smc-engine/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInitializeResetsBaselineOnNewDay(t *testing.T) {
	st := newTestStore(t)
	mgr := NewManager(DefaultConfig(), st, "user1", "bot1")

	require.NoError(t, mgr.Initialize(10000))
	state := mgr.GetState()
	require.Equal(t, 10000.0, state.DailyStartEquity)
	require.False(t, state.TradingBlocked)
}

func TestUpdateEquityTripsCircuitBreaker(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DailyLossLimitPercent = 3.0
	mgr := NewManager(cfg, nil, "user1", "bot1")
	require.NoError(t, mgr.Initialize(10000))

	mgr.UpdateEquity(9800) // -2%, still fine
	require.False(t, mgr.GetState().TradingBlocked)

	mgr.UpdateEquity(9600) // -4%, breaches -3% limit
	state := mgr.GetState()
	require.True(t, state.TradingBlocked)
	require.Equal(t, "daily_loss_limit", state.BlockReason)
}

func TestCanOpenPositionDeniesWhenBlocked(t *testing.T) {
	mgr := NewManager(DefaultConfig(), nil, "user1", "bot1")
	require.NoError(t, mgr.Initialize(10000))
	mgr.UpdateEquity(9000) // well past -3%

	result := mgr.CanOpenPosition()
	require.False(t, result.Allowed)
	require.Equal(t, "daily_loss_limit", result.Reason)
}

func TestCanOpenPositionDeniesAtMaxOpenTrades(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionFilterEnabled = false
	cfg.MaxOpenTrades = 2
	mgr := NewManager(cfg, nil, "user1", "bot1")
	require.NoError(t, mgr.Initialize(10000))
	mgr.SetOpenTradesCount(2)

	result := mgr.CanOpenPosition()
	require.False(t, result.Allowed)
	require.Equal(t, "max_open_trades", result.Reason)
}

func TestResetCircuitBreakerClearsBlock(t *testing.T) {
	mgr := NewManager(DefaultConfig(), nil, "user1", "bot1")
	require.NoError(t, mgr.Initialize(10000))
	mgr.UpdateEquity(9000)
	require.True(t, mgr.GetState().TradingBlocked)

	require.NoError(t, mgr.ResetCircuitBreaker())
	require.False(t, mgr.GetState().TradingBlocked)
}

func TestCalculatePositionSizeFormula(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPercentage = 1.0 // 1% of balance
	mgr := NewManager(cfg, nil, "user1", "bot1")

	// balance=10000, risk=1% => riskUsd=100; stopLoss=20 pips, pipValue=$1/pip
	// raw lots = 100/(20*1) = 5.0
	result := mgr.CalculatePositionSize(10000, 20, 1.0, nil)
	require.True(t, result.CanTrade)
	require.InDelta(t, 5.0, result.LotSize, 1e-9)
	require.InDelta(t, 100.0, result.RiskUSD, 1e-9)
}

func TestCalculatePositionSizeBelowMinimumRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPercentage = 0.01
	mgr := NewManager(cfg, nil, "user1", "bot1")

	result := mgr.CalculatePositionSize(100, 500, 1.0, nil)
	require.False(t, result.CanTrade)
	require.Equal(t, "below_minimum_volume", result.Reason)
}

func TestCalculatePositionSizeHonorsVolumeSpecs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RiskPercentage = 5.0
	mgr := NewManager(cfg, nil, "user1", "bot1")

	specs := &VolumeSpecs{Min: 0.1, Max: 2.0, Step: 0.1}
	// riskUsd = 10000*0.05 = 500; raw lots = 500/(10*1) = 50 -> clamped to max 2.0
	result := mgr.CalculatePositionSize(10000, 10, 1.0, specs)
	require.True(t, result.CanTrade)
	require.InDelta(t, 2.0, result.LotSize, 1e-9)
}

// TestRiskMonotonicity is the spec's testable property #10: a worsening
// equity curve never loosens the risk gate -- CanOpenPosition must stay
// denied once the circuit breaker trips, regardless of later small
// equity bounces that don't clear the block.
func TestRiskMonotonicity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SessionFilterEnabled = false
	mgr := NewManager(cfg, nil, "user1", "bot1")
	require.NoError(t, mgr.Initialize(10000))

	mgr.UpdateEquity(9800) // -2%, inside the 3% limit
	require.True(t, mgr.CanOpenPosition().Allowed)

	mgr.UpdateEquity(9000) // trips breaker
	require.False(t, mgr.CanOpenPosition().Allowed)

	mgr.UpdateEquity(9400) // partial recovery, still blocked
	require.False(t, mgr.CanOpenPosition().Allowed)
}
