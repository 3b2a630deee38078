package risk

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"ctrader-smc-engine/internal/store"
)

const brasiliaOffset = -3 * time.Hour

// Manager enforces the daily-equity baseline, circuit breaker, session
// filter, and position sizing (spec.md §4.E). State is a single-writer
// structure guarded by mu: UpdateEquity and CanOpenPosition/
// CalculatePositionSize run from different goroutines in the trading
// engine's analysis loop.
type Manager struct {
	mu sync.RWMutex

	cfg   Config
	state State

	st     *store.Store
	userID string
	botID  string
}

// NewManager builds a risk manager. st may be nil for tests that don't
// need baseline persistence across restarts.
func NewManager(cfg Config, st *store.Store, userID, botID string) *Manager {
	return &Manager{cfg: cfg, st: st, userID: userID, botID: botID}
}

// Initialize establishes the daily-equity baseline. On a new UTC date
// it resets the baseline to currentEquity and unblocks trading; on the
// same date it restores the persisted baseline and block flag.
func (m *Manager) Initialize(currentEquity float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	today := time.Now().UTC().Format("2006-01-02")

	var persisted store.RiskState
	if m.st != nil {
		rs, err := m.st.LoadRiskState(m.userID, m.botID)
		if err != nil && err != store.ErrNotFound {
			return fmt.Errorf("load risk state: %w", err)
		}
		persisted = rs
	}

	if persisted.LastResetDate == today {
		m.state = State{
			DailyStartEquity: persisted.DailyStartEquity,
			CurrentEquity:    currentEquity,
			OpenTradesCount:  m.state.OpenTradesCount,
			TradingBlocked:   persisted.TradingBlocked,
			BlockReason:      persisted.BlockReason,
			LastResetDate:    persisted.LastResetDate,
		}
	} else {
		m.state = State{
			DailyStartEquity: currentEquity,
			CurrentEquity:    currentEquity,
			LastResetDate:    today,
		}
		if err := m.persistLocked(); err != nil {
			return err
		}
		log.Printf("risk: new trading day, baseline reset to %.2f", currentEquity)
	}

	m.recomputeLocked()
	return nil
}

// UpdateEquity refreshes the daily PnL and, if the daily loss limit is
// breached with the circuit breaker enabled, blocks trading.
func (m *Manager) UpdateEquity(equity float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.CurrentEquity = equity
	m.recomputeLocked()

	if m.cfg.CircuitBreakerEnabled && !m.state.TradingBlocked &&
		m.state.DailyPnLPercent <= -m.cfg.DailyLossLimitPercent {
		m.state.TradingBlocked = true
		m.state.BlockReason = "daily_loss_limit"
		log.Printf("risk: circuit breaker tripped, daily pnl %.2f%%", m.state.DailyPnLPercent)
		if err := m.persistLocked(); err != nil {
			log.Printf("risk: failed to persist circuit breaker trip: %v", err)
		}
	}
}

func (m *Manager) recomputeLocked() {
	m.state.DailyPnL = m.state.CurrentEquity - m.state.DailyStartEquity
	if m.state.DailyStartEquity != 0 {
		m.state.DailyPnLPercent = m.state.DailyPnL / m.state.DailyStartEquity * 100
	}
}

func (m *Manager) persistLocked() error {
	if m.st == nil {
		return nil
	}
	return m.st.SaveRiskState(store.RiskState{
		UserID:           m.userID,
		BotID:            m.botID,
		DailyStartEquity: m.state.DailyStartEquity,
		LastResetDate:    m.state.LastResetDate,
		TradingBlocked:   m.state.TradingBlocked,
		BlockReason:      m.state.BlockReason,
	})
}

// SetOpenTradesCount updates the live open-trade count the engine
// observed from the broker/DB reconciliation pass.
func (m *Manager) SetOpenTradesCount(n int) {
	m.mu.Lock()
	m.state.OpenTradesCount = n
	m.mu.Unlock()
}

// CanOpenPosition gates new entries: blocked state, open-trade cap,
// session filter (Brasilia time), and the daily loss limit.
func (m *Manager) CanOpenPosition() CanOpenResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.TradingBlocked {
		return CanOpenResult{Allowed: false, Reason: m.state.BlockReason}
	}

	if m.cfg.MaxOpenTrades > 0 && m.state.OpenTradesCount >= m.cfg.MaxOpenTrades {
		return CanOpenResult{Allowed: false, Reason: "max_open_trades"}
	}

	if m.cfg.SessionFilterEnabled && !m.withinTradingSession(time.Now()) {
		return CanOpenResult{Allowed: false, Reason: "outside_trading_session"}
	}

	if m.cfg.CircuitBreakerEnabled && m.state.DailyPnLPercent <= -m.cfg.DailyLossLimitPercent {
		m.state.TradingBlocked = true
		m.state.BlockReason = "daily_loss_limit"
		if err := m.persistLocked(); err != nil {
			log.Printf("risk: failed to persist circuit breaker trip: %v", err)
		}
		return CanOpenResult{Allowed: false, Reason: "daily_loss_limit"}
	}

	return CanOpenResult{Allowed: true}
}

func (m *Manager) withinTradingSession(now time.Time) bool {
	brasilia := now.UTC().Add(brasiliaOffset)
	minute := brasilia.Hour()*60 + brasilia.Minute()
	inLondon := minute >= m.cfg.LondonStart && minute < m.cfg.LondonEnd
	inNY := minute >= m.cfg.NYStart && minute < m.cfg.NYEnd
	return inLondon || inNY
}

// CalculatePositionSize sizes a position from account balance and the
// trade's stop-loss distance (spec.md §4.E): riskUsd =
// balance*riskPercentage/100; lots = riskUsd/(stopLossPips*pipValue),
// floored to the volume step (0.01 unless specs gives one), then
// clamped to [max(0.01, specs.Min), min(10.0, specs.Max)]. A size below
// the lower bound is rejected (below_minimum_volume), not raised.
func (m *Manager) CalculatePositionSize(balance, stopLossPips, pipValue float64, specs *VolumeSpecs) PositionSizeResult {
	m.mu.RLock()
	riskPct := m.cfg.RiskPercentage
	m.mu.RUnlock()

	if stopLossPips <= 0 || pipValue <= 0 {
		return PositionSizeResult{CanTrade: false, Reason: "invalid_stop_loss_or_pip_value"}
	}

	riskUsd := balance * riskPct / 100
	rawLots := riskUsd / (stopLossPips * pipValue)

	step := 0.01
	minVol := 0.01
	maxVol := 10.0
	if specs != nil {
		if specs.Step > 0 {
			step = specs.Step
		}
		if specs.Min > 0 {
			minVol = math.Max(minVol, specs.Min)
		}
		if specs.Max > 0 {
			maxVol = math.Min(maxVol, specs.Max)
		}
	}

	lots := math.Floor(rawLots/step) * step
	lots = math.Round(lots*1e8) / 1e8 // trim float noise

	if lots < minVol {
		return PositionSizeResult{LotSize: 0, RiskUSD: riskUsd, RiskPercent: riskPct, CanTrade: false, Reason: "below_minimum_volume"}
	}
	if lots > maxVol {
		lots = maxVol
	}

	return PositionSizeResult{LotSize: lots, RiskUSD: riskUsd, RiskPercent: riskPct, CanTrade: true}
}

// ResetCircuitBreaker clears a trading block (admin operation).
func (m *Manager) ResetCircuitBreaker() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.TradingBlocked = false
	m.state.BlockReason = ""
	return m.persistLocked()
}

// GetState returns a copy of the current risk state.
func (m *Manager) GetState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}
