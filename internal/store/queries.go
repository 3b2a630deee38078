package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// UpsertBotConfig inserts or replaces the bot-level config row.
// Symbols is always persisted as a JSON array, resolving the
// "activeSymbols may arrive as string or array" ambiguity in favor of
// a single canonical representation at the storage boundary.
func (s *Store) UpsertBotConfig(cfg BotConfig) error {
	symbolsJSON, err := json.Marshal(cfg.Symbols)
	if err != nil {
		return fmt.Errorf("store: marshal symbols: %w", err)
	}
	_, err = s.DB.Exec(`
		INSERT INTO icmarkets_config(user_id, bot_id, strategy_type, symbols, max_positions, cooldown_ms, max_spread, max_trades_per_symbol)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, bot_id) DO UPDATE SET
			strategy_type=excluded.strategy_type, symbols=excluded.symbols,
			max_positions=excluded.max_positions, cooldown_ms=excluded.cooldown_ms,
			max_spread=excluded.max_spread, max_trades_per_symbol=excluded.max_trades_per_symbol,
			updated_at=CURRENT_TIMESTAMP`,
		cfg.UserID, cfg.BotID, cfg.StrategyType, string(symbolsJSON),
		cfg.MaxPositions, cfg.CooldownMs, cfg.MaxSpread, cfg.MaxTradesPerSymbol)
	return err
}

// GetBotConfig loads the bot-level config row.
func (s *Store) GetBotConfig(userID, botID string) (BotConfig, error) {
	var cfg BotConfig
	var symbolsJSON string
	cfg.UserID, cfg.BotID = userID, botID
	row := s.DB.QueryRow(`SELECT strategy_type, symbols, max_positions, cooldown_ms, max_spread, max_trades_per_symbol
		FROM icmarkets_config WHERE user_id=? AND bot_id=?`, userID, botID)
	if err := row.Scan(&cfg.StrategyType, &symbolsJSON, &cfg.MaxPositions, &cfg.CooldownMs, &cfg.MaxSpread, &cfg.MaxTradesPerSymbol); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return cfg, ErrNotFound
		}
		return cfg, err
	}
	if err := json.Unmarshal([]byte(symbolsJSON), &cfg.Symbols); err != nil {
		return cfg, fmt.Errorf("store: unmarshal symbols: %w", err)
	}
	return cfg, nil
}

// GetSMCConfig loads the SMC strategy config row.
func (s *Store) GetSMCConfig(userID, botID string) (SMCConfig, error) {
	var c SMCConfig
	c.UserID, c.BotID = userID, botID
	var circuitBreaker, sessionFilter int
	row := s.DB.QueryRow(`SELECT london_start, london_end, ny_start, ny_end, risk_percentage,
		daily_loss_limit_percent, max_open_trades, circuit_breaker_enabled, session_filter_enabled,
		sweep_min_pips, choch_min_pips, fvg_min_gap_pips, max_trades_per_session
		FROM smc_strategy_config WHERE user_id=? AND bot_id=?`, userID, botID)
	err := row.Scan(&c.LondonStart, &c.LondonEnd, &c.NYStart, &c.NYEnd, &c.RiskPercentage,
		&c.DailyLossLimitPercent, &c.MaxOpenTrades, &circuitBreaker, &sessionFilter,
		&c.SweepMinPips, &c.CHOCHMinPips, &c.FVGMinGapPips, &c.MaxTradesPerSession)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	c.CircuitBreakerEnabled = circuitBreaker != 0
	c.SessionFilterEnabled = sessionFilter != 0
	return c, err
}

// UpsertSMCConfig inserts or replaces the SMC strategy config row.
func (s *Store) UpsertSMCConfig(c SMCConfig) error {
	_, err := s.DB.Exec(`
		INSERT INTO smc_strategy_config(user_id, bot_id, london_start, london_end, ny_start, ny_end,
			risk_percentage, daily_loss_limit_percent, max_open_trades, circuit_breaker_enabled,
			session_filter_enabled, sweep_min_pips, choch_min_pips, fvg_min_gap_pips, max_trades_per_session)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id, bot_id) DO UPDATE SET
			london_start=excluded.london_start, london_end=excluded.london_end,
			ny_start=excluded.ny_start, ny_end=excluded.ny_end,
			risk_percentage=excluded.risk_percentage, daily_loss_limit_percent=excluded.daily_loss_limit_percent,
			max_open_trades=excluded.max_open_trades, circuit_breaker_enabled=excluded.circuit_breaker_enabled,
			session_filter_enabled=excluded.session_filter_enabled, sweep_min_pips=excluded.sweep_min_pips,
			choch_min_pips=excluded.choch_min_pips, fvg_min_gap_pips=excluded.fvg_min_gap_pips,
			max_trades_per_session=excluded.max_trades_per_session, updated_at=CURRENT_TIMESTAMP`,
		c.UserID, c.BotID, c.LondonStart, c.LondonEnd, c.NYStart, c.NYEnd,
		c.RiskPercentage, c.DailyLossLimitPercent, c.MaxOpenTrades, boolToInt(c.CircuitBreakerEnabled),
		boolToInt(c.SessionFilterEnabled), c.SweepMinPips, c.CHOCHMinPips, c.FVGMinGapPips, c.MaxTradesPerSession)
	return err
}

// InsertPosition records a newly opened forex position.
func (s *Store) InsertPosition(p ForexPosition) error {
	_, err := s.DB.Exec(`
		INSERT INTO forex_positions(user_id, bot_id, symbol, position_id, status, direction, volume, entry_price, stop_loss, take_profit, opened_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.BotID, p.Symbol, p.PositionID, "OPEN", p.Direction, p.Volume, p.EntryPrice, p.StopLoss, p.TakeProfit, timeOrNow(p.OpenedAt))
	return err
}

// ClosePosition marks a position closed.
func (s *Store) ClosePosition(userID, botID string, positionID int64) error {
	_, err := s.DB.Exec(`UPDATE forex_positions SET status='CLOSED', closed_at=CURRENT_TIMESTAMP
		WHERE user_id=? AND bot_id=? AND position_id=?`, userID, botID, positionID)
	return err
}

// CountOpenPositions returns how many OPEN positions are persisted for
// a symbol — the "DB check" guard layer in the in-flight execution
// path (spec §4.G step 5).
func (s *Store) CountOpenPositions(userID, botID, symbol string) (int, error) {
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM forex_positions WHERE user_id=? AND bot_id=? AND symbol=? AND status='OPEN'`,
		userID, botID, symbol).Scan(&n)
	return n, err
}

// CountAllOpenPositions returns the total OPEN position count across
// all symbols for a bot.
func (s *Store) CountAllOpenPositions(userID, botID string) (int, error) {
	var n int
	err := s.DB.QueryRow(`SELECT COUNT(*) FROM forex_positions WHERE user_id=? AND bot_id=? AND status='OPEN'`,
		userID, botID).Scan(&n)
	return n, err
}

// InsertLog mirrors one structured log event into system_logs.
func (s *Store) InsertLog(userID, botID string, l SystemLog) error {
	_, err := s.DB.Exec(`
		INSERT INTO system_logs(user_id, bot_id, level, category, source, message, symbol, signal, latency_ms, data, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		userID, botID, l.Level, l.Category, l.Source, l.Message, l.Symbol, l.Signal, l.LatencyMs, l.Data, timeOrNow(l.CreatedAt))
	return err
}

// LoadRiskState loads the persisted daily risk baseline, if any.
func (s *Store) LoadRiskState(userID, botID string) (RiskState, error) {
	var rs RiskState
	rs.UserID, rs.BotID = userID, botID
	var blocked int
	row := s.DB.QueryRow(`SELECT daily_start_equity, last_reset_date, trading_blocked, block_reason
		FROM risk_state WHERE user_id=? AND bot_id=?`, userID, botID)
	err := row.Scan(&rs.DailyStartEquity, &rs.LastResetDate, &blocked, &rs.BlockReason)
	if errors.Is(err, sql.ErrNoRows) {
		return rs, ErrNotFound
	}
	rs.TradingBlocked = blocked != 0
	return rs, err
}

// SaveRiskState persists the daily risk baseline.
func (s *Store) SaveRiskState(rs RiskState) error {
	_, err := s.DB.Exec(`
		INSERT INTO risk_state(user_id, bot_id, daily_start_equity, last_reset_date, trading_blocked, block_reason)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(user_id, bot_id) DO UPDATE SET
			daily_start_equity=excluded.daily_start_equity, last_reset_date=excluded.last_reset_date,
			trading_blocked=excluded.trading_blocked, block_reason=excluded.block_reason, updated_at=CURRENT_TIMESTAMP`,
		rs.UserID, rs.BotID, rs.DailyStartEquity, rs.LastResetDate, boolToInt(rs.TradingBlocked), rs.BlockReason)
	return err
}

// SavePool durably persists (or updates) a liquidity pool row, keyed
// by its deterministic poolKey, so the swept bit survives a process
// restart.
func (s *Store) SavePool(p LiquidityPoolRow) error {
	_, err := s.DB.Exec(`
		INSERT INTO liquidity_pools(bot_id, symbol, pool_key, type, price, timestamp, source, priority, swept, swept_at, swept_candle, sweep_direction, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(bot_id, symbol, pool_key) DO UPDATE SET
			price=excluded.price, timestamp=excluded.timestamp, source=excluded.source, priority=excluded.priority,
			swept=excluded.swept, swept_at=excluded.swept_at, swept_candle=excluded.swept_candle,
			sweep_direction=excluded.sweep_direction`,
		p.BotID, p.Symbol, p.PoolKey, p.Type, p.Price, p.Timestamp, p.Source, p.Priority,
		boolToInt(p.Swept), p.SweptAt, p.SweptCandle, p.SweepDirection, p.CreatedAt)
	return err
}

// LoadPools returns every non-expired pool for a symbol.
func (s *Store) LoadPools(botID, symbol string, notExpiredBefore int64) ([]LiquidityPoolRow, error) {
	rows, err := s.DB.Query(`SELECT type, price, timestamp, source, priority, swept, swept_at, swept_candle, sweep_direction, created_at
		FROM liquidity_pools WHERE bot_id=? AND symbol=? AND created_at >= ?`, botID, symbol, notExpiredBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LiquidityPoolRow
	for rows.Next() {
		p := LiquidityPoolRow{BotID: botID, Symbol: symbol}
		var swept int
		if err := rows.Scan(&p.Type, &p.Price, &p.Timestamp, &p.Source, &p.Priority, &swept, &p.SweptAt, &p.SweptCandle, &p.SweepDirection, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Swept = swept != 0
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveFSMSnapshot persists the per-symbol FSM state so a restart
// resumes mid-FSM instead of forcing every symbol back to IDLE.
func (s *Store) SaveFSMSnapshot(snap FSMSnapshot) error {
	_, err := s.DB.Exec(`
		INSERT INTO fsm_snapshots(bot_id, symbol, state, state_changed_at, trades_this_session, transitions)
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(bot_id, symbol) DO UPDATE SET
			state=excluded.state, state_changed_at=excluded.state_changed_at,
			trades_this_session=excluded.trades_this_session, transitions=excluded.transitions,
			updated_at=CURRENT_TIMESTAMP`,
		snap.BotID, snap.Symbol, snap.State, snap.StateChangedAt, snap.TradesThisSession, snap.TransitionsJSON)
	return err
}

// LoadFSMSnapshot loads the persisted FSM state for a symbol.
func (s *Store) LoadFSMSnapshot(botID, symbol string) (FSMSnapshot, error) {
	snap := FSMSnapshot{BotID: botID, Symbol: symbol}
	row := s.DB.QueryRow(`SELECT state, state_changed_at, trades_this_session, transitions
		FROM fsm_snapshots WHERE bot_id=? AND symbol=?`, botID, symbol)
	err := row.Scan(&snap.State, &snap.StateChangedAt, &snap.TradesThisSession, &snap.TransitionsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, ErrNotFound
	}
	return snap, err
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
