package store

import "fmt"

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS icmarkets_config (
    user_id TEXT NOT NULL,
    bot_id TEXT NOT NULL,
    strategy_type TEXT NOT NULL DEFAULT 'HYBRID',
    symbols TEXT NOT NULL DEFAULT '[]', -- canonical JSON array, never a bare string
    max_positions INTEGER NOT NULL DEFAULT 5,
    cooldown_ms INTEGER NOT NULL DEFAULT 60000,
    max_spread REAL NOT NULL DEFAULT 3.0,
    max_trades_per_symbol INTEGER NOT NULL DEFAULT 1,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY(user_id, bot_id)
);

CREATE TABLE IF NOT EXISTS smc_strategy_config (
    user_id TEXT NOT NULL,
    bot_id TEXT NOT NULL,
    london_start INTEGER NOT NULL DEFAULT 420,
    london_end INTEGER NOT NULL DEFAULT 720,
    ny_start INTEGER NOT NULL DEFAULT 720,
    ny_end INTEGER NOT NULL DEFAULT 1260,
    risk_percentage REAL NOT NULL DEFAULT 1.0,
    daily_loss_limit_percent REAL NOT NULL DEFAULT 3.0,
    max_open_trades INTEGER NOT NULL DEFAULT 5,
    circuit_breaker_enabled INTEGER NOT NULL DEFAULT 1,
    session_filter_enabled INTEGER NOT NULL DEFAULT 1,
    sweep_min_pips REAL NOT NULL DEFAULT 3,
    choch_min_pips REAL NOT NULL DEFAULT 5,
    fvg_min_gap_pips REAL NOT NULL DEFAULT 2,
    max_trades_per_session INTEGER NOT NULL DEFAULT 2,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY(user_id, bot_id)
);

CREATE TABLE IF NOT EXISTS rsi_vwap_config (
    user_id TEXT NOT NULL,
    bot_id TEXT NOT NULL,
    rsi_period INTEGER NOT NULL DEFAULT 14,
    vwap_window INTEGER NOT NULL DEFAULT 20,
    oversold REAL NOT NULL DEFAULT 30,
    overbought REAL NOT NULL DEFAULT 70,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY(user_id, bot_id)
);

CREATE TABLE IF NOT EXISTS forex_positions (
    user_id TEXT NOT NULL,
    bot_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    position_id INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'OPEN',
    direction TEXT NOT NULL,
    volume REAL NOT NULL,
    entry_price REAL NOT NULL,
    stop_loss REAL,
    take_profit REAL,
    opened_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    closed_at DATETIME,
    PRIMARY KEY(user_id, bot_id, position_id)
);

CREATE TABLE IF NOT EXISTS system_logs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT,
    bot_id TEXT,
    level TEXT NOT NULL,
    category TEXT NOT NULL,
    source TEXT,
    message TEXT NOT NULL,
    symbol TEXT,
    signal TEXT,
    latency_ms INTEGER,
    data TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS risk_state (
    user_id TEXT NOT NULL,
    bot_id TEXT NOT NULL,
    daily_start_equity REAL NOT NULL,
    last_reset_date TEXT NOT NULL,
    trading_blocked INTEGER NOT NULL DEFAULT 0,
    block_reason TEXT,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY(user_id, bot_id)
);

CREATE TABLE IF NOT EXISTS liquidity_pools (
    bot_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    pool_key TEXT NOT NULL,
    type TEXT NOT NULL,
    price REAL NOT NULL,
    timestamp INTEGER NOT NULL,
    source TEXT,
    priority INTEGER NOT NULL,
    swept INTEGER NOT NULL DEFAULT 0,
    swept_at INTEGER,
    swept_candle INTEGER,
    sweep_direction TEXT,
    created_at INTEGER NOT NULL,
    PRIMARY KEY(bot_id, symbol, pool_key)
);

CREATE TABLE IF NOT EXISTS fsm_snapshots (
    bot_id TEXT NOT NULL,
    symbol TEXT NOT NULL,
    state TEXT NOT NULL,
    state_changed_at INTEGER NOT NULL,
    trades_this_session INTEGER NOT NULL DEFAULT 0,
    transitions TEXT NOT NULL DEFAULT '[]',
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY(bot_id, symbol)
);
`

// applyMigrations bootstraps the schema; idempotent so it is safe to
// call on every startup.
func (s *Store) applyMigrations() error {
	if s == nil || s.DB == nil {
		return fmt.Errorf("store: not initialized")
	}
	if _, err := s.DB.Exec(schema); err != nil {
		return fmt.Errorf("store: apply schema: %w", err)
	}
	return nil
}
