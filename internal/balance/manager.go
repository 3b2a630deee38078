// Package balance periodically mirrors the broker's authoritative
// account balance/equity into an in-process cache so the engine's
// analysis loop and telemetry never need to round-trip a TRADER_REQ on
// every read. Grounded on the teacher's balance.Manager (ExchangeClient
// polling loop, RWMutex-guarded cache, periodic Sync) adapted from a
// client-side locked/available ledger (meaningful for a multi-exchange
// spot account this spec doesn't model) to a plain balance/equity
// mirror feeding internal/risk's daily baseline.
package balance

import (
	"context"
	"log"
	"sync"
	"time"
)

// Source is the account-info read side an adapter.Adapter satisfies.
type Source interface {
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
}

// AccountInfo mirrors adapter.AccountInfo's shape without importing
// internal/adapter, so this package stays a leaf the adapter itself
// could theoretically depend on.
type AccountInfo struct {
	Balance float64
	Equity  float64
}

// Manager polls Source on syncInterval and caches the latest reading.
type Manager struct {
	source       Source
	syncInterval time.Duration

	mu       sync.RWMutex
	balance  float64
	equity   float64
	lastSync time.Time

	onSync func(equity float64)
}

// NewManager builds a balance manager. onSync, if non-nil, is invoked
// after every successful sync with the fresh equity figure -- main.go
// wires this to risk.Manager.UpdateEquity.
func NewManager(source Source, syncInterval time.Duration, onSync func(equity float64)) *Manager {
	if syncInterval <= 0 {
		syncInterval = 30 * time.Second
	}
	return &Manager{source: source, syncInterval: syncInterval, onSync: onSync}
}

// Start performs an initial sync and then syncs on syncInterval until
// ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	if err := m.Sync(ctx); err != nil {
		log.Printf("❌ balance: initial sync failed: %v", err)
	}

	ticker := time.NewTicker(m.syncInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := m.Sync(ctx); err != nil {
					log.Printf("❌ balance: sync error: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Sync fetches the latest balance/equity from the broker.
func (m *Manager) Sync(ctx context.Context) error {
	if m.source == nil {
		return nil
	}
	info, err := m.source.GetAccountInfo(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.balance = info.Balance
	m.equity = info.Equity
	m.lastSync = time.Now()
	m.mu.Unlock()

	log.Printf("💰 balance: synced Balance=%.2f Equity=%.2f", info.Balance, info.Equity)

	if m.onSync != nil {
		m.onSync(info.Equity)
	}
	return nil
}

// GetBalance returns the last synced account balance.
func (m *Manager) GetBalance() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balance
}

// GetEquity returns the last synced account equity.
func (m *Manager) GetEquity() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.equity
}

// LastSync reports when the cache was last refreshed.
func (m *Manager) LastSync() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSync
}
