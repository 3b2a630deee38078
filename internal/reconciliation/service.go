// Package reconciliation runs an independent periodic audit comparing
// the broker's authoritative open-position view against what has been
// persisted locally, separate from the trading engine's per-trade
// reconciliation guard (spec.md §4.G step 4). It reports per-symbol
// open-position count drift that accumulates between trades, for the
// symbols the broker currently holds positions in (see Reconcile),
// rather than gating any single order.
package reconciliation

import (
	"context"
	"log"
	"sync"
	"time"

	"ctrader-smc-engine/internal/store"
)

// Position is the broker-reported open-position shape this package
// needs, kept minimal so it doesn't import internal/adapter.
type Position struct {
	Symbol     string
	PositionID int64
}

// ExchangeClient is the broker read-side this service depends on --
// internal/adapter.Adapter satisfies it via ReconcilePositions.
type ExchangeClient interface {
	ReconcilePositions(ctx context.Context) ([]Position, error)
}

// Service runs periodic reconciliation between the broker's open
// positions and the local forex_positions table.
type Service struct {
	exchange ExchangeClient
	store    *store.Store
	userID   string
	botID    string
	interval time.Duration
	autoSync bool

	mu sync.Mutex
}

// Report is one reconciliation pass's findings.
type Report struct {
	Timestamp    time.Time
	SymbolDiffs  []SymbolDiff
	HasDiffs     bool
}

// SymbolDiff is a per-symbol count mismatch between broker and DB.
type SymbolDiff struct {
	Symbol        string
	BrokerOpen    int
	LocalOpen     int
}

// NewService creates a reconciliation service.
func NewService(exchange ExchangeClient, st *store.Store, userID, botID string, interval time.Duration) *Service {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Service{exchange: exchange, store: st, userID: userID, botID: botID, interval: interval, autoSync: true}
}

// SetAutoSync enables or disables whether findings are persisted as an
// audit-trail log entry.
func (s *Service) SetAutoSync(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoSync = enabled
	log.Printf("📊 reconciliation: audit logging %v", enabled)
}

// Start begins periodic reconciliation until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				report, err := s.Reconcile(ctx)
				if err != nil {
					log.Printf("❌ reconciliation error: %v", err)
					continue
				}
				s.handleReport(report)
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Printf("✓ reconciliation service started (interval: %v)", s.interval)
}

// Reconcile performs one reconciliation pass. Only symbols the broker
// reports at least one open position for are compared; a symbol with
// OPEN rows locally and no open position at the broker is not reported.
func (s *Service) Reconcile(ctx context.Context) (*Report, error) {
	if s.exchange == nil {
		return &Report{Timestamp: time.Now()}, nil
	}

	brokerPositions, err := s.exchange.ReconcilePositions(ctx)
	if err != nil {
		return nil, err
	}

	brokerCounts := make(map[string]int)
	for _, p := range brokerPositions {
		brokerCounts[p.Symbol]++
	}

	symbols := make(map[string]bool, len(brokerCounts))
	for sym := range brokerCounts {
		symbols[sym] = true
	}

	report := &Report{Timestamp: time.Now()}
	for sym := range symbols {
		localCount := 0
		if s.store != nil {
			localCount, err = s.store.CountOpenPositions(s.userID, s.botID, sym)
			if err != nil {
				log.Printf("❌ reconciliation: count open positions for %s: %v", sym, err)
				continue
			}
		}
		if brokerCounts[sym] != localCount {
			report.SymbolDiffs = append(report.SymbolDiffs, SymbolDiff{
				Symbol:     sym,
				BrokerOpen: brokerCounts[sym],
				LocalOpen:  localCount,
			})
			report.HasDiffs = true
		}
	}

	return report, nil
}

func (s *Service) handleReport(report *Report) {
	if !report.HasDiffs {
		log.Printf("✅ reconciliation OK - broker and local positions match")
		return
	}

	log.Printf("⚠️ reconciliation - position count differences detected:")
	for _, diff := range report.SymbolDiffs {
		log.Printf("  %s: broker=%d local=%d", diff.Symbol, diff.BrokerOpen, diff.LocalOpen)
	}

	s.mu.Lock()
	autoSync := s.autoSync
	s.mu.Unlock()
	if autoSync {
		s.saveReport(report)
	}
}

// saveReport mirrors a diff-bearing report into system_logs as an
// audit trail, one row per symbol affected.
func (s *Service) saveReport(report *Report) {
	if s.store == nil {
		return
	}
	for _, diff := range report.SymbolDiffs {
		l := store.SystemLog{
			UserID:   s.userID,
			BotID:    s.botID,
			Level:    "warn",
			Category: "RECONCILIATION_DIFF",
			Source:   "reconciliation.Service",
			Message:  "broker/local open-position count mismatch",
			Symbol:   diff.Symbol,
		}
		if err := s.store.InsertLog(s.userID, s.botID, l); err != nil {
			log.Printf("❌ reconciliation: failed to persist audit log for %s: %v", diff.Symbol, err)
		}
	}
}
