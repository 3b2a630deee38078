// Package engine is the trading engine composition root: per-symbol
// multi-timeframe analysis, strategy combination, and the
// anti-double-submission order-execution path (spec.md §4.G). Grounded
// on the teacher's internal/engine/{impl,service}.go wiring-root shape
// (engine-as-composition-over-sub-managers), re-targeted from an
// HTTP-facing multi-user Binance bot to a single-account cTrader
// engine with its own analysis/refresh/watchdog loop triad.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"ctrader-smc-engine/internal/adapter"
	"ctrader-smc-engine/internal/events"
	"ctrader-smc-engine/internal/monitor"
	"ctrader-smc-engine/internal/mtf"
	"ctrader-smc-engine/internal/risk"
	"ctrader-smc-engine/internal/store"
	"ctrader-smc-engine/internal/strategy"
	"ctrader-smc-engine/internal/telemetry"
	"ctrader-smc-engine/pkg/protocol"
)

// AnalysisInterval/DataRefreshInterval/InFlightTTL are the fixed
// cadences spec.md §4.G and §5 name.
const (
	AnalysisInterval    = 30 * time.Second
	DataRefreshInterval = 5 * time.Minute
	InFlightTTL         = 30 * time.Second
	HistoryBarCount     = 250
	MinH1Bars           = 50
	MinM15Bars          = 30
	MinM5Bars           = 20
	MinConfidence       = 50.0
)

// SymbolConfig bundles the per-symbol thresholds the execution guard
// enforces; main.go fills it from config.Config's env settings.
type SymbolConfig struct {
	CooldownMs         int64
	MaxSpreadPips      float64
	MaxTradesPerSymbol int
	MaxPositions       int
	StopLossPips       float64
	TakeProfitPips     float64
}

// Config wires an Engine's collaborators and per-symbol parameters.
type Config struct {
	UserID  string
	BotID   string
	Symbols []string

	Adapter *adapter.Adapter
	MTF     *mtf.Store
	Risk    *risk.Manager
	Store   *store.Store
	Bus     *events.Bus
	Log     *telemetry.Logger

	SMC map[string]*strategy.SMC
	RSI strategy.Strategy // RSI+VWAP, or the external indicator worker when enabled

	Symbol  SymbolConfig
	Metrics *monitor.SystemMetrics // optional; nil disables cycle/latency counters
}

// Engine runs the periodic analysis/refresh/watchdog loop triad over a
// fixed symbol set.
type Engine struct {
	cfg Config

	mu          sync.Mutex
	inFlight    map[string]*inFlightOrder
	lastTrade   map[string]time.Time
	lastCandle  map[string]int64
	tradeCount  map[string]int

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// inFlightOrder is the per-symbol critical-section record spec.md §2's
// glossary defines: "{correlationId, timestamp, orderId?, status}".
type inFlightOrder struct {
	correlationID string
	timestamp     time.Time
	status        string // pending, sent, confirmed, failed, timeout
}

// New builds an Engine. Callers must call Start to begin the loops.
func New(cfg Config) *Engine {
	return &Engine{
		cfg:        cfg,
		inFlight:   make(map[string]*inFlightOrder),
		lastTrade:  make(map[string]time.Time),
		lastCandle: make(map[string]int64),
		tradeCount: make(map[string]int),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the analysis loop and the data-refresh loop. Both
// loops run until Stop is called or ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(2)
	go e.analysisLoop(ctx)
	go e.dataRefreshLoop(ctx)
}

// Stop cancels both loops, clears in-flight records (with a reason
// log), and waits for them to exit.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopCh)
		e.mu.Lock()
		for symbol, rec := range e.inFlight {
			log.Printf("engine: clearing in-flight order for %s at shutdown (was %s)", symbol, rec.status)
		}
		e.inFlight = make(map[string]*inFlightOrder)
		e.mu.Unlock()
	})
	e.wg.Wait()
}

func (e *Engine) analysisLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(AnalysisInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.runWatchdog()
			for _, symbol := range e.cfg.Symbols {
				e.analyzeSymbol(ctx, symbol)
			}
			if e.cfg.Metrics != nil {
				e.cfg.Metrics.IncrementAnalysisCycles()
			}
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) dataRefreshLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(DataRefreshInterval)
	defer ticker.Stop()

	e.refreshAll(ctx) // initial fill so the first analysis tick has data

	for {
		select {
		case <-ticker.C:
			e.refreshAll(ctx)
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		}
	}
}

func (e *Engine) refreshAll(ctx context.Context) {
	periods := []protocol.TrendbarPeriod{protocol.PeriodH1, protocol.PeriodM15, protocol.PeriodM5}
	for _, symbol := range e.cfg.Symbols {
		for _, period := range periods {
			select {
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			default:
			}

			bars, err := e.cfg.Adapter.GetCandleHistory(ctx, symbol, period, HistoryBarCount, time.Now().UnixMilli())
			if err != nil {
				log.Printf("engine: history refresh %s/%v failed: %v", symbol, period, err)
				continue
			}
			e.cfg.MTF.MergeBars(symbol, period, bars)

			select {
			case <-time.After(time.Second): // inter-request delay, spec.md §5
			case <-ctx.Done():
				return
			case <-e.stopCh:
				return
			}
		}
	}
}
