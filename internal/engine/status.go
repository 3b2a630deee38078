package engine

import (
	"time"

	"ctrader-smc-engine/internal/risk"
)

// InFlightSummary is one entry of Status's inFlightOrders list.
type InFlightSummary struct {
	Symbol        string
	AgeMs         int64
	CorrelationID string
}

// Status is the engine's point-in-time snapshot: running flag, mode,
// symbols, analysis count, per-symbol trades executed, in-flight
// orders, risk state and server time. It carries no performance
// metrics. Grounded on the teacher's Impl.GetSystemStatus, which
// returns a similarly flat snapshot struct assembled from live
// in-memory state rather than a DB round-trip.
type Status struct {
	IsRunning      bool
	Mode           string // "live" or "demo"
	Symbols        []string
	AnalysisCount  uint64
	TradesExecuted map[string]int
	InFlightOrders []InFlightSummary
	RiskState      risk.State
	ServerTime     time.Time
}

// Status assembles a point-in-time snapshot of the engine's running
// state. Safe to call concurrently with the analysis/refresh loops.
func (e *Engine) Status(mode string, metrics *uint64) Status {
	now := time.Now()

	e.mu.Lock()
	trades := make(map[string]int, len(e.tradeCount))
	for symbol, n := range e.tradeCount {
		trades[symbol] = n
	}
	inFlight := make([]InFlightSummary, 0, len(e.inFlight))
	for symbol, rec := range e.inFlight {
		inFlight = append(inFlight, InFlightSummary{
			Symbol:        symbol,
			AgeMs:         now.Sub(rec.timestamp).Milliseconds(),
			CorrelationID: rec.correlationID,
		})
	}
	e.mu.Unlock()

	var riskState risk.State
	if e.cfg.Risk != nil {
		riskState = e.cfg.Risk.GetState()
	}

	var analysisCount uint64
	if metrics != nil {
		analysisCount = *metrics
	}

	return Status{
		IsRunning:      true,
		Mode:           mode,
		Symbols:        e.cfg.Symbols,
		AnalysisCount:  analysisCount,
		TradesExecuted: trades,
		InFlightOrders: inFlight,
		RiskState:      riskState,
		ServerTime:     now.UTC(),
	}
}
