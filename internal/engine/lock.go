package engine

import (
	"time"

	"github.com/google/uuid"

	"ctrader-smc-engine/internal/events"
	"ctrader-smc-engine/internal/telemetry"
)

// acquireLock attempts the per-symbol in-flight lock. Returns the
// acquired record and true on success; on failure it emits
// LOCK_BLOCKED and returns false (spec.md §4.G executeSignal preamble).
func (e *Engine) acquireLock(symbol string) (*inFlightOrder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if rec, exists := e.inFlight[symbol]; exists && time.Since(rec.timestamp) < InFlightTTL {
		e.publish(events.EventLockBlocked, map[string]any{"symbol": symbol, "correlationId": rec.correlationID})
		e.log(telemetry.CategoryLockBlocked, symbol, "in-flight lock held", nil)
		return nil, false
	}

	rec := &inFlightOrder{correlationID: correlationID(), timestamp: time.Now(), status: "pending"}
	e.inFlight[symbol] = rec
	e.publish(events.EventLockAcquired, map[string]any{"symbol": symbol, "correlationId": rec.correlationID})
	e.log(telemetry.CategoryLockAcquired, symbol, "in-flight lock acquired", map[string]any{"correlationId": rec.correlationID})
	return rec, true
}

// releaseLock clears the in-flight record for symbol with a terminal
// status (confirmed/failed), emitting LOCK_RELEASED.
func (e *Engine) releaseLock(symbol, status string) {
	e.mu.Lock()
	rec, ok := e.inFlight[symbol]
	if ok {
		delete(e.inFlight, symbol)
	}
	e.mu.Unlock()

	if !ok {
		return
	}
	e.publish(events.EventLockReleased, map[string]any{"symbol": symbol, "correlationId": rec.correlationID, "status": status})
	e.log(telemetry.CategoryLockReleased, symbol, "in-flight lock released", map[string]any{"status": status})
}

// runWatchdog clears any in-flight record older than InFlightTTL,
// emitting LOCK_TIMEOUT (spec.md §4.G, runs every analysis tick).
func (e *Engine) runWatchdog() {
	e.mu.Lock()
	var stale []string
	for symbol, rec := range e.inFlight {
		if time.Since(rec.timestamp) >= InFlightTTL {
			stale = append(stale, symbol)
		}
	}
	for _, symbol := range stale {
		delete(e.inFlight, symbol)
	}
	e.mu.Unlock()

	for _, symbol := range stale {
		e.publish(events.EventLockTimeout, map[string]any{"symbol": symbol})
		e.log(telemetry.CategoryLockTimeout, symbol, "in-flight lock expired", nil)
	}
}

func (e *Engine) publish(evt events.Event, payload any) {
	if e.cfg.Bus == nil {
		return
	}
	e.cfg.Bus.Publish(evt, payload)
}

func (e *Engine) log(cat telemetry.Category, symbol, msg string, data map[string]any) {
	if e.cfg.Log == nil {
		return
	}
	e.cfg.Log.Info(cat, symbol, msg, data)
}

func correlationID() string {
	id := uuid.New()
	return id.String()[:8]
}
