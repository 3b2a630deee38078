package store

import (
	"encoding/json"
	"time"

	"ctrader-smc-engine/internal/persistence"
	"ctrader-smc-engine/internal/telemetry"
)

// BatchedLogSink adapts a Store into a telemetry.Sink the same way
// LogSink does, but routes every write through an
// internal/persistence.BatchWriter instead of a synchronous Exec per
// event. Strategy analysis emits a log line on every tick across
// every symbol; at that rate one fsync per line competes with the
// single SQLite writer connection for the same lock the position and
// risk-state writes need, so high-frequency telemetry is batched
// while trade-critical writes (InsertPosition, SaveRiskState) keep
// going through Store directly.
type BatchedLogSink struct {
	writer *persistence.BatchWriter
	userID string
	botID  string
}

// NewBatchedLogSink creates a batched sink flushing at most maxSize
// buffered log rows or every interval, whichever comes first.
func NewBatchedLogSink(st *Store, userID, botID string, maxSize int, interval time.Duration) *BatchedLogSink {
	return &BatchedLogSink{
		writer: persistence.NewBatchWriter(st.DB, maxSize, interval),
		userID: userID,
		botID:  botID,
	}
}

// WriteLog implements telemetry.Sink.
func (b *BatchedLogSink) WriteLog(ev telemetry.Event) {
	var data string
	if len(ev.Data) > 0 {
		if j, err := json.Marshal(ev.Data); err == nil {
			data = string(j)
		}
	}
	b.writer.WriteQuery(`
		INSERT INTO system_logs(user_id, bot_id, level, category, source, message, symbol, signal, latency_ms, data, created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
		b.userID, b.botID, string(ev.Level), string(ev.Category), "engine", ev.Message, ev.Symbol, "", ev.LatencyMs, data, timeOrNow(ev.Time))
}

// Metrics exposes the underlying batch writer's counters.
func (b *BatchedLogSink) Metrics() persistence.BatchWriterMetrics {
	return b.writer.GetMetrics()
}

// Close flushes any buffered rows and stops the background flusher.
func (b *BatchedLogSink) Close() error {
	return b.writer.Close()
}
