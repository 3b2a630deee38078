package store

import (
	"encoding/json"

	"ctrader-smc-engine/internal/telemetry"
)

// LogSink adapts a Store into an internal/telemetry.Sink, mirroring
// every emitted structured log event into system_logs for a fixed
// (userID, botID) pair.
type LogSink struct {
	Store  *Store
	UserID string
	BotID  string
}

// WriteLog implements telemetry.Sink.
func (l LogSink) WriteLog(ev telemetry.Event) {
	var data string
	if len(ev.Data) > 0 {
		if b, err := json.Marshal(ev.Data); err == nil {
			data = string(b)
		}
	}
	_ = l.Store.InsertLog(l.UserID, l.BotID, SystemLog{
		Level:     string(ev.Level),
		Category:  string(ev.Category),
		Source:    "engine",
		Message:   ev.Message,
		Symbol:    ev.Symbol,
		LatencyMs: ev.LatencyMs,
		Data:      data,
		CreatedAt: ev.Time,
	})
}
