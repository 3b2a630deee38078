// Package mtf is the multi-timeframe bar store: a per-(timeframe,symbol)
// ordered slice of OHLC bars, merged by upsert-on-timestamp so an
// unclosed bar can be overwritten in place as it updates, with bounded
// retention. Generalized from internal/state.Manager's guarded-map +
// copy-on-read accessor shape.
package mtf

import (
	"sort"
	"sync"

	"ctrader-smc-engine/pkg/protocol"
)

// MaxBarsPerSeries is the retention cap enforced after every merge.
const MaxBarsPerSeries = 300

type key struct {
	period protocol.TrendbarPeriod
	symbol string
}

// Store holds bar history for every (timeframe, symbol) pair the
// engine tracks. Zero value is ready to use.
type Store struct {
	mu     sync.RWMutex
	series map[key][]protocol.Bar
}

// New builds an empty store.
func New() *Store {
	return &Store{series: make(map[key][]protocol.Bar)}
}

// MergeBars upserts newBars into the series for (symbol, period) by
// timestamp: an incoming bar with a timestamp already present replaces
// the stored one (last-write-wins, since unclosed bars are
// republished as they update); a new timestamp is appended. After
// merge the series is re-sorted ascending by timestamp and trimmed to
// MaxBarsPerSeries most recent entries.
func (s *Store) MergeBars(symbol string, period protocol.TrendbarPeriod, newBars []protocol.Bar) {
	if len(newBars) == 0 {
		return
	}
	k := key{period: period, symbol: symbol}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.series[k]
	byTs := make(map[int64]protocol.Bar, len(existing)+len(newBars))
	for _, b := range existing {
		byTs[b.Timestamp()] = b
	}
	for _, b := range newBars {
		byTs[b.Timestamp()] = b
	}

	merged := make([]protocol.Bar, 0, len(byTs))
	for _, b := range byTs {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp() < merged[j].Timestamp() })

	if len(merged) > MaxBarsPerSeries {
		merged = merged[len(merged)-MaxBarsPerSeries:]
	}
	s.series[k] = merged
}

// Bars returns a copy of the ascending bar slice for (symbol, period),
// so a caller mid-analysis-cycle never observes a partially trimmed
// or concurrently mutated slice.
func (s *Store) Bars(symbol string, period protocol.TrendbarPeriod) []protocol.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.series[key{period: period, symbol: symbol}]
	out := make([]protocol.Bar, len(src))
	copy(out, src)
	return out
}

// Last returns the most recent bar for (symbol, period), if any.
func (s *Store) Last(symbol string, period protocol.TrendbarPeriod) (protocol.Bar, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.series[key{period: period, symbol: symbol}]
	if len(src) == 0 {
		return protocol.Bar{}, false
	}
	return src[len(src)-1], true
}

// Count returns how many bars are cached for (symbol, period).
func (s *Store) Count(symbol string, period protocol.TrendbarPeriod) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.series[key{period: period, symbol: symbol}])
}
