package adapter

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"ctrader-smc-engine/pkg/protocol"
)

const numTickShards = 16

// tickCache is a sharded bid/ask store keyed by symbol id, adapted
// from pkg/cache's ShardedPriceCache (a single float64-per-symbol
// cache) to hold the bid/ask pair a spread check needs without
// widening the lock to the whole symbol set on every tick.
type tickCache struct {
	shards [numTickShards]*tickShard
}

type tickShard struct {
	mu    sync.RWMutex
	items map[int64]tick
}

type tick struct {
	bid, ask  float64
	updatedAt time.Time
}

func newTickCache() *tickCache {
	c := &tickCache{}
	for i := range c.shards {
		c.shards[i] = &tickShard{items: make(map[int64]tick)}
	}
	return c
}

func (c *tickCache) shardFor(symbolID int64) *tickShard {
	h := fnv.New32a()
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(symbolID >> (8 * i))
	}
	h.Write(buf[:])
	return c.shards[h.Sum32()%numTickShards]
}

func (c *tickCache) set(symbolID int64, bid, ask float64) {
	s := c.shardFor(symbolID)
	s.mu.Lock()
	s.items[symbolID] = tick{bid: bid, ask: ask, updatedAt: time.Now()}
	s.mu.Unlock()
}

func (c *tickCache) get(symbolID int64) (tick, bool) {
	s := c.shardFor(symbolID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.items[symbolID]
	return t, ok
}

// SubscribePrice subscribes to real-time ticks for symbolName and
// routes every SPOT_EVENT for it to onTick. Subscribing a symbol
// already subscribed replaces the handler without resending
// SUBSCRIBE_SPOTS_REQ (idempotent per spec.md §4.C).
func (a *Adapter) SubscribePrice(ctx context.Context, symbolName string, onTick func(bid, ask float64)) error {
	sym, err := a.resolveSymbol(ctx, symbolName)
	if err != nil {
		return err
	}

	a.subMu.Lock()
	_, already := a.subs[sym.SymbolID]
	a.subs[sym.SymbolID] = onTick
	a.subMu.Unlock()
	if already {
		return nil
	}

	_, err = a.client.Request(ctx, protocol.PayloadSubscribeSpotsReq,
		protocol.SubscribeSpotsReq{CtidTraderAccountID: a.accID, SymbolID: []int64{sym.SymbolID}}.Marshal())
	if err != nil {
		a.subMu.Lock()
		delete(a.subs, sym.SymbolID)
		a.subMu.Unlock()
		return classifyBrokerError(err)
	}
	return nil
}

// UnsubscribePrice removes any handler registered for symbolName and
// tells the broker to stop pushing ticks for it.
func (a *Adapter) UnsubscribePrice(ctx context.Context, symbolName string) error {
	sym, found := a.lookupByName(symbolName)
	if !found {
		return nil
	}

	a.subMu.Lock()
	_, had := a.subs[sym.SymbolID]
	delete(a.subs, sym.SymbolID)
	a.subMu.Unlock()
	if !had {
		return nil
	}

	_, err := a.client.Request(ctx, protocol.PayloadUnsubscribeSpotsReq,
		protocol.UnsubscribeSpotsReq{CtidTraderAccountID: a.accID, SymbolID: []int64{sym.SymbolID}}.Marshal())
	return classifyBrokerError(err)
}
