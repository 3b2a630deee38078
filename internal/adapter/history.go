package adapter

import (
	"context"
	"errors"
	"time"

	"ctrader-smc-engine/internal/errs"
	"ctrader-smc-engine/pkg/protocol"
)

// historyRetries/historyBackoff implement the rate-limit retry policy
// grounded on the teacher's AsyncExecutor.isRetryableError pattern:
// classify, back off, retry a bounded number of times.
const (
	historyRetries = 3
	historyBackoff = 5 * time.Second
)

// GetCandleHistory fetches up to count closed bars for symbolName at
// period, ending at toUnixMs. Requests are paced through the shared
// 1 req/s limiter and retried up to historyRetries times on a
// rate-limit rejection.
func (a *Adapter) GetCandleHistory(ctx context.Context, symbolName string, period protocol.TrendbarPeriod, count int32, toUnixMs int64) ([]protocol.Bar, error) {
	sym, err := a.resolveSymbol(ctx, symbolName)
	if err != nil {
		return nil, err
	}

	req := protocol.GetTrendbarsReq{
		CtidTraderAccountID: a.accID,
		SymbolID:            sym.SymbolID,
		Period:              period,
		ToTimestamp:         toUnixMs,
		Count:               count,
	}

	var lastErr error
	for attempt := 0; attempt <= historyRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(historyBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := a.wait(ctx); err != nil {
			return nil, err
		}

		env, err := a.client.Request(ctx, protocol.PayloadGetTrendbarsReq, req.Marshal())
		if err != nil {
			lastErr = classifyBrokerError(err)
			var rl *errs.RateLimitError
			if errors.As(lastErr, &rl) {
				continue
			}
			return nil, lastErr
		}

		res, err := protocol.DecodeGetTrendbarsRes(env.Payload)
		if err != nil {
			return nil, err
		}
		return res.Bars, nil
	}
	return nil, lastErr
}
