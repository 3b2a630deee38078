package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ctrader-smc-engine/internal/errs"
	"ctrader-smc-engine/pkg/protocol"
)

// OrderRequest is the adapter-facing order intent the trading engine
// submits after the risk manager has sized the position.
type OrderRequest struct {
	Symbol        string
	Side          protocol.TradeSide
	Lots          decimal.Decimal
	StopLoss      decimal.Decimal // zero = omit
	TakeProfit    decimal.Decimal // zero = omit
	MaxSpreadPips float64         // 0 = no spread check
}

// OrderResult reports what the broker confirmed.
type OrderResult struct {
	PositionID    int64
	ClientOrderID string
	Confirmed     bool // false when the order was submitted but the
	// confirming EXECUTION_EVENT never arrived before the context
	// deadline -- the safety latch case (spec.md §4.G step 5).
}

// confirmWaitTimeout bounds how long PlaceOrder waits for the matching
// EXECUTION_EVENT / ORDER_ERROR_EVENT to arrive after the broker
// accepts the NEW_ORDER_REQ write.
const confirmWaitTimeout = 10 * time.Second

// PlaceOrder submits a market order and blocks for broker confirmation,
// grounded on the teacher's Executor.Handle (submit -> await ack ->
// classify -> publish) adapted to cTrader's NEW_ORDER_REQ plus
// out-of-band EXECUTION_EVENT/ORDER_ERROR_EVENT confirmation (the
// response to NEW_ORDER_REQ itself is not the fill notification).
func (a *Adapter) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	sym, err := a.resolveSymbol(ctx, req.Symbol)
	if err != nil {
		return OrderResult{}, err
	}

	if req.MaxSpreadPips > 0 {
		spread, ok := a.Spread(req.Symbol)
		if ok && spread > req.MaxSpreadPips {
			return OrderResult{}, fmt.Errorf("adapter: spread %.1f pips exceeds max %.1f for %s", spread, req.MaxSpreadPips, req.Symbol)
		}
	}

	clientOrderID := uuid.NewString()
	wireReq := protocol.NewOrderReq{
		CtidTraderAccountID: a.accID,
		SymbolID:            sym.SymbolID,
		OrderType:           protocol.OrderTypeMarket,
		TradeSide:           req.Side,
		Volume:              protocol.VolumeToWire(req.Lots),
		ClientOrderID:       clientOrderID,
	}
	if !req.StopLoss.IsZero() {
		wireReq.StopLoss = protocol.PriceToWire(req.StopLoss)
	}
	if !req.TakeProfit.IsZero() {
		wireReq.TakeProfit = protocol.PriceToWire(req.TakeProfit)
	}

	confirmCh := make(chan confirmation, 1)
	a.awaitMu.Lock()
	a.awaiting[clientOrderID] = confirmCh
	a.awaitMu.Unlock()
	defer func() {
		a.awaitMu.Lock()
		delete(a.awaiting, clientOrderID)
		a.awaitMu.Unlock()
	}()

	if _, err := a.client.Request(ctx, protocol.PayloadNewOrderReq, wireReq.Marshal()); err != nil {
		return OrderResult{}, classifyBrokerError(err)
	}

	timeout := time.NewTimer(confirmWaitTimeout)
	defer timeout.Stop()

	select {
	case conf := <-confirmCh:
		if conf.rejected {
			return OrderResult{ClientOrderID: clientOrderID}, &errs.BrokerError{Code: conf.errorCode, Description: conf.description}
		}
		return OrderResult{PositionID: conf.positionID, ClientOrderID: clientOrderID, Confirmed: true}, nil
	case <-timeout.C:
		// Submitted, no confirmation observed: caller must reconcile
		// rather than assume failure (safety latch).
		return OrderResult{ClientOrderID: clientOrderID, Confirmed: false}, nil
	case <-ctx.Done():
		return OrderResult{ClientOrderID: clientOrderID, Confirmed: false}, ctx.Err()
	}
}

type confirmation struct {
	positionID  int64
	rejected    bool
	errorCode   string
	description string
}

// routeExecution and routeOrderError are wired from routeEvents (see
// adapter.go) via the client's execution/order-error events.
func (a *Adapter) routeExecution(ev protocol.ExecutionEvent) {
	if ev.ClientOrderID == "" {
		return
	}
	a.awaitMu.Lock()
	ch, ok := a.awaiting[ev.ClientOrderID]
	a.awaitMu.Unlock()
	if !ok {
		return
	}
	switch ev.ExecutionType {
	case protocol.ExecutionTypeOrderAccepted, protocol.ExecutionTypeOrderFilled:
		select {
		case ch <- confirmation{positionID: ev.PositionID}:
		default:
		}
	case protocol.ExecutionTypeOrderRejected:
		select {
		case ch <- confirmation{rejected: true, errorCode: "REJECTED", description: "order rejected"}:
		default:
		}
	}
}

func (a *Adapter) routeOrderError(ev protocol.OrderErrorEvent) {
	if ev.ClientOrderID == "" {
		return
	}
	a.awaitMu.Lock()
	ch, ok := a.awaiting[ev.ClientOrderID]
	a.awaitMu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- confirmation{rejected: true, errorCode: ev.ErrorCode, description: ev.Description}:
	default:
	}
}
