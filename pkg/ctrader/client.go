// Package ctrader implements the broker client half of the cTrader Open
// API integration: one TLS WebSocket session, a single writer and a
// single reader goroutine, request/response correlation, heartbeats,
// and linear-backoff reconnection with ghost-socket protection.
package ctrader

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ctrader-smc-engine/pkg/protocol"
)

// EventKind classifies a message pushed onto the client's event channel.
type EventKind string

const (
	EventSpot             EventKind = "spot"
	EventExecution        EventKind = "execution"
	EventOrderError       EventKind = "order_error"
	EventTraderUpdate     EventKind = "trader_update"
	EventClientDisconnect EventKind = "client_disconnect"
	EventDisconnected     EventKind = "disconnected"
	EventMessage          EventKind = "message" // opaque/unknown payload type
)

// Event is a single item on the client's event channel.
type Event struct {
	Kind    EventKind
	Spot    protocol.SpotEvent
	Exec    protocol.ExecutionEvent
	OrderErr protocol.OrderErrorEvent
	Envelope protocol.Envelope
	Err     error
}

// Config controls connection/timeout/backoff behavior. Zero-value
// fields fall back to the documented defaults.
type Config struct {
	URL              string
	RequestTimeout   time.Duration // default 10s
	HeartbeatPeriod  time.Duration // default 10s
	ReconnectBase    time.Duration // default 5s
	ReconnectMax     int           // default 10 attempts
}

func (c *Config) setDefaults() {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.HeartbeatPeriod <= 0 {
		c.HeartbeatPeriod = 10 * time.Second
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = 5 * time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 10
	}
}

type pendingRequest struct {
	expect protocol.PayloadType
	ch     chan pendingResult
}

// pendingResult is what arrives on a pending request's channel: either
// a matched response envelope, or the error to fail it with when the
// socket closes out from under it (spec.md §4.B's DisconnectedError,
// §7's "network drop mid-request: pending requests fail").
type pendingResult struct {
	env protocol.Envelope
	err error
}

// Client is a single broker session. Exactly one engine instance owns
// one Client, matching the "single engine owns one broker connection"
// design constraint.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer

	mu         sync.Mutex
	conn       *websocket.Conn
	generation uint64 // bumped on every (re)connect; guards against ghost sockets
	open       bool

	pendingMu sync.Mutex
	pending   map[string]pendingRequest

	writeCh chan writeRequest
	events  chan Event

	stopOnce sync.Once
	stopCh   chan struct{}

	creds protocol.Credentials
}

type writeRequest struct {
	generation uint64
	frame      []byte
}

// New builds a client for the given endpoint (e.g.
// "wss://demo.ctraderapi.com:5035").
func New(cfg Config) *Client {
	cfg.setDefaults()
	return &Client{
		cfg:     cfg,
		dialer:  websocket.DefaultDialer,
		pending: make(map[string]pendingRequest),
		writeCh: make(chan writeRequest, 64),
		events:  make(chan Event, 256),
		stopCh:  make(chan struct{}),
	}
}

// Events returns the channel every server-pushed event and connection
// lifecycle notification arrives on.
func (c *Client) Events() <-chan Event { return c.events }

// currentGeneration returns the active connection's identity tag.
func (c *Client) currentGeneration() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Connect dials the broker and completes AppAuth -> GetAccounts ->
// AccountAuth. It starts the reader, writer, and heartbeat loops.
func (c *Client) Connect(ctx context.Context, creds protocol.Credentials) error {
	c.creds = creds
	if err := c.dial(ctx); err != nil {
		return fmt.Errorf("ctrader: dial: %w", err)
	}

	if _, err := c.Request(ctx, protocol.PayloadApplicationAuthReq,
		protocol.ApplicationAuthReq{ClientID: creds.ClientID, ClientSecret: creds.ClientSecret}.Marshal()); err != nil {
		return fmt.Errorf("ctrader: app auth: %w", err)
	}

	accEnv, err := c.Request(ctx, protocol.PayloadGetAccountsByTokenReq,
		protocol.GetAccountsByTokenReq{AccessToken: creds.AccessToken}.Marshal())
	if err != nil {
		return fmt.Errorf("ctrader: get accounts: %w", err)
	}
	if _, err := protocol.DecodeGetAccountsByTokenRes(accEnv.Payload); err != nil {
		return fmt.Errorf("ctrader: decode accounts: %w", err)
	}

	if _, err := c.Request(ctx, protocol.PayloadAccountAuthReq,
		protocol.AccountAuthReq{CtidTraderAccountID: creds.CtidTraderAccountID, AccessToken: creds.AccessToken}.Marshal()); err != nil {
		return fmt.Errorf("ctrader: account auth: %w", err)
	}

	go c.heartbeatLoop()
	return nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.generation++
	gen := c.generation
	c.open = true
	c.mu.Unlock()

	go c.readLoop(gen, conn)
	go c.writeLoop(gen, conn)
	return nil
}

// Request sends a payload and blocks until its terminal response
// arrives, the context is cancelled, or the configured timeout elapses.
// Every request gets a fresh clientMsgId and a pending slot registered
// before the frame is handed to the writer, so a response racing the
// registration can never be missed.
func (c *Client) Request(ctx context.Context, payloadType protocol.PayloadType, payload []byte) (protocol.Envelope, error) {
	expect, hasExpect := protocol.ExpectedResponse(payloadType)
	if !hasExpect {
		expect = protocol.PayloadErrorRes
	}

	id := uuid.NewString()
	ch := make(chan pendingResult, 1)

	c.pendingMu.Lock()
	c.pending[id] = pendingRequest{expect: expect, ch: ch}
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	env := protocol.Envelope{PayloadType: payloadType, Payload: payload, ClientMsgID: id}
	gen := c.currentGeneration()

	select {
	case c.writeCh <- writeRequest{generation: gen, frame: env.Marshal()}:
	case <-ctx.Done():
		return protocol.Envelope{}, ctx.Err()
	case <-c.stopCh:
		return protocol.Envelope{}, fmt.Errorf("ctrader: client closed")
	}

	timeout := time.NewTimer(c.cfg.RequestTimeout)
	defer timeout.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return protocol.Envelope{}, res.err
		}
		resp := res.env
		if resp.PayloadType.IsError() {
			errRes, _ := protocol.DecodeErrorRes(resp.Payload)
			return resp, fmt.Errorf("ctrader: broker error %s: %s", errRes.ErrorCode, errRes.Description)
		}
		return resp, nil
	case <-timeout.C:
		return protocol.Envelope{}, fmt.Errorf("ctrader: request %s timed out after %s", payloadType.Name(), c.cfg.RequestTimeout)
	case <-ctx.Done():
		return protocol.Envelope{}, ctx.Err()
	case <-c.stopCh:
		return protocol.Envelope{}, fmt.Errorf("ctrader: client closed")
	}
}

// writeLoop is the single writer: every Request and the heartbeat
// ticker funnel through this one goroutine so the socket is never
// written to concurrently.
func (c *Client) writeLoop(generation uint64, conn *websocket.Conn) {
	for {
		select {
		case req := <-c.writeCh:
			if req.generation != generation {
				continue // stale write destined for a socket we've since replaced
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, req.frame); err != nil {
				log.Printf("ctrader: write error: %v", err)
				return
			}
		case <-c.stopCh:
			return
		}
	}
}

// readLoop is the single reader: it demultiplexes incoming frames to
// pending request slots or to the event channel.
func (c *Client) readLoop(generation uint64, conn *websocket.Conn) {
	defer c.handleDisconnect(generation)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}
			log.Printf("ctrader: read error: %v", err)
			c.scheduleReconnect(generation)
			return
		}

		env, err := protocol.UnmarshalEnvelope(msg)
		if err != nil {
			log.Printf("ctrader: malformed frame: %v", err)
			continue
		}
		c.dispatch(env)
	}
}

func (c *Client) dispatch(env protocol.Envelope) {
	if env.ClientMsgID != "" {
		c.pendingMu.Lock()
		pr, ok := c.pending[env.ClientMsgID]
		c.pendingMu.Unlock()
		if ok && (env.PayloadType == pr.expect || env.PayloadType.IsError()) {
			select {
			case pr.ch <- pendingResult{env: env}:
			default:
			}
			return
		}
	}

	switch env.PayloadType {
	case protocol.PayloadSpotEvent:
		spot, err := protocol.DecodeSpotEvent(env.Payload)
		if err == nil {
			c.emit(Event{Kind: EventSpot, Spot: spot})
		}
	case protocol.PayloadExecutionEvent:
		exec, err := protocol.DecodeExecutionEvent(env.Payload)
		if err == nil {
			c.emit(Event{Kind: EventExecution, Exec: exec})
		}
	case protocol.PayloadOrderErrorEvent:
		oerr, err := protocol.DecodeOrderErrorEvent(env.Payload)
		if err == nil {
			c.emit(Event{Kind: EventOrderError, OrderErr: oerr})
		}
	case protocol.PayloadClientDisconnectEvent:
		c.emit(Event{Kind: EventClientDisconnect, Envelope: env})
	case protocol.PayloadTraderUpdateEvent:
		c.emit(Event{Kind: EventTraderUpdate, Envelope: env})
	case protocol.PayloadHeartbeatEvent:
		// absence of a heartbeat does not itself trigger a disconnect;
		// we only note receipt for diagnostics.
	default:
		c.emit(Event{Kind: EventMessage, Envelope: env})
	}
}

func (c *Client) emit(e Event) {
	select {
	case c.events <- e:
	default:
		log.Printf("ctrader: event channel full, dropping %s", e.Kind)
	}
}

func (c *Client) heartbeatLoop() {
	gen := c.currentGeneration()
	ticker := time.NewTicker(c.cfg.HeartbeatPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			env := protocol.Envelope{PayloadType: protocol.PayloadHeartbeatEvent, Payload: protocol.HeartbeatEvent{}.Marshal()}
			select {
			case c.writeCh <- writeRequest{generation: gen, frame: env.Marshal()}:
			default:
			}
		case <-c.stopCh:
			return
		}
	}
}

func (c *Client) handleDisconnect(generation uint64) {
	c.mu.Lock()
	isCurrent := generation == c.generation
	if isCurrent {
		c.open = false
	}
	c.mu.Unlock()

	if isCurrent {
		c.failPending(fmt.Errorf("ctrader: disconnected"))
		c.emit(Event{Kind: EventDisconnected})
	}
}

// failPending fails every outstanding Request with err and empties the
// pending-request table, matching spec.md §5's "insert on send, remove
// on response/timeout/close" lifecycle and §4.B's guarantee that a
// socket close fails every request still waiting on it.
func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	stale := c.pending
	c.pending = make(map[string]pendingRequest, len(stale))
	c.pendingMu.Unlock()

	for _, pr := range stale {
		select {
		case pr.ch <- pendingResult{err: err}:
		default:
		}
	}
}

// scheduleReconnect runs the linear-backoff reconnect policy: delay =
// baseDelay * attempt, up to ReconnectMax attempts. Only the
// generation that actually died attempts to reconnect; a ghost socket
// from an earlier generation never races a fresher one.
func (c *Client) scheduleReconnect(deadGeneration uint64) {
	if deadGeneration != c.currentGeneration() {
		return // superseded already
	}

	for attempt := 1; attempt <= c.cfg.ReconnectMax; attempt++ {
		delay := c.cfg.ReconnectBase * time.Duration(attempt)
		select {
		case <-c.stopCh:
			return
		case <-time.After(delay):
		}

		if deadGeneration != c.currentGeneration() {
			return // someone else already reconnected
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.dial(ctx)
		cancel()
		if err != nil {
			log.Printf("ctrader: reconnect attempt %d/%d failed: %v", attempt, c.cfg.ReconnectMax, err)
			continue
		}

		ctx2, cancel2 := context.WithTimeout(context.Background(), c.cfg.RequestTimeout*3)
		err = c.Connect(ctx2, c.creds)
		cancel2()
		if err != nil {
			log.Printf("ctrader: reconnect re-auth failed: %v", err)
			continue
		}
		log.Printf("ctrader: reconnected after %d attempt(s)", attempt)
		return
	}
	log.Printf("ctrader: giving up after %d reconnect attempts", c.cfg.ReconnectMax)
}

// Close stops all loops and closes the underlying socket.
func (c *Client) Close() error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.mu.Lock()
		if c.conn != nil {
			err = c.conn.Close()
		}
		c.open = false
		c.mu.Unlock()
		c.failPending(fmt.Errorf("ctrader: client closed"))
	})
	return err
}

// Disconnect implements spec.md §4.B's public contract: it cancels the
// heartbeat, closes the socket, fails every pending request with a
// "client closed" error, and clears the stored credentials. Close's
// stop signal is permanent, so this Client cannot be connected again
// afterwards. It is the caller-initiated counterpart to the internal
// handleDisconnect path a socket error drives.
func (c *Client) Disconnect() error {
	err := c.Close()
	c.creds = protocol.Credentials{}
	return err
}

// IsOpen reports whether the current generation's socket is connected.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
