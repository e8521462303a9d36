package locritchat

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Client multiplexes conversations with Locrit targets over a single
// streaming transport connection, with a synchronous fallback channel.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	dialer   Dialer
	fallback Fallback
	cfg      clientConfig
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.RWMutex
	transport Transport
	state     ConnectionState
	epoch     uint64        // bumped on every successful dial
	connDone  chan struct{} // closed when the in-flight connect attempt settles
	connErr   error         // outcome of the settled attempt
	sessions  map[string]*Session
	exchanges map[string]*Exchange // live exchanges by correlation id
	pending   map[string]chan *LCEvent
	closed    bool

	lastActivity atomic.Int64 // unix nanos of the last inbound event
}

// Connect creates a client for the given streaming and fallback endpoints
// and establishes the streaming connection eagerly.
func Connect(ctx context.Context, wsURL, chatURL, apiKey string, opts ...ClientOption) (*Client, error) {
	c := New(ctx, WSDialer(wsURL, apiKey, nil), NewHTTPFallback(chatURL, apiKey, nil), opts...)
	if err := c.connect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// New creates a client with a custom transport dialer and fallback channel.
// The connection is established lazily on the first send, or explicitly via
// a Send after construction. This is the constructor to use in tests.
func New(ctx context.Context, dialer Dialer, fallback Fallback, opts ...ClientOption) *Client {
	ctx, cancel := context.WithCancel(ctx)

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Client{
		dialer:    dialer,
		fallback:  fallback,
		cfg:       cfg,
		ctx:       ctx,
		cancel:    cancel,
		state:     StateDisconnected,
		sessions:  make(map[string]*Session),
		exchanges: make(map[string]*Exchange),
		pending:   make(map[string]chan *LCEvent),
	}
}

// ConnectionState returns the current transport liveness state.
func (c *Client) ConnectionState() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the streaming transport is live.
func (c *Client) IsConnected() bool {
	return c.ConnectionState() == StateConnected
}

// Send dispatches content to the named target. It never blocks: all outcomes
// arrive through the handler set. Exactly one of OnComplete or OnError fires
// per call, with any OnChunk calls strictly before it. Streaming-path
// failures degrade silently to the synchronous channel, so OnError only
// reports exhaustion of both paths.
//
// The returned Exchange can be used to observe status or detach from further
// handler invocations; detaching does not cancel the in-flight operation.
func (c *Client) Send(target, content string, h Handlers) *Exchange {
	ex := &Exchange{
		cid:      uuid.New().String(),
		target:   target,
		content:  content,
		status:   StatusStreaming,
		handlers: h,
	}

	go c.dispatch(ex)

	return ex
}

// dispatch drives one exchange through connect, join and transmit, routing
// any failure to the fallback channel.
func (c *Client) dispatch(ex *Exchange) {
	if err := c.connect(c.ctx); err != nil {
		ex.fail()
		c.failover(ex, err)
		return
	}

	sess, err := c.ensureSession(c.ctx, ex.target)
	if err != nil {
		ex.fail()
		c.failover(ex, err)
		return
	}

	ex.mu.Lock()
	ex.sessionID = sess.ID
	ex.mu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ex.fail()
		ex.deliverError(ErrClosed)
		return
	}
	c.exchanges[ex.cid] = ex
	c.mu.Unlock()

	req := NewMessageRequest(ex.cid, MessageData{
		Target:    ex.target,
		SessionID: sess.ID,
		Content:   ex.content,
		Sender:    c.cfg.sender,
	})

	if err := c.send(c.ctx, req); err != nil {
		c.removeExchange(ex.cid)
		if ex.fail() {
			c.failover(ex, &SendError{Op: "message", Err: err})
		}
		return
	}

	// Inbound events drive the exchange from here.
}

// failover routes a failed streaming send through the synchronous channel.
// The streaming cause is logged, not surfaced; only a fallback failure
// reaches OnError.
func (c *Client) failover(ex *Exchange, cause error) {
	if c.cfg.logger != nil {
		c.cfg.logger.Debug("streaming path failed, using fallback",
			slog.String("target", ex.target),
			slog.String("cid", ex.cid),
			slog.Any("cause", cause),
		)
	}

	if c.fallback == nil {
		ex.deliverError(&FallbackError{Target: ex.target, Err: cause})
		return
	}

	res, err := c.fallback.RequestResponse(c.ctx, ex.target, ex.content, c.cfg.sender)
	if err != nil {
		var fe *FallbackError
		if !errors.As(err, &fe) {
			err = &FallbackError{Target: ex.target, Err: err}
		}
		ex.deliverError(err)
		return
	}

	ex.deliverComplete(res.Text, res.Timestamp)
}

// connect ensures a live transport, attaching to any in-flight attempt
// rather than starting a second one. Calling it while connected is a no-op.
func (c *Client) connect(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}

		switch c.state {
		case StateConnected:
			c.mu.Unlock()
			return nil

		case StateConnecting, StateReconnecting:
			done := c.connDone
			c.mu.Unlock()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.ctx.Done():
				return ErrClosed
			case <-done:
			}

			c.mu.RLock()
			state, err := c.state, c.connErr
			c.mu.RUnlock()
			if state == StateConnected {
				return nil
			}
			if err != nil {
				return err
			}
			// Settled into an unexpected state; re-evaluate.
			continue

		default: // StateDisconnected
			done := make(chan struct{})
			c.connDone = done
			changed := c.setStateLocked(StateConnecting)
			c.mu.Unlock()
			if changed {
				c.notifyState(StateConnecting)
			}

			err := c.dialAndInstall()

			c.mu.Lock()
			if err != nil {
				c.connErr = err
				changed = c.setStateLocked(StateDisconnected)
			} else if c.transport != nil {
				c.connErr = nil
				changed = c.setStateLocked(StateConnected)
			} else {
				// Transport already lost again; the reconnect loop owns
				// the state from here.
				changed = false
			}
			state := c.state
			c.mu.Unlock()
			close(done)
			if changed {
				c.notifyState(state)
			}

			return err
		}
	}
}

// dialAndInstall dials a fresh transport and starts its read loop and
// liveness watchdog. The caller owns the state transition.
func (c *Client) dialAndInstall() error {
	transport, err := c.dialer(c.ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		transport.Close()
		return ErrClosed
	}
	c.transport = transport
	c.epoch++
	c.mu.Unlock()

	c.lastActivity.Store(time.Now().UnixNano())

	go c.readLoop(transport)
	if c.cfg.livenessTimeout > 0 {
		go c.watchdog(transport)
	}

	return nil
}

// readLoop reads events from one transport and routes them until the
// transport fails.
func (c *Client) readLoop(t Transport) {
	for {
		event, err := t.Receive(c.ctx)
		if err != nil {
			c.handleTransportLoss(t, err)
			return
		}

		c.lastActivity.Store(time.Now().UnixNano())

		// Observability hook
		if c.cfg.onReceive != nil {
			c.cfg.onReceive(event)
		}

		if c.cfg.logger != nil {
			c.cfg.logger.Debug("received event",
				slog.String("event", event.Event),
				slog.String("cid", event.CID),
			)
		}

		c.routeEvent(event)
	}
}

// routeEvent routes an event to the appropriate handler. It runs on the
// read-loop goroutine, which is what preserves per-correlation-id ordering.
func (c *Client) routeEvent(event *LCEvent) {
	// Join acks route to the pending channel
	if event.IsJoined() {
		c.mu.RLock()
		ch, ok := c.pending[event.CID]
		c.mu.RUnlock()
		if ok {
			select {
			case ch <- event:
			default:
			}
		}
		return
	}

	// Errors may be for a pending join rather than an exchange
	if event.IsError() && event.CID != "" {
		c.mu.RLock()
		ch, ok := c.pending[event.CID]
		c.mu.RUnlock()
		if ok {
			select {
			case ch <- event:
			default:
			}
			return
		}
	}

	cid := event.CID
	if cid == "" {
		return
	}

	c.mu.RLock()
	ex, ok := c.exchanges[cid]
	c.mu.RUnlock()
	if !ok {
		return
	}

	switch {
	case event.IsChunk():
		ex.handleChunk(event.Delta, event.Time())

	case event.IsComplete():
		c.removeExchange(cid)
		ex.handleComplete(event.Time())

	case event.IsError():
		c.removeExchange(cid)
		if ex.fail() {
			reason := event.Reason
			if reason == "" {
				reason = "stream aborted"
			}
			// Fallback must not block the read loop.
			go c.failover(ex, &SendError{Op: "stream", Err: errors.New(reason)})
		}
	}
}

// handleTransportLoss tears down a dead transport, fails over its live
// exchanges and starts the reconnect loop.
func (c *Client) handleTransportLoss(t Transport, err error) {
	c.mu.Lock()
	if c.closed || c.transport != t {
		c.mu.Unlock()
		return
	}
	c.transport = nil
	done := make(chan struct{})
	c.connDone = done
	changed := c.setStateLocked(StateReconnecting)

	// Every live exchange lost its stream; each fails over exactly once.
	lost := make([]*Exchange, 0, len(c.exchanges))
	for _, ex := range c.exchanges {
		lost = append(lost, ex)
	}
	c.exchanges = make(map[string]*Exchange)
	c.mu.Unlock()

	t.Close()

	if changed {
		c.notifyState(StateReconnecting)
	}
	if c.cfg.logger != nil {
		c.cfg.logger.Warn("transport lost, reconnecting", slog.Any("error", err))
	}

	for _, ex := range lost {
		if ex.fail() {
			go c.failover(ex, &SendError{Op: "stream", Err: err})
		}
	}

	go c.reconnectLoop(done)
}

// reconnectLoop redials with exponential backoff up to the attempt bound.
// Waiters on done observe either StateConnected or the fatal connErr.
func (c *Client) reconnectLoop(done chan struct{}) {
	settle := func(state ConnectionState, err error) {
		c.mu.Lock()
		c.connErr = err
		changed := c.setStateLocked(state)
		c.mu.Unlock()
		close(done)
		if changed {
			c.notifyState(state)
		}
	}

	delay := c.cfg.reconnectBase
	var lastErr error

	for attempt := 1; attempt <= c.cfg.reconnectAttempts; attempt++ {
		select {
		case <-c.ctx.Done():
			settle(StateDisconnected, ErrClosed)
			return
		case <-time.After(delay):
		}

		err := c.dialAndInstall()
		if err == nil {
			settle(StateConnected, nil)
			if c.cfg.logger != nil {
				c.cfg.logger.Info("reconnected", slog.Int("attempt", attempt))
			}
			return
		}

		lastErr = err
		if c.cfg.logger != nil {
			c.cfg.logger.Warn("reconnect attempt failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
		}

		delay = min(delay*2, c.cfg.reconnectMax)
	}

	settle(StateDisconnected, &ConnectionError{Op: "reconnect", Err: errors.Join(ErrReconnectExhausted, lastErr)})
}

// watchdog treats prolonged inbound silence as a dropped transport. Closing
// the connection forces the read loop into its loss path.
func (c *Client) watchdog(t Transport) {
	interval := c.cfg.livenessTimeout / 4
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.RLock()
			current := c.transport
			c.mu.RUnlock()
			if current != t {
				return
			}

			idle := time.Since(time.Unix(0, c.lastActivity.Load()))
			if idle >= c.cfg.livenessTimeout {
				if c.cfg.logger != nil {
					c.cfg.logger.Warn("liveness timeout", slog.Duration("idle", idle))
				}
				t.Close()
				return
			}
		}
	}
}

// send sends a request through the live transport.
func (c *Client) send(ctx context.Context, req *LCRequest) error {
	c.mu.RLock()
	closed := c.closed
	t := c.transport
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}
	if t == nil {
		return &ConnectionError{Op: "send", Err: ErrNotConnected}
	}

	// Observability hook
	if c.cfg.onSend != nil {
		c.cfg.onSend(req)
	}

	if c.cfg.logger != nil {
		c.cfg.logger.Debug("sending request",
			slog.String("request", req.Request),
			slog.String("cid", req.CID),
		)
	}

	return t.Send(ctx, req)
}

// removeExchange drops an exchange from the live set.
func (c *Client) removeExchange(cid string) {
	c.mu.Lock()
	delete(c.exchanges, cid)
	c.mu.Unlock()
}

// Close tears down the client. Live exchanges receive OnError(ErrClosed).
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	t := c.transport
	c.transport = nil
	live := make([]*Exchange, 0, len(c.exchanges))
	for _, ex := range c.exchanges {
		live = append(live, ex)
	}
	c.exchanges = make(map[string]*Exchange)
	changed := c.setStateLocked(StateDisconnected)
	c.mu.Unlock()

	c.cancel()
	if changed {
		c.notifyState(StateDisconnected)
	}

	for _, ex := range live {
		ex.fail()
		ex.deliverError(ErrClosed)
	}

	if t != nil {
		return t.Close()
	}
	return nil
}

// setStateLocked updates the connection state; the caller must hold c.mu
// and invoke notifyState after unlocking when it reports a change.
func (c *Client) setStateLocked(s ConnectionState) bool {
	if c.state == s {
		return false
	}
	c.state = s
	return true
}

func (c *Client) notifyState(s ConnectionState) {
	if c.cfg.logger != nil {
		c.cfg.logger.Debug("connection state", slog.String("state", string(s)))
	}
	if c.cfg.onStateChange != nil {
		c.cfg.onStateChange(s)
	}
}
