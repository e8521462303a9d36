package locritchat

import (
	"log/slog"
	"time"
)

// ClientOption configures a locritchat client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	logger        *slog.Logger
	onSend        func(*LCRequest)
	onReceive     func(*LCEvent)
	onStateChange func(ConnectionState)

	sender      string
	joinTimeout time.Duration

	reconnectBase     time.Duration
	reconnectMax      time.Duration
	reconnectAttempts int

	livenessTimeout time.Duration
}

func defaultConfig() clientConfig {
	return clientConfig{
		sender:            "user",
		joinTimeout:       10 * time.Second,
		reconnectBase:     1 * time.Second,
		reconnectMax:      30 * time.Second,
		reconnectAttempts: 5,
		livenessTimeout:   60 * time.Second,
	}
}

// WithLogger sets a structured logger for the client.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithOnSend sets a callback invoked before each request is sent.
func WithOnSend(fn func(*LCRequest)) ClientOption {
	return func(c *clientConfig) {
		c.onSend = fn
	}
}

// WithOnReceive sets a callback invoked after each event is received.
func WithOnReceive(fn func(*LCEvent)) ClientOption {
	return func(c *clientConfig) {
		c.onReceive = fn
	}
}

// WithOnStateChange sets a callback invoked on every connection state
// transition. It is called synchronously; keep it fast.
func WithOnStateChange(fn func(ConnectionState)) ClientOption {
	return func(c *clientConfig) {
		c.onStateChange = fn
	}
}

// WithSender sets the sender label attached to outbound messages. Session
// identifiers are derived from it, so changing the label starts fresh
// sessions. Defaults to "user".
func WithSender(label string) ClientOption {
	return func(c *clientConfig) {
		c.sender = label
	}
}

// WithJoinTimeout bounds how long a join handshake may wait for its ack.
func WithJoinTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.joinTimeout = d
	}
}

// WithReconnect sets the reconnection schedule: the initial delay, the delay
// cap, and the number of attempts before the connection is reported lost.
func WithReconnect(base, max time.Duration, attempts int) ClientOption {
	return func(c *clientConfig) {
		c.reconnectBase = base
		c.reconnectMax = max
		c.reconnectAttempts = attempts
	}
}

// WithLivenessTimeout sets the window of inbound silence tolerated while
// connected before the transport is treated as dropped. Zero disables the
// watchdog.
func WithLivenessTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.livenessTimeout = d
	}
}
