package locritchat

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/coder/websocket"
)

// Transport provides the interface for sending and receiving messages.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, req *LCRequest) error
	Receive(ctx context.Context) (*LCEvent, error)
	Close() error
}

// Dialer establishes a fresh Transport. The client calls it on the first
// connect and again on every reconnect attempt.
type Dialer func(ctx context.Context) (Transport, error)

// DialOptions configures the WebSocket connection.
type DialOptions struct {
	// HTTPHeader specifies additional HTTP headers to send during handshake.
	HTTPHeader http.Header

	// HTTPClient is the HTTP client used for the handshake.
	// If nil, http.DefaultClient is used.
	HTTPClient *http.Client
}

// Dial connects to a Locrit streaming endpoint and returns a Transport.
func Dial(ctx context.Context, url string, apiKey string, opts *DialOptions) (Transport, error) {
	headers := http.Header{}
	if opts != nil && opts.HTTPHeader != nil {
		headers = opts.HTTPHeader.Clone()
	}
	if apiKey != "" {
		headers.Set("Authorization", "Bearer "+apiKey)
	}

	dialOpts := &websocket.DialOptions{
		HTTPHeader:   headers,
		Subprotocols: []string{"locritchat.v1"},
	}
	if opts != nil && opts.HTTPClient != nil {
		dialOpts.HTTPClient = opts.HTTPClient
	}

	conn, _, err := websocket.Dial(ctx, url, dialOpts)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: url, Err: err}
	}

	// Accumulated responses can get large
	conn.SetReadLimit(16 * 1024 * 1024) // 16MB

	return &wsTransport{conn: conn}, nil
}

// WSDialer returns a Dialer that connects to the given WebSocket URL.
func WSDialer(url string, apiKey string, opts *DialOptions) Dialer {
	return func(ctx context.Context) (Transport, error) {
		return Dial(ctx, url, apiKey, opts)
	}
}

// wsTransport implements Transport over WebSocket.
type wsTransport struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

// Send sends a request to the server.
func (t *wsTransport) Send(ctx context.Context, req *LCRequest) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	data, err := json.Marshal(req)
	if err != nil {
		return &SendError{Op: "marshal", Err: err}
	}

	if err := t.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return &ConnectionError{Op: "write", Err: err}
	}

	return nil
}

// Receive receives an event from the server.
func (t *wsTransport) Receive(ctx context.Context) (*LCEvent, error) {
	_, data, err := t.conn.Read(ctx)
	if err != nil {
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		return nil, &ConnectionError{Op: "read", Err: err}
	}

	var event LCEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, &SendError{Op: "unmarshal", Err: err}
	}

	return &event, nil
}

// Close closes the transport.
func (t *wsTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	return t.conn.Close(websocket.StatusNormalClosure, "")
}
