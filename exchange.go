package locritchat

import (
	"strings"
	"sync"
	"time"
)

// ExchangeStatus represents the lifecycle state of an exchange.
type ExchangeStatus string

const (
	StatusStreaming ExchangeStatus = "streaming"
	StatusCompleted ExchangeStatus = "completed"
	StatusFailed    ExchangeStatus = "failed"
)

// Handlers is the callback set attached to a send. Exactly one of OnComplete
// or OnError fires per send, and OnChunk fires zero or more times strictly
// before it. Any handler may be nil.
type Handlers struct {
	OnChunk    func(delta string, ts time.Time)
	OnComplete func(text string, ts time.Time)
	OnError    func(err error)
}

// accumulator reassembles an ordered sequence of streamed deltas into the
// full message text.
type accumulator struct {
	sb strings.Builder
}

func (a *accumulator) append(delta string) {
	a.sb.WriteString(delta)
}

func (a *accumulator) snapshot() string {
	return a.sb.String()
}

func (a *accumulator) len() int {
	return a.sb.Len()
}

// Exchange tracks one in-flight message and its streamed response. It is
// created by [Client.Send] and discarded once it reaches a terminal status.
type Exchange struct {
	cid     string
	target  string
	content string

	mu        sync.Mutex
	sessionID string
	status    ExchangeStatus
	detached  bool
	delivered bool
	handlers  Handlers
	acc       accumulator
}

// CID returns the correlation id tying this exchange to its inbound events.
func (e *Exchange) CID() string {
	return e.cid
}

// Target returns the target the message was sent to.
func (e *Exchange) Target() string {
	return e.target
}

// SessionID returns the session the message was dispatched on. It is empty
// until the join handshake has resolved, and stays empty on the fallback path.
func (e *Exchange) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessionID
}

// Status returns the current exchange status.
func (e *Exchange) Status() ExchangeStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Detach stops handler delivery for this exchange. The in-flight operation
// still runs to its terminal status and is discarded; it cannot be
// re-attached.
func (e *Exchange) Detach() {
	e.mu.Lock()
	e.detached = true
	e.mu.Unlock()
}

// handleChunk appends a streamed delta and forwards it verbatim.
func (e *Exchange) handleChunk(delta string, ts time.Time) {
	e.mu.Lock()
	if e.status != StatusStreaming {
		e.mu.Unlock()
		return
	}
	e.acc.append(delta)
	detached := e.detached
	onChunk := e.handlers.OnChunk
	e.mu.Unlock()

	if !detached && onChunk != nil {
		onChunk(delta, ts)
	}
}

// handleComplete finishes a streamed exchange with the accumulated text.
func (e *Exchange) handleComplete(ts time.Time) {
	e.mu.Lock()
	if e.status != StatusStreaming || e.delivered {
		e.mu.Unlock()
		return
	}
	e.status = StatusCompleted
	e.delivered = true
	text := e.acc.snapshot()
	detached := e.detached
	onComplete := e.handlers.OnComplete
	e.mu.Unlock()

	if !detached && onComplete != nil {
		onComplete(text, ts)
	}
}

// fail transitions a streaming exchange to failed, discarding any partial
// content. It reports whether this call performed the transition, so exactly
// one failure path owns the fallback attempt.
func (e *Exchange) fail() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusStreaming {
		return false
	}
	e.status = StatusFailed
	return true
}

// deliverComplete reports the fallback result through OnComplete.
func (e *Exchange) deliverComplete(text string, ts time.Time) {
	e.mu.Lock()
	if e.delivered {
		e.mu.Unlock()
		return
	}
	e.delivered = true
	detached := e.detached
	onComplete := e.handlers.OnComplete
	e.mu.Unlock()

	if !detached && onComplete != nil {
		onComplete(text, ts)
	}
}

// deliverError reports a terminal failure through OnError.
func (e *Exchange) deliverError(err error) {
	e.mu.Lock()
	if e.delivered {
		e.mu.Unlock()
		return
	}
	e.delivered = true
	detached := e.detached
	onError := e.handlers.OnError
	e.mu.Unlock()

	if !detached && onError != nil {
		onError(err)
	}
}
