package locritchat

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Session is a live conversation handle between this client and one target.
// At most one Session exists per target at any time.
type Session struct {
	Target    string
	ID        string
	CreatedAt time.Time

	// epoch is the connection generation the session was last joined on.
	// A session from an earlier generation must be rejoined before use.
	epoch uint64
}

// sessionNamespace seeds the UUIDv5 derivation of session ids.
var sessionNamespace = uuid.MustParse("8f3b2a1c-6d54-4e0b-9c7a-2f1d8e5b4a30")

// sessionID derives a stable session identifier from the sender identity and
// the target, so a rejoin after a reconnect reuses the same identifier and
// the remote side can correlate history.
func sessionID(sender, target string) string {
	return uuid.NewSHA1(sessionNamespace, []byte(sender+"/"+target)).String()
}

// ensureSession returns the live session for target, performing the join
// handshake if no session exists or the existing one predates the current
// connection. Join failures are not retried here; the dispatcher decides
// whether to fall back.
func (c *Client) ensureSession(ctx context.Context, target string) (*Session, error) {
	c.mu.RLock()
	epoch := c.epoch
	sess, ok := c.sessions[target]
	c.mu.RUnlock()

	if ok && sess.epoch == epoch {
		return sess, nil
	}

	sid := sessionID(c.cfg.sender, target)
	cid := uuid.New().String()

	ch := make(chan *LCEvent, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[cid] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, cid)
		c.mu.Unlock()
	}()

	req := NewJoinRequest(cid, JoinData{Target: target, SessionID: sid})
	if err := c.send(ctx, req); err != nil {
		return nil, &SessionJoinError{Target: target, SessionID: sid, Err: err}
	}

	joinCtx, cancel := context.WithTimeout(ctx, c.cfg.joinTimeout)
	defer cancel()

	select {
	case <-joinCtx.Done():
		return nil, &SessionJoinError{Target: target, SessionID: sid, Err: joinCtx.Err()}
	case <-c.ctx.Done():
		return nil, ErrClosed
	case event := <-ch:
		if event.IsError() {
			return nil, &SessionJoinError{Target: target, SessionID: sid, Reason: event.Reason}
		}
		if !event.IsJoined() {
			return nil, &SessionJoinError{Target: target, SessionID: sid, Err: ErrUnexpectedEvent}
		}

		c.mu.Lock()
		sess, ok := c.sessions[target]
		if !ok {
			sess = &Session{Target: target, ID: sid, CreatedAt: time.Now()}
			c.sessions[target] = sess
		}
		sess.epoch = epoch
		c.mu.Unlock()

		return sess, nil
	}
}

// SessionFor returns the registered session for target, if any. The session
// may be stale if the connection dropped since it was joined.
func (c *Client) SessionFor(target string) (*Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.sessions[target]
	return sess, ok
}
