package locritchat

import "time"

// ConnectionState represents the liveness of the streaming transport.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// --- Requests (Client -> Server) ---

// LCRequest represents a request sent to the server.
type LCRequest struct {
	Request string      `json:"request"`
	CID     string      `json:"cid"`
	Data    interface{} `json:"data"`
}

// JoinData is the data for a join request.
type JoinData struct {
	Target    string `json:"target"`
	SessionID string `json:"session_id"`
}

// MessageData is the data for a message request.
type MessageData struct {
	Target    string `json:"target"`
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
	Sender    string `json:"sender,omitempty"`
}

// NewJoinRequest creates a new join request.
func NewJoinRequest(cid string, data JoinData) *LCRequest {
	return &LCRequest{
		Request: "join",
		CID:     cid,
		Data:    data,
	}
}

// NewMessageRequest creates a new message request.
func NewMessageRequest(cid string, data MessageData) *LCRequest {
	return &LCRequest{
		Request: "message",
		CID:     cid,
		Data:    data,
	}
}

// --- Events (Server -> Client) ---

// LCEvent represents an event received from the server.
type LCEvent struct {
	Event string `json:"event"`

	// Common fields
	CID       string `json:"cid,omitempty"`
	Target    string `json:"target,omitempty"`
	SessionID string `json:"session_id,omitempty"`

	// Chunk fields
	Delta string `json:"delta,omitempty"`

	// Timestamp in unix milliseconds, set on chunk and complete events.
	Timestamp int64 `json:"ts,omitempty"`

	// Error fields
	Reason string `json:"reason,omitempty"`
}

// Type returns the event type.
func (e *LCEvent) Type() string {
	return e.Event
}

// Time returns the event timestamp as a time.Time.
func (e *LCEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// IsJoined returns true if this is a joined event.
func (e *LCEvent) IsJoined() bool {
	return e.Event == "joined"
}

// IsChunk returns true if this is a chunk event.
func (e *LCEvent) IsChunk() bool {
	return e.Event == "chunk"
}

// IsComplete returns true if this is a complete event.
func (e *LCEvent) IsComplete() bool {
	return e.Event == "complete"
}

// IsError returns true if this is an error event.
func (e *LCEvent) IsError() bool {
	return e.Event == "error"
}
