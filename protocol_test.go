package locritchat

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewJoinRequest(t *testing.T) {
	req := NewJoinRequest("cid-1", JoinData{Target: "sage", SessionID: "sess-1"})

	if req.Request != "join" {
		t.Errorf("Request = %s, want join", req.Request)
	}
	if req.CID != "cid-1" {
		t.Errorf("CID = %s, want cid-1", req.CID)
	}

	data := req.Data.(JoinData)
	if data.Target != "sage" || data.SessionID != "sess-1" {
		t.Errorf("Data = %+v", data)
	}
}

func TestNewMessageRequest(t *testing.T) {
	req := NewMessageRequest("cid-2", MessageData{
		Target:    "pixie",
		SessionID: "sess-2",
		Content:   "plan my day",
		Sender:    "user",
	})

	if req.Request != "message" {
		t.Errorf("Request = %s, want message", req.Request)
	}

	data := req.Data.(MessageData)
	if data.Target != "pixie" || data.Content != "plan my day" {
		t.Errorf("Data = %+v", data)
	}
}

func TestRequest_WireFormat(t *testing.T) {
	req := NewJoinRequest("cid-1", JoinData{Target: "sage", SessionID: "sess-1"})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if m["request"] != "join" {
		t.Errorf(`m["request"] = %v, want join`, m["request"])
	}
	inner := m["data"].(map[string]interface{})
	if inner["target"] != "sage" || inner["session_id"] != "sess-1" {
		t.Errorf("data = %v", inner)
	}
}

func TestEvent_Predicates(t *testing.T) {
	tests := []struct {
		event    string
		joined   bool
		chunk    bool
		complete bool
		isErr    bool
	}{
		{"joined", true, false, false, false},
		{"chunk", false, true, false, false},
		{"complete", false, false, true, false},
		{"error", false, false, false, true},
		{"heartbeat", false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			e := &LCEvent{Event: tt.event}
			if e.Type() != tt.event {
				t.Errorf("Type() = %s", e.Type())
			}
			if e.IsJoined() != tt.joined {
				t.Errorf("IsJoined() = %v", e.IsJoined())
			}
			if e.IsChunk() != tt.chunk {
				t.Errorf("IsChunk() = %v", e.IsChunk())
			}
			if e.IsComplete() != tt.complete {
				t.Errorf("IsComplete() = %v", e.IsComplete())
			}
			if e.IsError() != tt.isErr {
				t.Errorf("IsError() = %v", e.IsError())
			}
		})
	}
}

func TestEvent_Time(t *testing.T) {
	e := &LCEvent{Event: "chunk", Timestamp: 1700000000000}
	want := time.UnixMilli(1700000000000)
	if !e.Time().Equal(want) {
		t.Errorf("Time() = %v, want %v", e.Time(), want)
	}
}

func TestEvent_Decode(t *testing.T) {
	raw := `{"event":"chunk","cid":"cid-1","delta":"Bien","ts":42}`

	var e LCEvent
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if !e.IsChunk() {
		t.Error("IsChunk() = false")
	}
	if e.CID != "cid-1" || e.Delta != "Bien" || e.Timestamp != 42 {
		t.Errorf("event = %+v", e)
	}
}
