package locritchat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FallbackResult is the outcome of a synchronous chat request.
type FallbackResult struct {
	Text      string
	Timestamp time.Time
}

// Fallback issues a single synchronous request/response chat call. It is
// used whenever the streaming path cannot be, producing a whole-message
// result through the same handler contract.
type Fallback interface {
	RequestResponse(ctx context.Context, target, content, sender string) (*FallbackResult, error)
}

// HTTPFallback implements Fallback against the POST /chat endpoint.
type HTTPFallback struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPFallback creates a fallback client targeting the given base URL
// (e.g. "https://locrits.example.com"). If client is nil, a default with a
// 30 second timeout is used.
func NewHTTPFallback(baseURL, apiKey string, client *http.Client) *HTTPFallback {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPFallback{baseURL: baseURL, apiKey: apiKey, client: client}
}

type chatRequest struct {
	Target  string `json:"target"`
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
}

type chatResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
	Error     string `json:"error,omitempty"`
}

// RequestResponse performs one POST /chat call. No retries; network errors,
// non-success statuses and malformed payloads all collapse to FallbackError
// with the cause attached.
func (f *HTTPFallback) RequestResponse(ctx context.Context, target, content, sender string) (*FallbackResult, error) {
	body, err := json.Marshal(chatRequest{Target: target, Content: content, Sender: sender})
	if err != nil {
		return nil, &FallbackError{Target: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, &FallbackError{Target: target, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FallbackError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &FallbackError{
			Target: target,
			Err:    fmt.Errorf("chat failed (%d): %s", resp.StatusCode, string(respBody)),
		}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, &FallbackError{Target: target, Err: err}
	}

	if !cr.Success {
		reason := cr.Error
		if reason == "" {
			reason = "request rejected"
		}
		return nil, &FallbackError{Target: target, Err: errors.New(reason)}
	}

	ts := time.Now()
	if cr.Timestamp != 0 {
		ts = time.UnixMilli(cr.Timestamp)
	}

	return &FallbackResult{Text: cr.Response, Timestamp: ts}, nil
}
