package locritchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPFallback_Success(t *testing.T) {
	var got chatRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode error: %v", err)
		}
		json.NewEncoder(w).Encode(chatResponse{
			Success:   true,
			Response:  "Bonjour!",
			Timestamp: 1700000000000,
		})
	}))
	defer srv.Close()

	fb := NewHTTPFallback(srv.URL, "secret", nil)

	res, err := fb.RequestResponse(context.Background(), "sage", "hello", "user")
	if err != nil {
		t.Fatalf("RequestResponse error: %v", err)
	}

	if res.Text != "Bonjour!" {
		t.Errorf("Text = %q, want Bonjour!", res.Text)
	}
	if res.Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("Timestamp = %v", res.Timestamp)
	}
	if got.Target != "sage" || got.Content != "hello" || got.Sender != "user" {
		t.Errorf("request body = %+v", got)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestHTTPFallback_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	fb := NewHTTPFallback(srv.URL, "", nil)

	_, err := fb.RequestResponse(context.Background(), "sage", "hello", "user")

	var fe *FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T %v, want *FallbackError", err, err)
	}
	if fe.Target != "sage" {
		t.Errorf("Target = %q, want sage", fe.Target)
	}
}

func TestHTTPFallback_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Success: false, Error: "unknown target"})
	}))
	defer srv.Close()

	fb := NewHTTPFallback(srv.URL, "", nil)

	_, err := fb.RequestResponse(context.Background(), "ghost", "hello", "user")

	var fe *FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T %v, want *FallbackError", err, err)
	}
	if fe.Err.Error() != "unknown target" {
		t.Errorf("cause = %v, want unknown target", fe.Err)
	}
}

func TestHTTPFallback_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	fb := NewHTTPFallback(srv.URL, "", nil)

	_, err := fb.RequestResponse(context.Background(), "sage", "hello", "user")

	var fe *FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T %v, want *FallbackError", err, err)
	}
}

func TestHTTPFallback_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	fb := NewHTTPFallback(srv.URL, "", nil)

	_, err := fb.RequestResponse(context.Background(), "sage", "hello", "user")

	var fe *FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T %v, want *FallbackError", err, err)
	}
}

func TestHTTPFallback_MissingTimestamp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatResponse{Success: true, Response: "hi"})
	}))
	defer srv.Close()

	fb := NewHTTPFallback(srv.URL, "", nil)

	res, err := fb.RequestResponse(context.Background(), "sage", "hello", "user")
	if err != nil {
		t.Fatalf("RequestResponse error: %v", err)
	}
	if res.Timestamp.IsZero() {
		t.Error("Timestamp is zero, want local receive time")
	}
}
