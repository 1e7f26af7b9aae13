package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("auth = %q", auth)
		}
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"riskScore\": 60}"}}]}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "test-key", "gpt-4o-mini", 2*time.Second)
	out, err := c.Complete(context.Background(), "score this loan", 0.5, 250)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"riskScore": 60}` {
		t.Fatalf("out=%q", out)
	}

	if got.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", got.Model)
	}
	if got.Temperature != 0.5 || got.MaxTokens != 250 || got.TopP != 1.0 {
		t.Errorf("sampling params: %+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "score this loan" {
		t.Errorf("messages: %+v", got.Messages)
	}
}

func TestComplete_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "k", "m", 2*time.Second)
	_, err := c.Complete(context.Background(), "p", 0.5, 250)
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("err=%v", err)
	}
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewChatClient(srv.URL, "k", "m", 2*time.Second)
	_, err := c.Complete(context.Background(), "p", 0.5, 250)
	if err == nil || !strings.Contains(err.Error(), "no choices") {
		t.Fatalf("err=%v", err)
	}
}

func TestComplete_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewChatClient(srv.URL, "k", "m", 2*time.Second)
	if _, err := c.Complete(ctx, "p", 0.5, 250); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}
