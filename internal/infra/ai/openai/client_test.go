package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bryanwahyu/canscan/internal/domain/ai"
	"github.com/bryanwahyu/canscan/internal/domain/scans"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestClientAnalyzeParsesVerdict(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion(`{"match":true,"confidence":0.9}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "", srv.URL+"/v1")
	match, err := c.Analyze(context.Background(), scans.Image{Name: "a.png", Data: []byte("\x89PNG\r\n\x1a\n")})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !match {
		t.Fatal("expected match")
	}
	if gotModel != defaultModel {
		t.Fatalf("model = %q", gotModel)
	}
}

func TestClientAnalyzeQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gpt-4o-mini", srv.URL+"/v1")
	_, err := c.Analyze(context.Background(), scans.Image{Data: []byte("x")})
	if !errors.Is(err, ai.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestClientAnalyzeGarbageReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("I cannot help with that."))
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gpt-4o-mini", srv.URL+"/v1")
	_, err := c.Analyze(context.Background(), scans.Image{Data: []byte("x")})
	if !errors.Is(err, ai.ErrAnalysisUnavailable) {
		t.Fatalf("expected ErrAnalysisUnavailable, got %v", err)
	}
}
