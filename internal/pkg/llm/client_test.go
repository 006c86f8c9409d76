package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docpilot/backend/config"
)

func TestClientCompleteJSONMode(t *testing.T) {
	var gotReq ChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request error: %v", err)
		}
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"ok":true}`}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.LLM.APIURL = server.URL
	cfg.LLM.APIKey = "test-key"
	cfg.LLM.Model = "test-model"

	client := NewClient(cfg)
	content, err := client.Complete(context.Background(), []ChatMessage{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
	}, Options{Temperature: 0.3, JSONMode: true})
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content: %s", content)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %+v", gotReq.ResponseFormat)
	}
	if gotReq.Temperature != 0.3 {
		t.Fatalf("unexpected temperature: %v", gotReq.Temperature)
	}
}

func TestClientCompleteAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.LLM.APIURL = server.URL
	cfg.LLM.APIKey = "k"

	client := NewClient(cfg)
	_, err := client.Complete(context.Background(), []ChatMessage{{Role: "user", Content: "hi"}}, Options{})
	if err == nil {
		t.Fatalf("expected error from API error payload")
	}
}
