package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campfire/internal/model"
)

func TestOllamaInvoke(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Response: "  pinch the nose  "})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "llama3.1:8b", time.Second)
	out, err := c.Invoke(context.Background(), "PROMPT", []string{"<|call|>", "<|end|>"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "  pinch the nose  " {
		t.Fatalf("output %q", out)
	}
	if !got.Raw || got.Stream {
		t.Fatalf("raw/stream flags wrong: %+v", got)
	}
	if got.Prompt != "PROMPT" || len(got.Options.Stop) != 2 {
		t.Fatalf("request %+v", got)
	}
	if c.SupportsStructured() {
		t.Fatal("ollama client must report structured=false")
	}
}

func TestOllamaHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "m", time.Second)
	_, err := c.Invoke(context.Background(), "p", nil)

	var perr *model.ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("want ProviderError, got %v", err)
	}
	if perr.Code != "HTTP_STATUS" || !perr.Retryable || perr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("provider error %+v", perr)
	}
}

func TestOllamaGenerationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaResponse{Error: "model not found"})
	}))
	defer srv.Close()

	c := NewOllamaClient(srv.URL, "m", time.Second)
	_, err := c.Invoke(context.Background(), "p", nil)

	var perr *model.ProviderError
	if !errors.As(err, &perr) || perr.Code != "GENERATION_FAILED" {
		t.Fatalf("want GENERATION_FAILED, got %v", err)
	}
}

func TestCompletionsInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/completions" {
			t.Errorf("path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization %q", auth)
		}
		var req completionsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Stream {
			t.Error("stream must be false")
		}
		_, _ = w.Write([]byte(`{"choices":[{"text":"answer text","finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewCompletionsClient(srv.URL, "mistral-7b", "secret", time.Second)
	out, err := c.Invoke(context.Background(), "p", []string{"<|end|>"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "answer text" {
		t.Fatalf("output %q", out)
	}
	if !c.SupportsStructured() {
		t.Fatal("completions client must report structured=true")
	}
}

func TestCompletionsNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := NewCompletionsClient(srv.URL, "m", "", time.Second)
	_, err := c.Invoke(context.Background(), "p", nil)

	var perr *model.ProviderError
	if !errors.As(err, &perr) || perr.Code != "BAD_RESPONSE" {
		t.Fatalf("want BAD_RESPONSE, got %v", err)
	}
}

func TestFactory(t *testing.T) {
	for _, provider := range Providers {
		mdl, err := New(Options{Provider: provider, ModelName: "m"})
		if err != nil {
			t.Fatalf("provider %q: %v", provider, err)
		}
		if mdl == nil {
			t.Fatalf("provider %q returned nil model", provider)
		}
	}

	if _, err := New(Options{Provider: "bedrock", ModelName: "m"}); err == nil {
		t.Fatal("unknown provider accepted")
	}

	mdl, err := New(Options{Provider: "OLLAMA", ModelName: "m", BaseURL: "http://host:11434/"})
	if err != nil {
		t.Fatalf("case-insensitive provider: %v", err)
	}
	c, ok := mdl.(*OllamaClient)
	if !ok {
		t.Fatalf("wrong client type %T", mdl)
	}
	if c.BaseURL != "http://host:11434" {
		t.Fatalf("base url not normalized: %q", c.BaseURL)
	}
}
