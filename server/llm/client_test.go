package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestResolveAPIConfigOpenAIDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("OPENAI_API_BASE", "")
	t.Setenv("OPENAI_BASE_URL", "")
	t.Setenv("OPENROUTER_API_BASE", "")
	t.Setenv("OPENROUTER_BASE_URL", "")
	cfg, err := resolveAPIConfig("gpt-4o-mini")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenAI {
		t.Fatalf("expected providerOpenAI, got %v", cfg.Kind)
	}
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected base URL %q", cfg.BaseURL)
	}
	if cfg.HeaderName != "Authorization" || cfg.HeaderPrefix != "Bearer " {
		t.Fatalf("unexpected auth header %q/%q", cfg.HeaderName, cfg.HeaderPrefix)
	}
}

func TestResolveAPIConfigDetectsOpenRouterFromBase(t *testing.T) {
	t.Setenv("OPENAI_API_BASE", "https://openrouter.ai/api/v1")
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENROUTER_SITE_URL", "https://example.com/app")
	t.Setenv("OPENROUTER_TITLE", "Digit Duel")
	cfg, err := resolveAPIConfig("meta-llama/llama-3.1-70b-instruct")
	if err != nil {
		t.Fatalf("resolveAPIConfig returned error: %v", err)
	}
	if cfg.Kind != providerOpenRouter {
		t.Fatalf("expected providerOpenRouter, got %v", cfg.Kind)
	}
	if got := cfg.ExtraHeaders["HTTP-Referer"]; got != "https://example.com/app" {
		t.Fatalf("unexpected HTTP-Referer %q", got)
	}
	if got := cfg.ExtraHeaders["X-Title"]; got != "Digit Duel" {
		t.Fatalf("unexpected X-Title %q", got)
	}
}

func TestResolveAPIConfigMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENROUTER_API_KEY", "")
	if _, err := resolveAPIConfig("gpt-4o-mini"); err == nil {
		t.Fatal("expected error when no key is set")
	}
}

func TestResolveAPIConfigMissingModel(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_MODEL", "")
	t.Setenv("OPENROUTER_MODEL", "")
	if _, err := resolveAPIConfig(""); err == nil {
		t.Fatal("expected error when no model is set")
	}
}

func TestGenerateSendsParamsAndParsesReply(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  *0, 2*  "}}]}`))
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", srv.URL)

	c := &Client{Model: "gpt-4o-mini"}
	text, err := c.Generate(context.Background(), "system prompt", "12345 54321", Params{Temperature: 0.6, TopP: 0.8, MaxTokens: 40})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if text != "*0, 2*" {
		t.Fatalf("Generate = %q, want trimmed reply", text)
	}
	if got["model"] != "gpt-4o-mini" {
		t.Fatalf("request model = %v", got["model"])
	}
	if got["temperature"] != 0.6 || got["top_p"] != 0.8 {
		t.Fatalf("sampling params not forwarded: %v", got)
	}
	if got["max_tokens"] != float64(40) {
		t.Fatalf("max_tokens = %v, want 40", got["max_tokens"])
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", srv.URL)

	c := &Client{Model: "gpt-4o-mini"}
	if _, err := c.Generate(context.Background(), "s", "u", Params{}); err == nil {
		t.Fatal("expected error on non-2xx status")
	}
}

func TestGenerateHonorsContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_API_BASE", srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := &Client{Model: "gpt-4o-mini"}
	start := time.Now()
	_, err := c.Generate(ctx, "s", "u", Params{})
	if err == nil {
		t.Fatal("expected error from cancelled call")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("call was not cancelled promptly, took %v", elapsed)
	}
}
