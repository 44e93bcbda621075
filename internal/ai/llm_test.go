package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/ReviewGoat/internal/config"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

func chatReply(content string) []byte {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return b
}

func TestGenerateMistral(t *testing.T) {
	var gotModel, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotModel = req.Model
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(chatReply("REVIEW 1:\nSUMMARY: ok"))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{
		Provider: ProviderMistral,
		Endpoint: srv.URL + "/v1",
		Model:    "mistral-large-latest",
		APIKey:   "secret",
	}, testLogger)

	out, err := c.Generate(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "REVIEW 1:\nSUMMARY: ok" {
		t.Errorf("unexpected reply %q", out)
	}
	if gotModel != "mistral-large-latest" {
		t.Errorf("expected default model, got %q", gotModel)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
}

func TestGenerateBrotliReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "br") {
			t.Errorf("expected br in Accept-Encoding, got %q", r.Header.Get("Accept-Encoding"))
		}
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		_, _ = bw.Write(chatReply("compressed"))
		_ = bw.Close()
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{Provider: ProviderOpenAI, Endpoint: srv.URL, Model: "m"}, testLogger)
	out, err := c.Generate(context.Background(), "m", "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "compressed" {
		t.Errorf("expected decoded reply, got %q", out)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"object":"error","message":"Requests rate limit exceeded","type":"rate_limited"}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{Provider: ProviderMistral, Endpoint: srv.URL, Model: "m"}, testLogger)
	_, err := c.Generate(context.Background(), "", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRateLimit(err) {
		t.Errorf("expected rate limit classification for %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Errorf("expected Retry-After 7s, got %v", apiErr.RetryAfter)
	}
	if apiErr.Message != "Requests rate limit exceeded" {
		t.Errorf("unexpected message %q", apiErr.Message)
	}
}

func TestGenerateServerErrorIsNotRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{Provider: ProviderOpenAI, Endpoint: srv.URL, Model: "m"}, testLogger)
	_, err := c.Generate(context.Background(), "", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsRateLimit(err) {
		t.Errorf("500 must not be classified as rate limit: %v", err)
	}
}

func TestGenerateOllama(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"response":"local reply"}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{Provider: ProviderOllama, Endpoint: srv.URL, Model: "llama3"}, testLogger)
	out, err := c.Generate(context.Background(), "", "hi")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "local reply" {
		t.Errorf("unexpected reply %q", out)
	}
}

func TestGenerateAnthropicRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	c := NewLLMClient(LLMConfig{Provider: ProviderAnthropic, Endpoint: srv.URL, Model: "claude-test", APIKey: "k"}, testLogger)
	_, err := c.Generate(context.Background(), "", "hi")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRateLimit(err) {
		t.Errorf("expected rate limit classification for %v", err)
	}
}

func TestUnsupportedProvider(t *testing.T) {
	c := NewLLMClient(LLMConfig{Provider: "bard"}, testLogger)
	if _, err := c.Generate(context.Background(), "", "hi"); err == nil {
		t.Error("expected unsupported provider error")
	}
}

func TestIsRateLimit(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&APIError{StatusCode: 429}, true},
		{&APIError{StatusCode: 400, Type: "rate_limit_error"}, true},
		{&APIError{StatusCode: 401, Type: "unauthorized"}, false},
		{fmt.Errorf("batch 2: %w", &APIError{StatusCode: 429}), true},
		{errors.New("Rate limit reached for requests"), true},
		{errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		if got := IsRateLimit(tt.err); got != tt.want {
			t.Errorf("IsRateLimit(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestConfigFromAnalysisEndpoints(t *testing.T) {
	tests := []struct {
		provider string
		endpoint string
		want     string
	}{
		{"mistral", "", "https://api.mistral.ai/v1"},
		{"openai", "", "https://api.openai.com/v1"},
		{"ollama", "", "http://localhost:11434"},
		{"anthropic", "", ""},
		{"openai", "http://localhost:4000/v1/", "http://localhost:4000/v1"},
	}

	for _, tt := range tests {
		got := ConfigFromAnalysis(config.AnalysisConfig{Provider: tt.provider, Endpoint: tt.endpoint})
		if got.Endpoint != tt.want {
			t.Errorf("%s/%q: endpoint = %q, want %q", tt.provider, tt.endpoint, got.Endpoint, tt.want)
		}
	}
}
