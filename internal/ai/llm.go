package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/IshaanNene/ReviewGoat/internal/config"
)

// LLMProvider specifies which LLM backend to use.
type LLMProvider string

const (
	ProviderMistral   LLMProvider = "mistral"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderOllama    LLMProvider = "ollama"
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderCustom    LLMProvider = "custom"
)

const maxResponseBytes = 4 << 20

// LLMConfig configures the LLM integration.
type LLMConfig struct {
	Provider    LLMProvider
	Endpoint    string // e.g. "https://api.mistral.ai/v1", "http://localhost:11434"
	Model       string // default model when a call does not name one
	APIKey      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ConfigFromAnalysis maps the analysis section onto an LLMConfig. An unset
// endpoint resolves to the provider's default.
func ConfigFromAnalysis(cfg config.AnalysisConfig) LLMConfig {
	return LLMConfig{
		Provider:    LLMProvider(cfg.Provider),
		Endpoint:    strings.TrimRight(cfg.ResolvedEndpoint(), "/"),
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	}
}

// LLMClient sends prompts to the configured model provider.
type LLMClient struct {
	cfg       LLMConfig
	client    *http.Client
	anthropic *anthropic.Client
	logger    *slog.Logger
}

// NewLLMClient creates a new LLM client.
func NewLLMClient(cfg LLMConfig, logger *slog.Logger) *LLMClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &http.Transport{DisableCompression: true, Proxy: http.ProxyFromEnvironment},
	}

	c := &LLMClient{
		cfg:    cfg,
		client: httpClient,
		logger: logger.With("component", "llm_client", "provider", string(cfg.Provider)),
	}

	if cfg.Provider == ProviderAnthropic {
		opts := []option.RequestOption{
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0), // batch retries are the analyzer's job
		}
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(cfg.Endpoint))
		}
		ac := anthropic.NewClient(opts...)
		c.anthropic = &ac
	}

	return c
}

// Generate sends prompt to model (or the configured default) and returns the reply text.
func (c *LLMClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	if model == "" {
		model = c.cfg.Model
	}

	start := time.Now()
	var (
		out string
		err error
	)
	switch c.cfg.Provider {
	case ProviderMistral:
		out, err = c.generateChat(ctx, "https://api.mistral.ai/v1", model, prompt)
	case ProviderOpenAI:
		out, err = c.generateChat(ctx, "https://api.openai.com/v1", model, prompt)
	case ProviderOllama:
		out, err = c.generateOllama(ctx, model, prompt)
	case ProviderAnthropic:
		out, err = c.generateAnthropic(ctx, model, prompt)
	case ProviderCustom:
		out, err = c.generateCustom(ctx, model, prompt)
	default:
		return "", fmt.Errorf("unsupported LLM provider: %s", c.cfg.Provider)
	}

	c.logger.Debug("model call",
		"model", model,
		"prompt_chars", len(prompt),
		"reply_chars", len(out),
		"duration", time.Since(start),
		"error", err,
	)
	return out, err
}

// generateChat speaks the chat-completions protocol shared by Mistral and OpenAI.
func (c *LLMClient) generateChat(ctx context.Context, defaultEndpoint, model, prompt string) (string, error) {
	payload := map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  c.cfg.MaxTokens,
		"temperature": c.cfg.Temperature,
	}

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	body, err := c.post(ctx, endpoint+"/chat/completions", payload, true)
	if err != nil {
		return "", err
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.cfg.Provider, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", c.cfg.Provider)
	}
	return result.Choices[0].Message.Content, nil
}

func (c *LLMClient) generateOllama(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": c.cfg.Temperature,
			"num_predict": c.cfg.MaxTokens,
		},
	}

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}

	body, err := c.post(ctx, endpoint+"/api/generate", payload, false)
	if err != nil {
		return "", err
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return result.Response, nil
}

func (c *LLMClient) generateAnthropic(ctx context.Context, model, prompt string) (string, error) {
	maxTokens := c.cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	message, err := c.anthropic.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var sdkErr *anthropic.Error
		if errors.As(err, &sdkErr) {
			return "", &APIError{
				Provider:   string(ProviderAnthropic),
				StatusCode: sdkErr.StatusCode,
				Message:    sdkErr.Error(),
				Err:        err,
			}
		}
		return "", fmt.Errorf("anthropic request: %w", err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic returned empty response")
	}
	return sb.String(), nil
}

func (c *LLMClient) generateCustom(ctx context.Context, model, prompt string) (string, error) {
	payload := map[string]any{
		"prompt": prompt,
		"model":  model,
	}
	body, err := c.post(ctx, c.cfg.Endpoint, payload, c.cfg.APIKey != "")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// post sends a JSON request and returns the decoded body of a 2xx reply.
// Any other status becomes an *APIError.
func (c *LLMClient) post(ctx context.Context, url string, payload any, auth bool) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", acceptEncoding)
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.cfg.Provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Provider:   string(c.cfg.Provider),
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			RetryAfter: retryAfter(resp),
		}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			if msg, typ := eb.message(); msg != "" {
				apiErr.Message, apiErr.Type = msg, typ
			}
		}
		return nil, apiErr
	}
	return body, nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
