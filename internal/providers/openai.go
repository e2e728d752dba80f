package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dshills/sqlgate/internal/config"
)

const defaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAI implements the Reviewer interface for OpenAI-compatible chat
// completion APIs.
type OpenAI struct {
	name    string
	apiKey  string
	model   string
	baseURL string
	prompt  Prompt
	client  *http.Client
}

// NewOpenAI creates an OpenAI provider from cfg.OpenAIKey and
// cfg.OpenAIBaseURL.
func NewOpenAI(cfg config.GenerativeConfig, prompt Prompt) (*OpenAI, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is not set (OPENAI_API_KEY)")
	}
	baseURL := cfg.OpenAIBaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIURL
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAI{
		name:    "openai",
		apiKey:  cfg.OpenAIKey,
		model:   model,
		baseURL: baseURL,
		prompt:  prompt,
		client:  &http.Client{Timeout: timeoutOr(cfg.Timeout, 120*time.Second)},
	}, nil
}

// NewOllama creates a provider for Ollama and LM Studio, which serve the
// OpenAI chat completion API locally. No API key is required by default.
func NewOllama(cfg config.GenerativeConfig, prompt Prompt) (*OpenAI, error) {
	baseURL := cfg.OllamaHost
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	// Normalize URL: strip trailing /, /v1, /v1/chat/completions
	baseURL = strings.TrimRight(baseURL, "/")
	baseURL = strings.TrimSuffix(baseURL, "/v1/chat/completions")
	baseURL = strings.TrimSuffix(baseURL, "/v1")

	model := cfg.Model
	if model == "" {
		model = "qwen2.5-coder"
	}
	return &OpenAI{
		name:    "ollama",
		apiKey:  cfg.OllamaKey,
		model:   model,
		baseURL: baseURL + "/v1/chat/completions",
		prompt:  prompt,
		client:  &http.Client{Timeout: timeoutOr(cfg.Timeout, 300*time.Second)},
	}, nil
}

func timeoutOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Review(ctx context.Context, req ReviewRequest) (ReviewResponse, error) {
	body := openaiRequest{
		Model: o.model,
		Messages: []openaiMessage{
			{Role: "system", Content: o.prompt.SystemPrompt()},
			{Role: "user", Content: o.prompt.BuildUserPrompt(req)},
		},
		MaxTokens:   2048,
		Temperature: 0,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(payload))
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	httpResp, err := o.client.Do(httpReq)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("sending request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return ReviewResponse{}, fmt.Errorf("reading response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return ReviewResponse{}, statusError(httpResp.StatusCode, respBody)
	}

	var result openaiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return ReviewResponse{}, fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Choices) == 0 {
		return ReviewResponse{}, fmt.Errorf("no choices in response")
	}
	content := result.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return ReviewResponse{}, ErrEmptyReport
	}
	return ReviewResponse{Content: content}, nil
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Message openaiMessage `json:"message"`
}
