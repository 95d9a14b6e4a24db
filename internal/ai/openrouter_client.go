package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OpenRouterClientConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	Retry      RetryPolicy
	HTTPClient *http.Client
	SiteURL    string
	AppName    string
}

// OpenRouterClient talks to the OpenAI compatible chat completions endpoint.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	retry      RetryPolicy
	httpClient *http.Client
	headers    map[string]string
}

func NewOpenRouterClient(config OpenRouterClientConfig) *OpenRouterClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://openrouter.ai/api/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	if strings.TrimSpace(config.AppName) == "" {
		config.AppName = "AI News Aggregator"
	}

	apiKey := strings.TrimSpace(config.APIKey)
	return &OpenRouterClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		timeout:    config.Timeout,
		retry:      config.Retry,
		httpClient: config.HTTPClient,
		headers: map[string]string{
			"Authorization": "Bearer " + apiKey,
			"HTTP-Referer":  strings.TrimSpace(config.SiteURL),
			"X-Title":       strings.TrimSpace(config.AppName),
		},
	}
}

func (c *OpenRouterClient) Available() bool {
	return c.apiKey != ""
}

func (c *OpenRouterClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrUnavailable
	}
	if err := validateRequest(request); err != nil {
		return GenerateResult{}, err
	}

	messages := make([]chatMessage, 0, 2)
	if instructions := strings.TrimSpace(request.Instructions); instructions != "" {
		messages = append(messages, chatMessage{Role: "system", Content: instructions})
	}
	messages = append(messages, chatMessage{Role: "user", Content: request.Input})

	encoded, err := json.Marshal(chatCompletionsRequest{
		Model:       request.Model,
		Messages:    messages,
		Temperature: request.Temperature,
		MaxTokens:   request.MaxOutputTokens,
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("marshal openrouter payload: %w", err)
	}

	return withRetries(ctx, c.retry, func(ctx context.Context) (GenerateResult, error) {
		body, err := postJSON(ctx, c.httpClient, "openrouter", c.baseURL+"/chat/completions", c.headers, encoded, c.timeout)
		if err != nil {
			return GenerateResult{}, err
		}
		return decodeChatCompletions(body, request.Model)
	})
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatCompletionsResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content any `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func decodeChatCompletions(body []byte, requestedModel string) (GenerateResult, error) {
	var raw chatCompletionsResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return GenerateResult{}, fmt.Errorf("decode openrouter response: %w", err)
	}

	text := ""
	if len(raw.Choices) > 0 {
		text = contentText(raw.Choices[0].Message.Content)
	}
	if text == "" {
		return GenerateResult{}, fmt.Errorf("openrouter: %w", ErrEmptyOutput)
	}

	return GenerateResult{
		Text:    text,
		ModelID: firstNonEmpty(raw.Model, requestedModel),
		Usage: TokenUsage{
			InputTokens:  raw.Usage.PromptTokens,
			OutputTokens: raw.Usage.CompletionTokens,
			TotalTokens:  raw.Usage.TotalTokens,
		},
	}, nil
}

// contentText accepts both the plain string form and the list of typed parts.
func contentText(content any) string {
	switch typed := content.(type) {
	case string:
		return strings.TrimSpace(typed)
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if text, _ := part["text"].(string); strings.TrimSpace(text) != "" {
				parts = append(parts, strings.TrimSpace(text))
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}
