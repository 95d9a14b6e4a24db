package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type OpenAIClientConfig struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	Retry        RetryPolicy
	HTTPClient   *http.Client
	Organization string
}

// OpenAIClient uses the Responses API.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	retry      RetryPolicy
	httpClient *http.Client
	headers    map[string]string
}

func NewOpenAIClient(config OpenAIClientConfig) *OpenAIClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}

	apiKey := strings.TrimSpace(config.APIKey)
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		timeout:    config.Timeout,
		retry:      config.Retry,
		httpClient: config.HTTPClient,
		headers: map[string]string{
			"Authorization":       "Bearer " + apiKey,
			"OpenAI-Organization": strings.TrimSpace(config.Organization),
		},
	}
}

func (c *OpenAIClient) Available() bool {
	return c.apiKey != ""
}

func (c *OpenAIClient) Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error) {
	if !c.Available() {
		return GenerateResult{}, ErrUnavailable
	}
	if err := validateRequest(request); err != nil {
		return GenerateResult{}, err
	}

	encoded, err := json.Marshal(map[string]any{
		"model":             request.Model,
		"input":             request.Input,
		"instructions":      request.Instructions,
		"temperature":       request.Temperature,
		"max_output_tokens": request.MaxOutputTokens,
	})
	if err != nil {
		return GenerateResult{}, fmt.Errorf("marshal openai payload: %w", err)
	}

	return withRetries(ctx, c.retry, func(ctx context.Context) (GenerateResult, error) {
		body, err := postJSON(ctx, c.httpClient, "openai", c.baseURL+"/responses", c.headers, encoded, c.timeout)
		if err != nil {
			return GenerateResult{}, err
		}
		return decodeResponses(body, request.Model)
	})
}

type responsesAPIResponse struct {
	Model  string `json:"model"`
	Output []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	OutputText string `json:"output_text"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func decodeResponses(body []byte, requestedModel string) (GenerateResult, error) {
	var raw responsesAPIResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return GenerateResult{}, fmt.Errorf("decode openai response: %w", err)
	}

	text := strings.TrimSpace(raw.OutputText)
	if text == "" {
		parts := make([]string, 0)
		for _, output := range raw.Output {
			for _, content := range output.Content {
				if content.Type != "output_text" && content.Type != "text" {
					continue
				}
				if trimmed := strings.TrimSpace(content.Text); trimmed != "" {
					parts = append(parts, trimmed)
				}
			}
		}
		text = strings.Join(parts, "\n")
	}
	if text == "" {
		return GenerateResult{}, fmt.Errorf("openai: %w", ErrEmptyOutput)
	}

	return GenerateResult{
		Text:    text,
		ModelID: firstNonEmpty(raw.Model, requestedModel),
		Usage: TokenUsage{
			InputTokens:  raw.Usage.InputTokens,
			OutputTokens: raw.Usage.OutputTokens,
			TotalTokens:  raw.Usage.TotalTokens,
		},
	}, nil
}
