package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrUnavailable = errors.New("llm client unavailable")
	ErrTimeout     = errors.New("timeout")
	ErrEmptyOutput = errors.New("response without text output")
)

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// GenerateRequest is one request/response completion. Instructions is the
// system prompt, Input the user prompt. The deadline travels on the context.
type GenerateRequest struct {
	Model           string
	Instructions    string
	Input           string
	Temperature     float64
	MaxOutputTokens int
}

type GenerateResult struct {
	Text    string
	ModelID string
	Usage   TokenUsage
}

// TextGenerator is implemented by every LLM provider client.
type TextGenerator interface {
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
	Available() bool
}

// RetryPolicy controls provider retries on 429, 5xx and transport timeouts.
// The delay grows linearly with the attempt number.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries < 0 {
		p.MaxRetries = 0
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 350 * time.Millisecond
	}
	return p
}

// ProviderError is a non-2xx answer from a provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.StatusCode, e.Message)
}

// IsTimeout reports whether err is a provider or context deadline error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.StatusCode == http.StatusTooManyRequests || providerErr.StatusCode >= 500
	}
	return errors.Is(err, ErrTimeout)
}

func validateRequest(request GenerateRequest) error {
	if strings.TrimSpace(request.Model) == "" {
		return errors.New("model is required")
	}
	if strings.TrimSpace(request.Input) == "" {
		return errors.New("input is required")
	}
	return nil
}

// withRetries runs call until it succeeds, fails with a non-retryable error,
// exhausts the policy or the context ends.
func withRetries(
	ctx context.Context,
	policy RetryPolicy,
	call func(ctx context.Context) (GenerateResult, error),
) (GenerateResult, error) {
	policy = policy.normalized()

	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		result, err := call(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == policy.MaxRetries || ctx.Err() != nil {
			break
		}

		timer := time.NewTimer(policy.BaseDelay * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return GenerateResult{}, lastErr
		case <-timer.C:
		}
	}
	return GenerateResult{}, lastErr
}

// postJSON sends payload and returns the body of a 2xx answer.
func postJSON(
	ctx context.Context,
	client *http.Client,
	provider string,
	url string,
	headers map[string]string,
	payload []byte,
	timeout time.Duration,
) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", provider, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	for key, value := range headers {
		if value != "" {
			request.Header.Set(key, value)
		}
	}

	response, err := client.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s %w: %v", provider, ErrTimeout, err)
		}
		return nil, fmt.Errorf("%s transport error: %w", provider, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s body: %w", provider, err)
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		message := strings.TrimSpace(string(body))
		if len(message) > 700 {
			message = message[:700]
		}
		return nil, &ProviderError{Provider: provider, StatusCode: response.StatusCode, Message: message}
	}
	return body, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
