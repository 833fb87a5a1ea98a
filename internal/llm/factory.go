package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campfire/internal/model"
)

// Provider names accepted by the factory.
var Providers = []string{"ollama", "vllm", "lmstudio"}

// Options for constructing a model client.
type Options struct {
	Provider    string
	BaseURL     string
	ModelName   string
	APIKey      string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// New builds a model client for the configured provider. vLLM and LM
// Studio share the OpenAI-compatible completions surface and differ only
// in defaults.
func New(opts Options) (model.Model, error) {
	provider := strings.ToLower(strings.TrimSpace(opts.Provider))
	switch provider {
	case "ollama":
		c := NewOllamaClient(defaultBase(opts.BaseURL, "http://127.0.0.1:11434"), opts.ModelName, opts.Timeout)
		applyTuning(&c.MaxTokens, &c.Temperature, opts)
		return c, nil
	case "vllm":
		c := NewCompletionsClient(defaultBase(opts.BaseURL, "http://127.0.0.1:8000"), opts.ModelName, opts.APIKey, opts.Timeout)
		applyTuning(&c.MaxTokens, &c.Temperature, opts)
		return c, nil
	case "lmstudio":
		c := NewCompletionsClient(defaultBase(opts.BaseURL, "http://127.0.0.1:1234"), opts.ModelName, opts.APIKey, opts.Timeout)
		applyTuning(&c.MaxTokens, &c.Temperature, opts)
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q; allowed: %s", opts.Provider, strings.Join(Providers, ", "))
	}
}

func defaultBase(url, fallback string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return fallback
	}
	return url
}

func applyTuning(maxTokens *int, temperature *float64, opts Options) {
	if opts.MaxTokens > 0 {
		*maxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		*temperature = opts.Temperature
	}
}

func providerError(code, message string, retryable bool, status int, cause error) *model.ProviderError {
	return &model.ProviderError{
		Code:       code,
		Message:    message,
		Retryable:  retryable,
		StatusCode: status,
		Cause:      cause,
	}
}

func postJSONWithAuth(ctx context.Context, client *http.Client, url, apiKey string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, providerError("BAD_REQUEST", "unencodable request", false, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, providerError("BAD_REQUEST", err.Error(), false, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, providerError("TRANSPORT", err.Error(), true, 0, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providerError("TRANSPORT", err.Error(), true, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return nil, providerError(
			"HTTP_STATUS",
			fmt.Sprintf("%s returned %d: %s", url, resp.StatusCode, truncate(string(body), 200)),
			retryable,
			resp.StatusCode,
			nil,
		)
	}
	return body, nil
}
