// Package llm holds the model runtime clients. Only the token/text
// contract matters here: render in, raw completion out, halting on the
// provided stop markers.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaClient talks to a local Ollama daemon via /api/generate in raw
// mode. Ollama exposes no structured tool-call delimiters to us, so it
// reports structured-capable = false and answers take the free-text
// fallback path.
type OllamaClient struct {
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float64

	httpClient *http.Client
}

func NewOllamaClient(baseURL, modelName string, timeout time.Duration) *OllamaClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		BaseURL:     baseURL,
		ModelName:   modelName,
		MaxTokens:   2048,
		Temperature: 0.1,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *OllamaClient) SupportsStructured() bool {
	return false
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Raw     bool          `json:"raw"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64  `json:"temperature"`
	NumPredict  int      `json:"num_predict"`
	Stop        []string `json:"stop,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (c *OllamaClient) Invoke(ctx context.Context, prompt string, stops []string) (string, error) {
	payload := ollamaRequest{
		Model:  c.ModelName,
		Prompt: prompt,
		Raw:    true,
		Stream: false,
		Options: ollamaOptions{
			Temperature: c.Temperature,
			NumPredict:  c.MaxTokens,
			Stop:        stops,
		},
	}

	body, err := postJSON(ctx, c.httpClient, c.BaseURL+"/api/generate", payload)
	if err != nil {
		return "", err
	}

	var resp ollamaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", providerError("BAD_RESPONSE", "undecodable ollama response", false, 0, err)
	}
	if resp.Error != "" {
		return "", providerError("GENERATION_FAILED", resp.Error, false, 0, nil)
	}
	return resp.Response, nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, providerError("BAD_REQUEST", "unencodable request", false, 0, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, providerError("BAD_REQUEST", err.Error(), false, 0, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, providerError("TIMEOUT", "model call cancelled or timed out", false, 0, err)
		}
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

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
