package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// CompletionsClient talks to any OpenAI-compatible /v1/completions
// endpoint (vLLM, LM Studio). These runtimes pass raw prompts and stop
// strings straight through, which is enough to carry the structured
// tool-call wire format, so the client reports structured-capable = true.
type CompletionsClient struct {
	BaseURL     string
	ModelName   string
	APIKey      string
	MaxTokens   int
	Temperature float64

	httpClient *http.Client
}

func NewCompletionsClient(baseURL, modelName, apiKey string, timeout time.Duration) *CompletionsClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &CompletionsClient{
		BaseURL:     baseURL,
		ModelName:   modelName,
		APIKey:      apiKey,
		MaxTokens:   2048,
		Temperature: 0.1,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (c *CompletionsClient) SupportsStructured() bool {
	return true
}

type completionsRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	MaxTokens   int      `json:"max_tokens"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
	Stream      bool     `json:"stream"`
}

type completionsResponse struct {
	Choices []struct {
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func (c *CompletionsClient) Invoke(ctx context.Context, prompt string, stops []string) (string, error) {
	payload := completionsRequest{
		Model:       c.ModelName,
		Prompt:      prompt,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Stop:        stops,
		Stream:      false,
	}

	url := c.BaseURL + "/v1/completions"
	body, err := postJSONWithAuth(ctx, c.httpClient, url, c.APIKey, payload)
	if err != nil {
		return "", err
	}

	var resp completionsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", providerError("BAD_RESPONSE", "undecodable completions response", false, 0, err)
	}
	if resp.Error != nil {
		return "", providerError("GENERATION_FAILED", resp.Error.Message, false, 0, nil)
	}
	if len(resp.Choices) == 0 {
		return "", providerError("BAD_RESPONSE", "completions response has no choices", false, 0, nil)
	}
	return resp.Choices[0].Text, nil
}
