package responder

import (
	"context"
	"net/http"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

const (
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultOpenAIModel = "gpt-4o-mini"
)

// OpenAIClient calls the chat completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIClient) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	messages := append([]chatMessage{{Role: "system", Content: prompt.System}}, ChatMessages(prompt)...)
	var out completionResponse
	err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions",
		map[string]string{"Authorization": "Bearer " + c.apiKey},
		completionRequest{Model: model, Messages: messages, Temperature: temperature, MaxTokens: maxOutputTokens},
		&out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.ErrEmptyResponse
	}
	text := strings.TrimSpace(out.Choices[0].Message.Content)
	if text == "" {
		return "", errors.ErrEmptyResponse
	}
	return text, nil
}
