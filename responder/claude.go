package responder

import (
	"context"
	"net/http"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

const (
	DefaultClaudeURL   = "https://api.anthropic.com/v1"
	DefaultClaudeModel = "claude-3-haiku-20240307"
	anthropicVersion   = "2023-06-01"
)

// ClaudeClient calls the Anthropic messages endpoint.
type ClaudeClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClaudeClient(apiKey, baseURL string) *ClaudeClient {
	if baseURL == "" {
		baseURL = DefaultClaudeURL
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (c *ClaudeClient) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	var out messagesResponse
	err := postJSON(ctx, c.httpClient, c.baseURL+"/messages",
		map[string]string{"x-api-key": c.apiKey, "anthropic-version": anthropicVersion},
		messagesRequest{
			Model:       model,
			System:      prompt.System,
			Messages:    ChatMessages(prompt),
			MaxTokens:   maxOutputTokens,
			Temperature: temperature,
		}, &out)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.ErrEmptyResponse
	}
	return text, nil
}
