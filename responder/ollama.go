package responder

import (
	"context"
	"net/http"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "llama3.2"
)

// OllamaClient calls a local Ollama server in non-streaming mode.
type OllamaClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewOllamaClient(baseURL string) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	return &OllamaClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(),
	}
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *OllamaClient) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	var out generateResponse
	err := postJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, generateRequest{
		Model:   model,
		Prompt:  prompt.Text(),
		Options: options{Temperature: temperature, NumPredict: maxOutputTokens},
	}, &out)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(out.Response)
	if text == "" {
		return "", errors.ErrEmptyResponse
	}
	return text, nil
}
