package responder

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ktiseos-Nyx/plural-chat/errors"
	"github.com/samber/lo"
	"google.golang.org/genai"
)

const (
	DefaultGeminiModel = "gemini-2.0-flash"
	temperature        = 0.9
	maxOutputTokens    = 500
)

// GeminiClient talks to the Gemini API through the official SDK.
type GeminiClient struct {
	client *genai.Client
}

func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Complete sends the prompt as a chat: the persona's own lines take the
// model role, everyone else is the user.
func (c *GeminiClient) Complete(ctx context.Context, model string, prompt Prompt) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, model, GeminiContents(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(prompt.System, genai.RoleUser),
		Temperature:       lo.ToPtr(float32(temperature)),
		MaxOutputTokens:   maxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", errors.ErrProvider, err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.ErrEmptyResponse
	}
	return text, nil
}

func GeminiContents(prompt Prompt) []*genai.Content {
	contents := make([]*genai.Content, 0, len(prompt.Turns)+1)
	for _, t := range prompt.Turns {
		if t.Own {
			contents = append(contents, genai.NewContentFromText(t.Content, genai.RoleModel))
			continue
		}
		contents = append(contents, genai.NewContentFromText(t.Speaker+": "+t.Content, genai.RoleUser))
	}
	return append(contents, genai.NewContentFromText(prompt.Speaker+": "+prompt.Message, genai.RoleUser))
}
