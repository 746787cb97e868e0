package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/errors"
)

const maxErrorBody = 4096

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 2 * time.Minute}
}

// postJSON sends in as a JSON body and decodes a 200 answer into out.
// Transport failures and non-200 answers are provider errors.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", errors.ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: API error %d: %s", errors.ErrProvider, resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", errors.ErrProvider, err)
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessages maps the conversation to user/assistant roles: the persona's
// own lines are the assistant, everyone else speaks as the user.
func ChatMessages(prompt Prompt) []chatMessage {
	messages := make([]chatMessage, 0, len(prompt.Turns)+1)
	for _, t := range prompt.Turns {
		if t.Own {
			messages = append(messages, chatMessage{Role: "assistant", Content: t.Content})
			continue
		}
		messages = append(messages, chatMessage{Role: "user", Content: t.Speaker + ": " + t.Content})
	}
	return append(messages, chatMessage{Role: "user", Content: prompt.Speaker + ": " + prompt.Message})
}
