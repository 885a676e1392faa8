package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/csheth/adventure/internal/story"
)

type apiClient struct {
	base     string
	encoding Encoding
	client   *http.Client
}

type textRequest struct {
	Prompt   string          `json:"prompt,omitempty"`
	Messages []story.Message `json:"messages,omitempty"`
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

type envelope struct {
	Result *string     `json:"result"`
	Error  *errorField `json:"error"`
}

func (c *apiClient) Name() string {
	return fmt.Sprintf("%s (%s)", c.base, c.encoding)
}

func (c *apiClient) GenerateText(ctx context.Context, messages []story.Message) (string, error) {
	if story.IsEmpty(messages) {
		return "", fmt.Errorf("story context empty; nothing to generate")
	}
	payload := textRequest{Messages: messages}
	if c.encoding == EncodingPrompt {
		payload = textRequest{Prompt: story.Flatten(messages)}
	}
	return c.post(ctx, textPath, payload)
}

func (c *apiClient) GenerateImage(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("illustration prompt empty; nothing to generate")
	}
	return c.post(ctx, imagePath, imageRequest{Prompt: prompt})
}

func (c *apiClient) post(ctx context.Context, path string, payload any) (string, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportError(err)
	}

	var parsed envelope
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		message := statusFallback(resp.StatusCode)
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			message = parsed.Error.Message
		}
		return "", &Error{Kind: KindBackend, Status: resp.StatusCode, Message: message}
	}
	if decodeErr != nil {
		return "", &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: statusFallback(resp.StatusCode), Err: decodeErr}
	}
	if parsed.Error != nil {
		message := parsed.Error.Message
		if message == "" {
			message = statusFallback(resp.StatusCode)
		}
		return "", &Error{Kind: KindBackend, Status: resp.StatusCode, Message: message}
	}
	if parsed.Result == nil || *parsed.Result == "" {
		return "", &Error{Kind: KindMalformed, Status: resp.StatusCode, Message: statusFallback(resp.StatusCode)}
	}
	return *parsed.Result, nil
}
