// Package assistant calls an OpenAI-compatible chat-completions endpoint to
// produce an optional automated reply for messages that ask for help. It is a
// best-effort enrichment: callers must treat every error as "no reply".
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const (
	helpTrigger  = "/help"
	systemPrompt = "you are a helpful assistant."
	maxTokens    = 1024
)

// ShouldReply reports whether a message body asks for an assistant reply.
func ShouldReply(body string) bool {
	return strings.Contains(strings.ToLower(body), helpTrigger)
}

type ReplyGenerator interface {
	MaybeReply(ctx context.Context, body string) (string, error)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type Client struct {
	log     *log.Logger
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewClient(logger *log.Logger, baseURL, apiKey, model string, timeout time.Duration) *Client {
	return &Client{
		log:     logger,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) MaybeReply(ctx context.Context, body string) (string, error) {
	reqBody, err := json.Marshal(completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Respond to the customers query:" + body},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("completion request failed with status %d: %s", resp.StatusCode, respBody)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}

	return completion.Choices[0].Message.Content, nil
}
