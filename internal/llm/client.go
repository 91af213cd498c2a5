package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/config"
)

// Synthesizer is the prompt-synthesis contract consumed by the pipeline.
type Synthesizer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client talks to an OpenAI-compatible chat-completions API.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	referer string
	title   string
	http    *http.Client
}

func NewClient(cfg config.LLMConfig, appBaseURL string) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		referer: appBaseURL,
		title:   "Receptionist Platform",
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends one user message and returns the raw assistant content.
// Callers run the content through ParseSynthesis; this method only covers
// transport and the provider envelope.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.4,
		MaxTokens:   4000,
	})
	if err != nil {
		return "", apperr.Upstream("synthesis request build failed", 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", apperr.Upstream("synthesis request build failed", 0, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperr.Upstream("synthesis provider unreachable", 0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperr.Upstream("synthesis response read failed", resp.StatusCode, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.Upstream("synthesis provider request failed", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", apperr.Synthesis("synthesis envelope is not valid JSON", string(body))
	}
	if len(out.Choices) == 0 {
		return "", apperr.Synthesis("synthesis response has no choices", string(body))
	}
	return out.Choices[0].Message.Content, nil
}

var _ Synthesizer = (*Client)(nil)
