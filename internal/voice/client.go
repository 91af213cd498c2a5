package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/config"
)

// Client is the HTTP implementation of Platform against the hosted voice API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.VoiceConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string { return "vapi" }

type createAssistantBody struct {
	Model        assistantModel `json:"model"`
	Name         string         `json:"name"`
	Instructions string         `json:"instructions"`
	Voice        assistantVoice `json:"voice"`
	FirstMessage string         `json:"firstMessage"`
	ServerURL    string         `json:"serverUrl,omitempty"`
	ServerSecret string         `json:"serverUrlSecret,omitempty"`
}

type assistantModel struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type assistantVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// defaultFirstMessage is the fixed opening utterance for every assistant.
const defaultFirstMessage = "Hello! How can I help you today?"

func (c *Client) CreateAssistant(ctx context.Context, req CreateAssistantRequest) (Assistant, error) {
	body := createAssistantBody{
		Model:        assistantModel{Provider: "openai", Model: "gpt-4o"},
		Name:         req.Name,
		Instructions: req.Instructions,
		Voice:        assistantVoice{Provider: "11labs", VoiceID: "rachel"},
		FirstMessage: defaultFirstMessage,
		ServerURL:    req.CallbackURL,
		ServerSecret: req.CallbackSecret,
	}

	var out Assistant
	if err := c.post(ctx, "/assistant", body, &out); err != nil {
		return Assistant{}, err
	}
	return out, nil
}

func (c *Client) ListCalls(ctx context.Context, assistantID string, limit int) ([]PlatformCall, error) {
	if limit <= 0 {
		limit = 50
	}
	url := fmt.Sprintf("%s/call?assistantId=%s&limit=%d", c.baseURL, assistantID, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperr.Upstream("call-history request build failed", 0, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Upstream("voice platform unreachable", 0, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Upstream("call-history read failed", resp.StatusCode, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Upstream("call-history request failed", resp.StatusCode, string(raw))
	}

	var calls []PlatformCall
	if err := json.Unmarshal(raw, &calls); err != nil {
		return nil, apperr.Upstream("call-history response is not valid JSON", resp.StatusCode, string(raw))
	}
	return calls, nil
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	var out ChatResponse
	if err := c.post(ctx, "/chat", req, &out); err != nil {
		return ChatResponse{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperr.Upstream("platform request build failed", 0, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return apperr.Upstream("platform request build failed", 0, err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Upstream("voice platform unreachable", 0, err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Upstream("platform response read failed", resp.StatusCode, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Upstream("platform request failed", resp.StatusCode, string(raw))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Upstream("platform response is not valid JSON", resp.StatusCode, string(raw))
	}
	return nil
}

var _ Platform = (*Client)(nil)
