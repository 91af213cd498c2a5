package voice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SignatureHeader carries the platform's HMAC of the webhook body.
const SignatureHeader = "X-Vapi-Signature"

// EventKind tags webhook events. Unknown kinds must be accepted and ignored
// so new platform event types never turn into delivery failures.
type EventKind string

const (
	EventCallStart    EventKind = "call-start"
	EventCallEnd      EventKind = "call-end"
	EventTranscript   EventKind = "transcript"
	EventSummary      EventKind = "summary"
	EventFunctionCall EventKind = "function-call"
)

// WebhookEvent is the decoded platform webhook payload.
type WebhookEvent struct {
	Kind EventKind

	Call         *EventCall
	FunctionCall *EventFunction
}

type EventCall struct {
	ID          string `json:"id"`
	AssistantID string `json:"assistantId"`
	Status      string `json:"status"`
	Transcript  string `json:"transcript,omitempty"`
	Summary     string `json:"summary,omitempty"`
	EndedAt     string `json:"endedAt,omitempty"`
}

type EventFunction struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

type webhookEnvelope struct {
	Message struct {
		Type         string         `json:"type"`
		Call         *EventCall     `json:"call,omitempty"`
		FunctionCall *EventFunction `json:"functionCall,omitempty"`
	} `json:"message"`
}

// ParseEvent decodes the platform envelope `{ message: { type, call?, ... } }`.
func ParseEvent(body []byte) (WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return WebhookEvent{}, fmt.Errorf("webhook body is not valid JSON: %w", err)
	}
	if env.Message.Type == "" {
		return WebhookEvent{}, fmt.Errorf("webhook message has no type")
	}
	return WebhookEvent{
		Kind:         EventKind(env.Message.Type),
		Call:         env.Message.Call,
		FunctionCall: env.Message.FunctionCall,
	}, nil
}

// VerifySignature checks the hex HMAC-SHA256 of body against the shared
// secret. The comparison is constant-time. An empty secret means signing is
// not configured; callers decide whether to accept unsigned deliveries.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
