package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/config"
)

func testClient(srvURL string) *Client {
	return NewClient(config.VoiceConfig{APIKey: "vk", BaseURL: srvURL, Timeout: 5 * time.Second})
}

func TestCreateAssistant(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/assistant" || r.Header.Get("Authorization") != "Bearer vk" {
			t.Errorf("unexpected request: %s %s", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(Assistant{ID: "as-123", Name: "Acme Law"})
	}))
	defer srv.Close()

	a, err := testClient(srv.URL).CreateAssistant(context.Background(), CreateAssistantRequest{
		Name:           "Acme Law",
		Instructions:   "You are Acme Law's assistant.",
		CallbackURL:    "https://example.com/webhooks/voice",
		CallbackSecret: "hook-secret",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.ID != "as-123" {
		t.Fatalf("unexpected assistant: %+v", a)
	}
	if gotBody["instructions"] != "You are Acme Law's assistant." {
		t.Fatalf("instructions not sent: %v", gotBody["instructions"])
	}
	if gotBody["firstMessage"] != defaultFirstMessage {
		t.Fatalf("expected fixed first message, got %v", gotBody["firstMessage"])
	}
	if gotBody["serverUrl"] != "https://example.com/webhooks/voice" || gotBody["serverUrlSecret"] != "hook-secret" {
		t.Fatalf("callback wiring missing: %v", gotBody)
	}
}

func TestCreateAssistant_Non2xxIsUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateAssistant(context.Background(), CreateAssistantRequest{Name: "x", Instructions: "y"})
	if !apperr.IsKind(err, apperr.KindUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if apperr.From(err).UpstreamStatus != http.StatusUnauthorized {
		t.Fatalf("expected status carried")
	}
}

func TestListCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("assistantId") != "as-1" || r.URL.Query().Get("limit") != "25" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"id":"c1","createdAt":"2026-08-01T10:00:00Z"},{"id":"c2","created_at":"2026-08-02T10:00:00Z"}]`))
	}))
	defer srv.Close()

	calls, err := testClient(srv.URL).ListCalls(context.Background(), "as-1", 25)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(calls) != 2 || calls[0].ID != "c1" {
		t.Fatalf("unexpected calls: %+v", calls)
	}
	if calls[1].ResolvedCreatedAt().IsZero() {
		t.Fatalf("expected snake_case timestamp decoded")
	}
}

func TestChat_PassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.AssistantID != "as-1" || req.Input != "hello" || req.PreviousChatID != "chat-0" {
			t.Errorf("unexpected chat request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"id":"chat-1","output":[{"role":"assistant","content":"hi"}]}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Chat(context.Background(), ChatRequest{AssistantID: "as-1", Input: "hello", PreviousChatID: "chat-0"})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.ID != "chat-1" || len(resp.Output) != 1 || resp.Output[0].Content != "hi" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}
