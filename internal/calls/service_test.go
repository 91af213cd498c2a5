package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"receptionist-platform/internal/agents"
	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/voice"
)

type fakePlatform struct {
	mu      sync.Mutex
	byID    map[string][]voice.PlatformCall
	failing map[string]bool
	fetches []string
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		byID:    make(map[string][]voice.PlatformCall),
		failing: make(map[string]bool),
	}
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) CreateAssistant(ctx context.Context, req voice.CreateAssistantRequest) (voice.Assistant, error) {
	return voice.Assistant{}, errors.New("not implemented")
}

func (f *fakePlatform) ListCalls(ctx context.Context, assistantID string, limit int) ([]voice.PlatformCall, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches = append(f.fetches, assistantID)
	if f.failing[assistantID] {
		return nil, errors.New("upstream timeout")
	}
	return f.byID[assistantID], nil
}

func (f *fakePlatform) Chat(ctx context.Context, req voice.ChatRequest) (voice.ChatResponse, error) {
	return voice.ChatResponse{}, errors.New("not implemented")
}

func seedAgent(t *testing.T, repo *agents.MemoryRepo, id, userID, assistantID string) {
	t.Helper()
	err := repo.Insert(context.Background(), agents.Agent{
		ID: id, UserID: userID, Name: "Agent " + id,
		WebsiteURL: "https://" + id + ".example", Languages: []string{"english"},
		AssistantID: assistantID, Status: agents.StatusActive,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func call(id, assistantID, createdAt string) voice.PlatformCall {
	return voice.PlatformCall{ID: id, AssistantID: assistantID, CreatedAt: createdAt}
}

func TestListMergesAndSortsNewestFirst(t *testing.T) {
	repo := agents.NewMemoryRepo()
	plat := newFakePlatform()
	seedAgent(t, repo, "a1", "u1", "asst-1")
	seedAgent(t, repo, "a2", "u1", "asst-2")
	plat.byID["asst-1"] = []voice.PlatformCall{
		call("c1", "asst-1", "2026-03-01T10:00:00Z"),
		call("c3", "asst-1", "2026-03-01T12:00:00Z"),
	}
	plat.byID["asst-2"] = []voice.PlatformCall{
		call("c2", "asst-2", "2026-03-01T11:00:00Z"),
	}

	out, err := NewService(repo, plat).List(context.Background(), "u1", Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out.Total != 3 || len(out.Calls) != 3 {
		t.Fatalf("want 3 calls, got total=%d len=%d", out.Total, len(out.Calls))
	}
	if out.Partial {
		t.Error("no fetch failed, result must not be partial")
	}
	gotOrder := []string{out.Calls[0].ID, out.Calls[1].ID, out.Calls[2].ID}
	wantOrder := []string{"c3", "c2", "c1"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("wrong order: got %v want %v", gotOrder, wantOrder)
		}
	}
	if out.Calls[0].AgentName != "Agent a1" || out.Calls[1].AgentName != "Agent a2" {
		t.Error("agent metadata not joined")
	}
}

func TestListDropsFailedFetches(t *testing.T) {
	repo := agents.NewMemoryRepo()
	plat := newFakePlatform()
	seedAgent(t, repo, "a1", "u1", "asst-1")
	seedAgent(t, repo, "a2", "u1", "asst-2")
	plat.byID["asst-1"] = []voice.PlatformCall{call("c1", "asst-1", "2026-03-01T10:00:00Z")}
	plat.failing["asst-2"] = true

	out, err := NewService(repo, plat).List(context.Background(), "u1", Filter{})
	if err != nil {
		t.Fatalf("a single failed fetch must not fail the aggregation: %v", err)
	}
	if out.Total != 1 || out.Calls[0].ID != "c1" {
		t.Fatalf("want the surviving assistant's calls, got %+v", out.Calls)
	}
	if !out.Partial {
		t.Error("result must be flagged partial when a fetch is dropped")
	}
}

func TestListNoProvisionedAssistants(t *testing.T) {
	repo := agents.NewMemoryRepo()
	plat := newFakePlatform()
	seedAgent(t, repo, "a1", "u1", "") // synthesized but never provisioned

	out, err := NewService(repo, plat).List(context.Background(), "u1", Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out.Total != 0 || out.Calls == nil || len(out.Calls) != 0 {
		t.Errorf("want empty non-nil result, got %+v", out)
	}
	if len(out.Agents) != 1 {
		t.Errorf("agents should still be reported, got %d", len(out.Agents))
	}
	if len(plat.fetches) != 0 {
		t.Error("no assistant ids means no platform fetches")
	}
}

func TestListSingleAgentFilter(t *testing.T) {
	repo := agents.NewMemoryRepo()
	plat := newFakePlatform()
	seedAgent(t, repo, "a1", "u1", "asst-1")
	seedAgent(t, repo, "a2", "u1", "asst-2")
	plat.byID["asst-1"] = []voice.PlatformCall{call("c1", "asst-1", "2026-03-01T10:00:00Z")}
	plat.byID["asst-2"] = []voice.PlatformCall{call("c2", "asst-2", "2026-03-01T11:00:00Z")}

	out, err := NewService(repo, plat).List(context.Background(), "u1", Filter{AgentID: "a1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out.Total != 1 || out.Calls[0].ID != "c1" {
		t.Errorf("want only a1 calls, got %+v", out.Calls)
	}

	if _, err := NewService(repo, plat).List(context.Background(), "u2", Filter{AgentID: "a1"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("foreign agent filter: want not_found, got %v", err)
	}
}

func TestListNormalizesMixedTimestampFields(t *testing.T) {
	repo := agents.NewMemoryRepo()
	plat := newFakePlatform()
	seedAgent(t, repo, "a1", "u1", "asst-1")
	plat.byID["asst-1"] = []voice.PlatformCall{
		{ID: "snake", CreatedAtAlt: "2026-03-01T12:00:00Z"},
		{ID: "camel", CreatedAt: "2026-03-01T11:00:00Z"},
		{ID: "neither"},
	}

	out, err := NewService(repo, plat).List(context.Background(), "u1", Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out.Calls[0].ID != "snake" || out.Calls[1].ID != "camel" || out.Calls[2].ID != "neither" {
		t.Errorf("mixed timestamp formats not ordered: %v", []string{out.Calls[0].ID, out.Calls[1].ID, out.Calls[2].ID})
	}
	if !out.Calls[2].OccurredAt.Equal(time.Time{}) {
		t.Error("unparseable timestamps should sort to the end with a zero time")
	}
}
