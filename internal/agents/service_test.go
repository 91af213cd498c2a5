package agents

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"receptionist-platform/internal/apperr"
	"receptionist-platform/internal/audit"
	"receptionist-platform/internal/voice"
)

type fakeResearcher struct {
	calls  int
	result string
	err    error
}

func (f *fakeResearcher) Research(ctx context.Context, targetURL string) (string, error) {
	f.calls++
	return f.result, f.err
}

type fakeSynthesizer struct {
	calls      int
	lastPrompt string
	result     string
	err        error
}

func (f *fakeSynthesizer) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	return f.result, f.err
}

type fakePlatform struct {
	created   []voice.CreateAssistantRequest
	assistant voice.Assistant
	err       error
}

func (f *fakePlatform) Name() string { return "fake" }

func (f *fakePlatform) CreateAssistant(ctx context.Context, req voice.CreateAssistantRequest) (voice.Assistant, error) {
	f.created = append(f.created, req)
	return f.assistant, f.err
}

func (f *fakePlatform) ListCalls(ctx context.Context, assistantID string, limit int) ([]voice.PlatformCall, error) {
	return nil, nil
}

func (f *fakePlatform) Chat(ctx context.Context, req voice.ChatRequest) (voice.ChatResponse, error) {
	return voice.ChatResponse{}, nil
}

type failingRepo struct {
	*MemoryRepo
	failSetAssistant bool
}

func (r *failingRepo) SetAssistantID(ctx context.Context, userID, agentID, assistantID string) error {
	if r.failSetAssistant {
		return errors.New("connection reset")
	}
	return r.MemoryRepo.SetAssistantID(ctx, userID, agentID, assistantID)
}

const synthesisReply = `{"organisation_name":"Acme Law","vapi_prompt":"You are the receptionist for Acme Law."}`

func newTestService(repo Repository) (*Service, *fakeResearcher, *fakeSynthesizer, *fakePlatform) {
	res := &fakeResearcher{result: "Acme Law is a boutique law firm in Utrecht."}
	syn := &fakeSynthesizer{result: synthesisReply}
	plat := &fakePlatform{assistant: voice.Assistant{ID: "asst-1"}}
	svc := NewService(repo, res, syn, plat, audit.NewService(audit.NewMemoryRepo()), nil, ServiceConfig{
		CallbackURL:    "https://api.example.test/webhooks/voice",
		CallbackSecret: "hook-secret",
	})
	svc.clock = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, res, syn, plat
}

func TestProvisionCreatesAgent(t *testing.T) {
	repo := NewMemoryRepo()
	svc, res, syn, _ := newTestService(repo)

	out, err := svc.Provision(context.Background(), "u1", ProvisionInput{
		Name:       "Acme Law",
		WebsiteURL: "acmelaw.example",
		Languages:  []string{"english"},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if out.ServedFromCache {
		t.Error("first run should not be served from cache")
	}
	if out.Prompt != "You are the receptionist for Acme Law." {
		t.Errorf("unexpected prompt %q", out.Prompt)
	}
	if out.OrganisationName != "Acme Law" {
		t.Errorf("unexpected organisation %q", out.OrganisationName)
	}
	if res.calls != 1 || syn.calls != 1 {
		t.Errorf("want one research and one synthesis call, got %d/%d", res.calls, syn.calls)
	}

	a, err := repo.Get(context.Background(), "u1", out.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if a.WebsiteURL != "https://acmelaw.example" {
		t.Errorf("url not normalized: %q", a.WebsiteURL)
	}
	if a.Status != StatusActive {
		t.Errorf("want active status, got %q", a.Status)
	}
}

func TestProvisionCacheShortCircuit(t *testing.T) {
	repo := NewMemoryRepo()
	svc, res, syn, _ := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Provision(ctx, "u1", ProvisionInput{
		Name: "Acme Law", WebsiteURL: "https://acmelaw.example", Languages: []string{"english"},
	})
	if err != nil {
		t.Fatalf("first Provision: %v", err)
	}

	second, err := svc.Provision(ctx, "u1", ProvisionInput{
		Name: "Acme Law", WebsiteURL: "acmelaw.example", Languages: []string{"english"},
	})
	if err != nil {
		t.Fatalf("second Provision: %v", err)
	}
	if !second.ServedFromCache {
		t.Error("second run should be served from cache")
	}
	if second.ID != first.ID || second.Prompt != first.Prompt {
		t.Error("cached result should match the original run")
	}
	if res.calls != 1 || syn.calls != 1 {
		t.Errorf("cache hit must not call providers: research=%d synthesis=%d", res.calls, syn.calls)
	}
	if repo.Count() != 1 {
		t.Errorf("want one stored agent, got %d", repo.Count())
	}
}

func TestProvisionCacheIsPerOwner(t *testing.T) {
	repo := NewMemoryRepo()
	svc, res, _, _ := newTestService(repo)
	ctx := context.Background()

	if _, err := svc.Provision(ctx, "u1", ProvisionInput{Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"}}); err != nil {
		t.Fatalf("u1 Provision: %v", err)
	}
	if _, err := svc.Provision(ctx, "u2", ProvisionInput{Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"}}); err != nil {
		t.Fatalf("u2 Provision: %v", err)
	}
	if res.calls != 2 {
		t.Errorf("same url under a different owner must re-research, got %d calls", res.calls)
	}
	if repo.Count() != 2 {
		t.Errorf("want two agents, got %d", repo.Count())
	}
}

func TestProvisionValidatesBeforeProviders(t *testing.T) {
	repo := NewMemoryRepo()
	svc, res, syn, _ := newTestService(repo)

	cases := []ProvisionInput{
		{Name: "", WebsiteURL: "acme.example", Languages: []string{"english"}},
		{Name: "Acme", WebsiteURL: "", Languages: []string{"english"}},
		{Name: "Acme", WebsiteURL: "acme.example", Languages: nil},
		{Name: "Acme", WebsiteURL: "not a url", Languages: []string{"english"}},
	}
	for _, in := range cases {
		if _, err := svc.Provision(context.Background(), "u1", in); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("input %+v: want validation error, got %v", in, err)
		}
	}
	if res.calls != 0 || syn.calls != 0 {
		t.Errorf("validation failures must not reach providers: research=%d synthesis=%d", res.calls, syn.calls)
	}
	if repo.Count() != 0 {
		t.Errorf("validation failures must not persist, got %d rows", repo.Count())
	}
}

func TestProvisionFailureLeavesNoPartialState(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _, syn, _ := newTestService(repo)
	syn.err = apperr.Upstream("synthesis provider rejected request", 429, "rate limited")

	_, err := svc.Provision(context.Background(), "u1", ProvisionInput{
		Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"},
	})
	if !apperr.IsKind(err, apperr.KindUpstream) {
		t.Fatalf("want upstream error, got %v", err)
	}
	if repo.Count() != 0 {
		t.Errorf("failed pipeline must not persist, got %d rows", repo.Count())
	}
}

func TestProvisionUpsertReplacesIncompleteRow(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _, _, _ := newTestService(repo)
	ctx := context.Background()

	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	seed := Agent{
		ID: "a1", UserID: "u1", Name: "Acme (draft)",
		WebsiteURL: "https://acme.example", Languages: []string{"english"},
		Status: StatusActive, CreatedAt: created, UpdatedAt: created,
	}
	if err := repo.Insert(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := svc.Provision(ctx, "u1", ProvisionInput{
		Name: "Acme Law", WebsiteURL: "acme.example", Languages: []string{"english"},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if out.ServedFromCache {
		t.Error("a row without a prompt is not a cache hit")
	}
	if out.ID != "a1" {
		t.Errorf("want the existing row reused, got id %q", out.ID)
	}
	if repo.Count() != 1 {
		t.Errorf("upsert must not duplicate, got %d rows", repo.Count())
	}

	a, _ := repo.Get(ctx, "u1", "a1")
	if a.Prompt == "" || a.Name != "Acme Law" {
		t.Errorf("row not refreshed: %+v", a)
	}
	if !a.CreatedAt.Equal(created) {
		t.Error("created_at must survive the upsert")
	}
	if !a.UpdatedAt.After(created) {
		t.Error("updated_at must advance on the upsert")
	}
}

func TestProvisionStoresPreKnownAssistantID(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _, _, plat := newTestService(repo)

	out, err := svc.Provision(context.Background(), "u1", ProvisionInput{
		Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"},
		AssistantID: "asst-manual",
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if len(plat.created) != 0 {
		t.Error("pre-known assistant id must not trigger remote creation")
	}
	a, _ := repo.Get(context.Background(), "u1", out.ID)
	if a.AssistantID != "asst-manual" {
		t.Errorf("want stored assistant id, got %q", a.AssistantID)
	}
}

func TestProvisionDutchInstructionLanguage(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _, syn, _ := newTestService(repo)

	if _, err := svc.Provision(context.Background(), "u1", ProvisionInput{
		Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"dutch"},
	}); err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !strings.Contains(syn.lastPrompt, "Onderzoek deze website") {
		t.Error("dutch agents should get the localized instruction")
	}
}

func TestProvisionRemote(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _, _, plat := newTestService(repo)
	ctx := context.Background()

	out, err := svc.Provision(ctx, "u1", ProvisionInput{
		Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	assistantID, err := svc.ProvisionRemote(ctx, "u1", out.ID)
	if err != nil {
		t.Fatalf("ProvisionRemote: %v", err)
	}
	if assistantID != "asst-1" {
		t.Errorf("unexpected assistant id %q", assistantID)
	}
	if len(plat.created) != 1 {
		t.Fatalf("want one platform create, got %d", len(plat.created))
	}
	req := plat.created[0]
	if req.Instructions != out.Prompt {
		t.Error("assistant must be created with the synthesized prompt")
	}
	if req.CallbackURL != "https://api.example.test/webhooks/voice" || req.CallbackSecret != "hook-secret" {
		t.Error("webhook callback settings not forwarded")
	}

	// Idempotent once linked.
	again, err := svc.ProvisionRemote(ctx, "u1", out.ID)
	if err != nil || again != "asst-1" {
		t.Fatalf("repeat ProvisionRemote: %q, %v", again, err)
	}
	if len(plat.created) != 1 {
		t.Error("linked agent must not be provisioned again")
	}
}

func TestProvisionRemoteRequiresPrompt(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _, _, _ := newTestService(repo)
	ctx := context.Background()

	seed := Agent{ID: "a1", UserID: "u1", Name: "Draft", WebsiteURL: "https://x.example",
		Languages: []string{"english"}, Status: StatusActive}
	if err := repo.Insert(ctx, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.ProvisionRemote(ctx, "u1", "a1"); !apperr.IsKind(err, apperr.KindPrecondition) {
		t.Errorf("want precondition error, got %v", err)
	}
}

func TestProvisionRemoteOrphanedAssistant(t *testing.T) {
	repo := &failingRepo{MemoryRepo: NewMemoryRepo()}
	svc, _, _, _ := newTestService(repo)
	ctx := context.Background()

	out, err := svc.Provision(ctx, "u1", ProvisionInput{
		Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	repo.failSetAssistant = true
	_, err = svc.ProvisionRemote(ctx, "u1", out.ID)
	if !apperr.IsKind(err, apperr.KindStorage) {
		t.Fatalf("want storage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "asst-1") {
		t.Error("error must carry the orphaned assistant id for manual relinking")
	}
}

func TestOwnershipIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	svc, _, _, _ := newTestService(repo)
	ctx := context.Background()

	out, err := svc.Provision(ctx, "u1", ProvisionInput{
		Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}

	if _, err := svc.Get(ctx, "u2", out.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("foreign Get: want not_found, got %v", err)
	}
	name := "Hijack"
	if _, err := svc.Update(ctx, "u2", out.ID, UpdateFields{Name: &name}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("foreign Update: want not_found, got %v", err)
	}
	if _, err := svc.ProvisionRemote(ctx, "u2", out.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("foreign ProvisionRemote: want not_found, got %v", err)
	}
	list, err := svc.List(ctx, "u2")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("foreign List must be empty, got %d", len(list))
	}
}

func TestUpdatePartialReplacement(t *testing.T) {
	repo := NewMemoryRepo()
	svc, res, syn, _ := newTestService(repo)
	ctx := context.Background()

	out, err := svc.Provision(ctx, "u1", ProvisionInput{
		Name: "Acme", WebsiteURL: "acme.example", Languages: []string{"english"},
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	researchCalls, synthCalls := res.calls, syn.calls

	prompt := "Hand-edited prompt."
	updated, err := svc.Update(ctx, "u1", out.ID, UpdateFields{Prompt: &prompt})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Prompt != prompt {
		t.Errorf("prompt not replaced: %q", updated.Prompt)
	}
	if updated.Name != "Acme" || updated.WebsiteURL != "https://acme.example" {
		t.Error("untouched fields must survive a partial update")
	}
	if res.calls != researchCalls || syn.calls != synthCalls {
		t.Error("update must never re-synthesize")
	}

	bad := "shouting"
	if _, err := svc.Update(ctx, "u1", out.ID, UpdateFields{Status: &bad}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("invalid status: want validation error, got %v", err)
	}
	paused := string(StatusPaused)
	updated, err = svc.Update(ctx, "u1", out.ID, UpdateFields{Status: &paused})
	if err != nil || updated.Status != StatusPaused {
		t.Fatalf("pause: %+v, %v", updated, err)
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"acme.example", "https://acme.example"},
		{"  acme.example  ", "https://acme.example"},
		{"https://acme.example", "https://acme.example"},
		{"http://acme.example", "http://acme.example"},
	}
	for _, c := range cases {
		got, err := NormalizeURL(c.in)
		if err != nil {
			t.Fatalf("NormalizeURL(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", c.in, got, c.want)
		}
		again, err := NormalizeURL(got)
		if err != nil || again != got {
			t.Errorf("NormalizeURL not idempotent on %q: %q, %v", got, again, err)
		}
	}
	for _, bad := range []string{"", "   ", "not a url", "https://"} {
		if _, err := NormalizeURL(bad); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("NormalizeURL(%q): want validation error, got %v", bad, err)
		}
	}
}
