package chatsessions

import (
	"context"
	"testing"
	"time"

	"receptionist-platform/internal/apperr"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepo())
	base := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	n := 0
	svc.clock = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	return svc
}

func TestUpsertCreatesAndReplaces(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	first, err := svc.Upsert(ctx, UpsertInput{
		ID: "chat-1", AssistantID: "asst-1",
		Messages: []byte(`[{"role":"user","content":"hi"}]`),
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second, err := svc.Upsert(ctx, UpsertInput{
		ID: "chat-1", AssistantID: "asst-1",
		Messages: []byte(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`),
		Cost:     0.002,
	})
	if err != nil {
		t.Fatalf("repeat Upsert: %v", err)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("replacement must keep the original creation time")
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Error("replacement must advance updated_at")
	}

	got, err := svc.Get(ctx, "chat-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Cost != 0.002 {
		t.Errorf("replacement not stored: %+v", got)
	}
}

func TestUpsertValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	cases := []UpsertInput{
		{ID: "", AssistantID: "asst-1"},
		{ID: "chat-1", AssistantID: ""},
		{ID: "chat-1", AssistantID: "asst-1", Messages: []byte(`{not json`)},
	}
	for _, in := range cases {
		if _, err := svc.Upsert(ctx, in); !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("input %+v: want validation error, got %v", in, err)
		}
	}
}

func TestListByAssistant(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	for _, id := range []string{"chat-1", "chat-2"} {
		if _, err := svc.Upsert(ctx, UpsertInput{ID: id, AssistantID: "asst-1"}); err != nil {
			t.Fatalf("Upsert %s: %v", id, err)
		}
	}
	if _, err := svc.Upsert(ctx, UpsertInput{ID: "chat-3", AssistantID: "asst-2"}); err != nil {
		t.Fatalf("Upsert chat-3: %v", err)
	}

	out, err := svc.List(ctx, "asst-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("want 2 sessions, got %d", len(out))
	}
	if out[0].ID != "chat-2" {
		t.Errorf("want newest first, got %s", out[0].ID)
	}

	empty, err := svc.List(ctx, "asst-none")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("unknown assistant: want empty non-nil list, got %v, %v", empty, err)
	}

	if _, err := svc.Get(ctx, "missing"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("want not_found, got %v", err)
	}
}
