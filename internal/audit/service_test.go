package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresUserAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeWidgetCreated}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{UserID: "u"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogRemoteCreated(context.Background(), "u1", "agent-1", "as-1"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event")
	}
	if evs[0].Type != EventTypeRemoteCreated {
		t.Fatalf("expected remote_agent_created")
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp stamped")
	}
}

func TestService_LogAgentProvisionedCacheFlag(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_ = svc.LogAgentProvisioned(context.Background(), "u1", "agent-1", true)
	_ = svc.LogAgentProvisioned(context.Background(), "u1", "agent-1", false)

	evs := repo.Events()
	if evs[0].Message == evs[1].Message {
		t.Fatalf("expected cache flag reflected in message")
	}
}
