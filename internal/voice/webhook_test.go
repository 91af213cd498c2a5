package voice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseEvent_CallEnd(t *testing.T) {
	body := []byte(`{"message":{"type":"call-end","call":{"id":"call-1","assistantId":"as-1","endedAt":"2026-08-01T10:00:00Z"}}}`)
	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Kind != EventCallEnd {
		t.Fatalf("unexpected kind: %s", ev.Kind)
	}
	if ev.Call == nil || ev.Call.ID != "call-1" || ev.Call.EndedAt != "2026-08-01T10:00:00Z" {
		t.Fatalf("unexpected call: %+v", ev.Call)
	}
}

func TestParseEvent_UnknownKindIsPreserved(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"message":{"type":"speech-update"}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.Kind != EventKind("speech-update") {
		t.Fatalf("unexpected kind: %s", ev.Kind)
	}
}

func TestParseEvent_RejectsMissingType(t *testing.T) {
	if _, err := ParseEvent([]byte(`{"message":{}}`)); err == nil {
		t.Fatalf("expected error for missing type")
	}
	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

func TestParseEvent_FunctionCall(t *testing.T) {
	body := []byte(`{"message":{"type":"function-call","call":{"id":"call-2"},"functionCall":{"name":"schedule_appointment","parameters":{"email":"a@b.com"}}}}`)
	ev, err := ParseEvent(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.FunctionCall == nil || ev.FunctionCall.Name != "schedule_appointment" {
		t.Fatalf("unexpected function call: %+v", ev.FunctionCall)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"message":{"type":"call-start"}}`)

	if !VerifySignature("s3cret", body, sign("s3cret", body)) {
		t.Fatalf("expected valid signature")
	}
	if VerifySignature("s3cret", body, sign("other", body)) {
		t.Fatalf("expected mismatch for wrong secret")
	}
	if VerifySignature("s3cret", body, "") {
		t.Fatalf("expected false for empty signature")
	}
	if VerifySignature("", body, sign("s3cret", body)) {
		t.Fatalf("expected false when no secret configured")
	}
}

func TestResolvedCreatedAt(t *testing.T) {
	camel := PlatformCall{CreatedAt: "2026-08-01T10:00:00Z"}
	snake := PlatformCall{CreatedAtAlt: "2026-08-02T10:00:00Z"}
	if camel.ResolvedCreatedAt().IsZero() || snake.ResolvedCreatedAt().IsZero() {
		t.Fatalf("expected both variants to resolve")
	}
	if !snake.ResolvedCreatedAt().After(camel.ResolvedCreatedAt()) {
		t.Fatalf("unexpected ordering")
	}
	if !(PlatformCall{}).ResolvedCreatedAt().IsZero() {
		t.Fatalf("expected zero time for missing timestamps")
	}
	if !(PlatformCall{CreatedAt: "garbage"}).ResolvedCreatedAt().IsZero() {
		t.Fatalf("expected zero time for unparsable timestamp")
	}
}
