package demos

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"receptionist-platform/internal/voice"
	"receptionist-platform/pkg/logger"
)

// scheduleAppointmentTool is the platform tool the demo assistant calls when
// a visitor books; its parameters carry the contact email.
const scheduleAppointmentTool = "schedule_appointment"

// ApplyPlatformEvent routes one webhook event onto demo rows. Unknown kinds
// are ignored and unmatched rows are logged, never surfaced: the platform
// retries failed deliveries and a missing demo row is not worth a retry
// storm.
func (s *Service) ApplyPlatformEvent(ctx context.Context, ev voice.WebhookEvent) {
	log := logger.From(ctx)

	var err error
	switch ev.Kind {
	case voice.EventCallStart:
		if ev.Call == nil || ev.Call.AssistantID == "" || ev.Call.ID == "" {
			return
		}
		err = s.repo.StampCallStart(ctx, ev.Call.AssistantID, ev.Call.ID)

	case voice.EventCallEnd:
		if ev.Call == nil || ev.Call.ID == "" {
			return
		}
		endedAt := s.clock().UTC()
		if ev.Call.EndedAt != "" {
			if t, perr := time.Parse(time.RFC3339, ev.Call.EndedAt); perr == nil {
				endedAt = t
			}
		}
		err = s.repo.StampCallEnd(ctx, ev.Call.ID, endedAt)
		if err == nil && ev.Call.Summary != "" {
			err = s.repo.SetSummary(ctx, ev.Call.ID, ev.Call.Summary)
		}

	case voice.EventTranscript:
		if ev.Call == nil || ev.Call.ID == "" || ev.Call.Transcript == "" {
			return
		}
		err = s.repo.SetTranscript(ctx, ev.Call.ID, ev.Call.Transcript)

	case voice.EventSummary:
		if ev.Call == nil || ev.Call.ID == "" || ev.Call.Summary == "" {
			return
		}
		err = s.repo.SetSummary(ctx, ev.Call.ID, ev.Call.Summary)

	case voice.EventFunctionCall:
		if ev.FunctionCall == nil || ev.FunctionCall.Name != scheduleAppointmentTool || ev.Call == nil || ev.Call.ID == "" {
			return
		}
		var params struct {
			Email string `json:"email"`
		}
		if jerr := json.Unmarshal(ev.FunctionCall.Parameters, &params); jerr != nil || params.Email == "" {
			return
		}
		err = s.repo.SetVisitorEmail(ctx, ev.Call.ID, params.Email)

	default:
		log.Debug("ignoring webhook event", "kind", string(ev.Kind))
		return
	}

	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Warn("webhook event matched no demo", "kind", string(ev.Kind))
			return
		}
		log.Error("webhook event persist failed", "kind", string(ev.Kind), "err", err)
	}
}
