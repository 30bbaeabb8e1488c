package postgres

import (
	"testing"
	"time"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
)

func TestBuildEventQuerySessionOnly(t *testing.T) {
	query, args := buildEventQuery("SELECT 1 FROM detection_events", "sess-1", domain.EventFilter{})
	if query != "SELECT 1 FROM detection_events WHERE session_id = $1" {
		t.Fatalf("unexpected query: %s", query)
	}
	if len(args) != 1 || args[0] != "sess-1" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildEventQueryAllFilters(t *testing.T) {
	from := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	to := from.Add(time.Hour)
	query, args := buildEventQuery("SELECT 1 FROM detection_events", "sess-1", domain.EventFilter{
		Type:        domain.EventFocusLost,
		CandidateID: "cand-42",
		From:        from,
		To:          to,
	})

	want := "SELECT 1 FROM detection_events WHERE session_id = $1" +
		" AND event_type = $2 AND candidate_id = $3" +
		" AND occurred_at >= $4 AND occurred_at <= $5"
	if query != want {
		t.Fatalf("query = %s, want %s", query, want)
	}
	if len(args) != 5 {
		t.Fatalf("unexpected args: %v", args)
	}
	if args[1] != "FOCUS_LOST" {
		t.Fatalf("type arg = %v", args[1])
	}
	// the candidate tag is bound as the opaque string the client sent
	if args[2] != "cand-42" {
		t.Fatalf("candidate arg = %v", args[2])
	}
	if args[3] != from || args[4] != to {
		t.Fatalf("time args = %v %v", args[3], args[4])
	}
}

func TestNullableString(t *testing.T) {
	if got := nullableString(""); got != nil {
		t.Fatalf("empty string must map to nil, got %v", got)
	}
	if got := nullableString("x"); got == nil || *got != "x" {
		t.Fatalf("non-empty string lost: %v", got)
	}
}
