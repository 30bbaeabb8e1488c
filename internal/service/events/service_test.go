package events

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/repository"
)

type sessionRepoStub struct {
	sessions map[string]*domain.Session
}

func (s *sessionRepoStub) CreateSession(_ context.Context, session *domain.Session) error {
	s.sessions[session.ID] = session
	return nil
}

func (s *sessionRepoStub) GetSessionByID(_ context.Context, id string) (*domain.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return session, nil
}

func (s *sessionRepoStub) UpdateSessionStart(_ context.Context, id string, startTime time.Time) (*domain.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	session.StartTime = startTime
	return session, nil
}

func (s *sessionRepoStub) UpdateSessionEnd(_ context.Context, id string, endTime time.Time) (*domain.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	session.EndTime = &endTime
	return session, nil
}

func (s *sessionRepoStub) UpdateSessionRecording(_ context.Context, id, recordingURL string) (*domain.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	session.RecordingURL = recordingURL
	return session, nil
}

type eventRepoStub struct {
	inserted   []domain.DetectionEvent
	lastFilter domain.EventFilter
	insertErr  error
	failAfter  int
}

func (e *eventRepoStub) InsertEvent(_ context.Context, event *domain.DetectionEvent) error {
	if e.insertErr != nil && len(e.inserted) >= e.failAfter {
		return e.insertErr
	}
	e.inserted = append(e.inserted, *event)
	return nil
}

func (e *eventRepoStub) ListEventsBySession(_ context.Context, sessionID string, filter domain.EventFilter) ([]domain.DetectionEvent, error) {
	e.lastFilter = filter
	var rows []domain.DetectionEvent
	for _, ev := range e.inserted {
		if ev.SessionID == sessionID {
			rows = append(rows, ev)
		}
	}
	return rows, nil
}

func (e *eventRepoStub) CountEventsByType(_ context.Context, sessionID string, filter domain.EventFilter) (map[domain.EventType]int64, error) {
	e.lastFilter = filter
	counts := make(map[domain.EventType]int64)
	for _, ev := range e.inserted {
		if ev.SessionID == sessionID {
			counts[ev.EventType]++
		}
	}
	return counts, nil
}

func newTestService(t *testing.T) (Service, *eventRepoStub, string) {
	t.Helper()
	sessionID := uuid.NewString()
	sessions := &sessionRepoStub{sessions: map[string]*domain.Session{
		sessionID: {ID: sessionID, CandidateID: uuid.NewString(), StartTime: time.Now().UTC()},
	}}
	events := &eventRepoStub{}
	svc := New(events, sessions, slog.New(slog.NewTextHandler(io.Discard, nil)), 0, 0)
	return svc, events, sessionID
}

func TestSaveBatchDropsInvalidEntries(t *testing.T) {
	svc, events, sessionID := newTestService(t)

	entries := make([]IncomingEvent, 0, 11)
	for i := 0; i < 10; i++ {
		entries = append(entries, IncomingEvent{Type: "FOCUS_LOST", Message: "looked away"})
	}
	entries = append(entries, IncomingEvent{Type: "TELEPATHY", Message: "unmapped"})

	result, err := svc.SaveBatch(context.Background(), sessionID, entries)
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if result.InsertedCount != 10 || result.DroppedCount != 1 {
		t.Fatalf("inserted=%d dropped=%d, want 10/1", result.InsertedCount, result.DroppedCount)
	}
	if len(result.InsertedIDs) != 10 || len(events.inserted) != 10 {
		t.Fatalf("expected 10 persisted rows, got %d ids / %d rows", len(result.InsertedIDs), len(events.inserted))
	}
}

func TestSaveBatchAcceptsEventTypeAlias(t *testing.T) {
	svc, events, sessionID := newTestService(t)

	_, err := svc.SaveBatch(context.Background(), sessionID, []IncomingEvent{
		{EventType: "PHONE_DETECTED", Message: "phone in frame"},
	})
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if len(events.inserted) != 1 || events.inserted[0].EventType != domain.EventPhoneDetected {
		t.Fatalf("unexpected persisted rows: %+v", events.inserted)
	}
}

func TestSaveBatchRejectsMalformedSessionID(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SaveBatch(context.Background(), "not-a-uuid", []IncomingEvent{
		{Type: "FOCUS_LOST", Message: "x"},
	})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestSaveBatchUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SaveBatch(context.Background(), uuid.NewString(), []IncomingEvent{
		{Type: "FOCUS_LOST", Message: "x"},
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSaveBatchRejectsEmptyBatch(t *testing.T) {
	svc, _, sessionID := newTestService(t)

	_, err := svc.SaveBatch(context.Background(), sessionID, nil)
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestSaveBatchDefaultsTimestamp(t *testing.T) {
	svc, events, sessionID := newTestService(t)
	fixed := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	supplied := fixed.Add(-2 * time.Minute)
	_, err := svc.SaveBatch(context.Background(), sessionID, []IncomingEvent{
		{Type: "NO_FACE", Message: "absent"},
		{Type: "NO_FACE", Message: "absent again", Timestamp: &supplied},
	})
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if !events.inserted[0].Timestamp.Equal(fixed) {
		t.Fatalf("missing timestamp defaulted to %v, want %v", events.inserted[0].Timestamp, fixed)
	}
	if !events.inserted[1].Timestamp.Equal(supplied) {
		t.Fatalf("supplied timestamp rewritten to %v", events.inserted[1].Timestamp)
	}
}

func TestSaveBatchSkipsFailedRows(t *testing.T) {
	svc, events, sessionID := newTestService(t)
	events.insertErr = errors.New("constraint violation")
	events.failAfter = 2

	result, err := svc.SaveBatch(context.Background(), sessionID, []IncomingEvent{
		{Type: "FOCUS_LOST", Message: "a"},
		{Type: "FOCUS_LOST", Message: "b"},
		{Type: "FOCUS_LOST", Message: "c"},
	})
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if result.InsertedCount != 2 || result.DroppedCount != 1 {
		t.Fatalf("inserted=%d dropped=%d, want 2/1", result.InsertedCount, result.DroppedCount)
	}
}

func TestListCapsLimit(t *testing.T) {
	svc, events, sessionID := newTestService(t)

	if _, err := svc.List(context.Background(), sessionID, domain.EventFilter{Limit: 10000}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if events.lastFilter.Limit != maxPageLimit {
		t.Fatalf("limit = %d, want cap %d", events.lastFilter.Limit, maxPageLimit)
	}

	if _, err := svc.List(context.Background(), sessionID, domain.EventFilter{}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if events.lastFilter.Limit != defaultPageLimit || events.lastFilter.Page != 1 {
		t.Fatalf("defaults = limit %d page %d", events.lastFilter.Limit, events.lastFilter.Page)
	}
}

func TestListUsesConfiguredDefaultLimit(t *testing.T) {
	sessionID := uuid.NewString()
	sessions := &sessionRepoStub{sessions: map[string]*domain.Session{
		sessionID: {ID: sessionID, CandidateID: uuid.NewString(), StartTime: time.Now().UTC()},
	}}
	events := &eventRepoStub{}
	svc := New(events, sessions, slog.New(slog.NewTextHandler(io.Discard, nil)), 25, 200)

	if _, err := svc.List(context.Background(), sessionID, domain.EventFilter{}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if events.lastFilter.Limit != 25 {
		t.Fatalf("default limit = %d, want configured 25", events.lastFilter.Limit)
	}
	if _, err := svc.List(context.Background(), sessionID, domain.EventFilter{Limit: 999}); err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if events.lastFilter.Limit != 200 {
		t.Fatalf("limit = %d, want cap 200", events.lastFilter.Limit)
	}
}

func TestSaveBatchKeepsOpaqueCandidateTag(t *testing.T) {
	svc, events, sessionID := newTestService(t)

	// the tag is an opaque client string, not an identifier
	_, err := svc.SaveBatch(context.Background(), sessionID, []IncomingEvent{
		{Type: "FOCUS_LOST", Message: "looked away", CandidateID: " cand-42 "},
	})
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}
	if events.inserted[0].CandidateID != "cand-42" {
		t.Fatalf("candidate tag = %q, want cand-42 stored verbatim", events.inserted[0].CandidateID)
	}
}

func TestListRejectsUnknownTypeFilter(t *testing.T) {
	svc, _, sessionID := newTestService(t)

	_, err := svc.List(context.Background(), sessionID, domain.EventFilter{Type: "SNEEZE"})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestAggregateCountsByType(t *testing.T) {
	svc, _, sessionID := newTestService(t)

	_, err := svc.SaveBatch(context.Background(), sessionID, []IncomingEvent{
		{Type: "FOCUS_LOST", Message: "a"},
		{Type: "FOCUS_LOST", Message: "b"},
		{Type: "PHONE_DETECTED", Message: "c"},
	})
	if err != nil {
		t.Fatalf("SaveBatch failed: %v", err)
	}

	counts, err := svc.Aggregate(context.Background(), sessionID, domain.EventFilter{})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if counts[domain.EventFocusLost] != 2 || counts[domain.EventPhoneDetected] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}
