package session

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

type candidateRepoStub struct {
	candidates map[string]*domain.Candidate
}

func (c *candidateRepoStub) CreateCandidate(_ context.Context, candidate *domain.Candidate) error {
	c.candidates[candidate.ID] = candidate
	return nil
}

func (c *candidateRepoStub) GetCandidateByID(_ context.Context, id string) (*domain.Candidate, error) {
	candidate, ok := c.candidates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return candidate, nil
}

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

func newTestService(t *testing.T) (Service, *sessionRepoStub, *candidateRepoStub) {
	t.Helper()
	sessions := &sessionRepoStub{sessions: map[string]*domain.Session{}}
	candidates := &candidateRepoStub{candidates: map[string]*domain.Candidate{}}
	return New(sessions, candidates, slog.New(slog.NewTextHandler(io.Discard, nil))), sessions, candidates
}

func TestValidID(t *testing.T) {
	if !ValidID(uuid.NewString()) {
		t.Fatal("uuid must validate")
	}
	if ValidID("abc-123") || ValidID("") || ValidID("  ") {
		t.Fatal("malformed ids must not validate")
	}
	if !ValidID("  " + uuid.NewString() + " ") {
		t.Fatal("surrounding whitespace must be tolerated")
	}
}

func TestCreateCandidateNormalizesInput(t *testing.T) {
	svc, _, candidates := newTestService(t)

	candidate, err := svc.CreateCandidate(context.Background(), "  Asha Rao ", " ASHA@Example.COM ")
	if err != nil {
		t.Fatalf("CreateCandidate failed: %v", err)
	}
	if candidate.Name != "Asha Rao" || candidate.Email != "asha@example.com" {
		t.Fatalf("unexpected normalization: %+v", candidate)
	}
	if _, ok := candidates.candidates[candidate.ID]; !ok {
		t.Fatal("candidate not persisted")
	}
}

func TestCreateCandidateRequiresNameAndEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.CreateCandidate(context.Background(), "", "a@b.c"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if _, err := svc.CreateCandidate(context.Background(), "Asha", "   "); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}

func TestCreateSessionRequiresExistingCandidate(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Create(context.Background(), "not-a-uuid", nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if _, err := svc.Create(context.Background(), uuid.NewString(), nil); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateSessionUsesSuppliedStart(t *testing.T) {
	svc, sessions, _ := newTestService(t)

	candidate, err := svc.CreateCandidate(context.Background(), "Asha", "asha@example.com")
	if err != nil {
		t.Fatalf("CreateCandidate failed: %v", err)
	}

	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	session, err := svc.Create(context.Background(), candidate.ID, &start)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !session.StartTime.Equal(start) {
		t.Fatalf("start = %v, want %v", session.StartTime, start)
	}
	if _, ok := sessions.sessions[session.ID]; !ok {
		t.Fatal("session not persisted")
	}
}

func TestEndOverwritesPreviousStamp(t *testing.T) {
	svc, _, _ := newTestService(t)

	candidate, err := svc.CreateCandidate(context.Background(), "Asha", "asha@example.com")
	if err != nil {
		t.Fatalf("CreateCandidate failed: %v", err)
	}
	session, err := svc.Create(context.Background(), candidate.ID, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	if _, err := svc.End(context.Background(), session.ID, &first); err != nil {
		t.Fatalf("first End failed: %v", err)
	}
	second := first.Add(5 * time.Minute)
	updated, err := svc.End(context.Background(), session.ID, &second)
	if err != nil {
		t.Fatalf("second End failed: %v", err)
	}
	if updated.EndTime == nil || !updated.EndTime.Equal(second) {
		t.Fatalf("end = %v, want %v", updated.EndTime, second)
	}
}

func TestSetRecordingRequiresKey(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.SetRecording(context.Background(), uuid.NewString(), "  "); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
	if _, err := svc.SetRecording(context.Background(), uuid.NewString(), "recordings/a.webm"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t)

	if _, err := svc.Get(context.Background(), uuid.NewString()); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := svc.Get(context.Background(), "bogus"); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request, got %v", err)
	}
}
