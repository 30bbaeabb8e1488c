package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/repository"
)

// Service manages the session lifecycle: created, started, ended. It also
// guards id validity for the ingestion and report paths.
type Service struct {
	sessions   repository.SessionRepository
	candidates repository.CandidateRepository
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a session service.
func New(sessions repository.SessionRepository, candidates repository.CandidateRepository, logger *slog.Logger) Service {
	return Service{sessions: sessions, candidates: candidates, logger: logger, now: time.Now}
}

// ValidID reports whether the supplied string is a well-formed session or
// candidate identifier.
func ValidID(id string) bool {
	_, err := uuid.Parse(strings.TrimSpace(id))
	return err == nil
}

// CreateCandidate registers an interviewee.
func (s Service) CreateCandidate(ctx context.Context, name, email string) (*domain.Candidate, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email required", domain.ErrInvalidRequest)
	}
	candidate := &domain.Candidate{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now().UTC(),
	}
	if err := s.candidates.CreateCandidate(ctx, candidate); err != nil {
		return nil, fmt.Errorf("create candidate: %w", err)
	}
	s.logger.Info("candidate created", "candidate_id", candidate.ID)
	return candidate, nil
}

// Create opens a session for a candidate. The candidate must exist.
func (s Service) Create(ctx context.Context, candidateID string, startTime *time.Time) (*domain.Session, error) {
	if !ValidID(candidateID) {
		return nil, fmt.Errorf("%w: invalid candidateId", domain.ErrInvalidRequest)
	}
	if _, err := s.candidates.GetCandidateByID(ctx, candidateID); err != nil {
		return nil, err
	}

	start := s.now().UTC()
	if startTime != nil {
		start = startTime.UTC()
	}
	session := &domain.Session{
		ID:          uuid.NewString(),
		CandidateID: candidateID,
		StartTime:   start,
		CreatedAt:   s.now().UTC(),
		UpdatedAt:   s.now().UTC(),
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info("session created", "session_id", session.ID, "candidate_id", candidateID)
	return session, nil
}

// Get returns a session by id.
func (s Service) Get(ctx context.Context, id string) (*domain.Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	return s.sessions.GetSessionByID(ctx, id)
}

// Start confirms (or overwrites) the session start timestamp.
func (s Service) Start(ctx context.Context, id string, startTime *time.Time) (*domain.Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	start := s.now().UTC()
	if startTime != nil {
		start = startTime.UTC()
	}
	session, err := s.sessions.UpdateSessionStart(ctx, id, start)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session started", "session_id", id)
	return session, nil
}

// End stamps the session end time. Re-ending overwrites the previous stamp
// rather than failing; ENDED is terminal but idempotent.
func (s Service) End(ctx context.Context, id string, endTime *time.Time) (*domain.Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	end := s.now().UTC()
	if endTime != nil {
		end = endTime.UTC()
	}
	session, err := s.sessions.UpdateSessionEnd(ctx, id, end)
	if err != nil {
		return nil, err
	}
	s.logger.Info("session ended", "session_id", id)
	return session, nil
}

// SetRecording stores the object key the external uploader produced for the
// session recording.
func (s Service) SetRecording(ctx context.Context, id, key string) (*domain.Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: recording key required", domain.ErrInvalidRequest)
	}
	return s.sessions.UpdateSessionRecording(ctx, id, key)
}
