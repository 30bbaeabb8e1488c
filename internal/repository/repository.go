package repository

import (
	"context"
	"time"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
)

// CandidateRepository persists candidates.
type CandidateRepository interface {
	CreateCandidate(ctx context.Context, candidate *domain.Candidate) error
	GetCandidateByID(ctx context.Context, id string) (*domain.Candidate, error)
}

// SessionRepository persists interview sessions.
type SessionRepository interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSessionByID(ctx context.Context, id string) (*domain.Session, error)
	UpdateSessionStart(ctx context.Context, id string, startTime time.Time) (*domain.Session, error)
	UpdateSessionEnd(ctx context.Context, id string, endTime time.Time) (*domain.Session, error)
	UpdateSessionRecording(ctx context.Context, id, recordingURL string) (*domain.Session, error)
}

// EventRepository handles detection-event persistence and retrieval.
type EventRepository interface {
	InsertEvent(ctx context.Context, event *domain.DetectionEvent) error
	ListEventsBySession(ctx context.Context, sessionID string, filter domain.EventFilter) ([]domain.DetectionEvent, error)
	CountEventsByType(ctx context.Context, sessionID string, filter domain.EventFilter) (map[domain.EventType]int64, error)
}
