package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/repository"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/service/session"
)

// Violation weights for the integrity score.
const (
	weightFocusLost     = 2
	weightAbsence       = 5
	weightMultipleFaces = 10
	weightSuspicious    = 5
)

// reportEventCap bounds how many raw events are embedded in a report.
const reportEventCap = 2000

// Service reduces a session's persisted event set into integrity metrics.
// Reports are recomputed per request, never cached.
type Service struct {
	sessions   repository.SessionRepository
	candidates repository.CandidateRepository
	events     repository.EventRepository
	logger     *slog.Logger
	now        func() time.Time
}

// New constructs a report service.
func New(sessions repository.SessionRepository, candidates repository.CandidateRepository, events repository.EventRepository, logger *slog.Logger) Service {
	return Service{sessions: sessions, candidates: candidates, events: events, logger: logger, now: time.Now}
}

// Build computes the integrity report for a session.
func (s Service) Build(ctx context.Context, sessionID string) (*domain.IntegrityReport, error) {
	if !session.ValidID(sessionID) {
		return nil, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	sess, err := s.sessions.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	candidateName := "Unknown"
	if candidate, err := s.candidates.GetCandidateByID(ctx, sess.CandidateID); err == nil {
		candidateName = candidate.Name
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	rows, err := s.events.ListEventsBySession(ctx, sessionID, domain.EventFilter{Limit: reportEventCap})
	if err != nil {
		return nil, err
	}

	rpt := &domain.IntegrityReport{
		SessionID:       sessionID,
		CandidateName:   candidateName,
		SuspiciousItems: make([]string, 0),
		Events:          rows,
		GeneratedAt:     s.now().UTC(),
	}
	for _, e := range rows {
		switch e.EventType {
		case domain.EventFocusLost:
			rpt.FocusLostCount++
		case domain.EventNoFace:
			rpt.AbsenceCount++
		case domain.EventMultipleFaces:
			rpt.MultipleFacesCount++
		default:
			if e.EventType.Suspicious() {
				rpt.SuspiciousItems = append(rpt.SuspiciousItems, e.Message)
			}
		}
	}
	rpt.IntegrityScore = Score(rpt.FocusLostCount, rpt.AbsenceCount, rpt.MultipleFacesCount, len(rpt.SuspiciousItems))

	if sess.Ended() {
		seconds := sess.EndTime.Sub(sess.StartTime).Seconds()
		rpt.DurationSeconds = &seconds
	}

	s.logger.Info("report generated", "session_id", sessionID, "score", rpt.IntegrityScore, "events", len(rows))
	return rpt, nil
}

// Score computes the clamped integrity score from violation counts.
func Score(focusLost, absence, multipleFaces, suspicious int) int {
	score := 100 - (focusLost*weightFocusLost +
		absence*weightAbsence +
		multipleFaces*weightMultipleFaces +
		suspicious*weightSuspicious)
	if score < 0 {
		return 0
	}
	return score
}
