package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/repository"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/service/session"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// IncomingEvent is one wire entry of a POST /logs batch. Clients have
// historically sent the tag as either "type" or "eventType".
type IncomingEvent struct {
	Type        string          `json:"type"`
	EventType   string          `json:"eventType"`
	Message     string          `json:"message"`
	Timestamp   *time.Time      `json:"timestamp"`
	CandidateID string          `json:"candidateId"`
	Metadata    json.RawMessage `json:"metadata"`
}

func (e IncomingEvent) tag() domain.EventType {
	if e.EventType != "" {
		return domain.EventType(e.EventType)
	}
	return domain.EventType(e.Type)
}

// SaveResult reports what a batch insert persisted.
type SaveResult struct {
	InsertedCount int      `json:"insertedCount"`
	InsertedIDs   []string `json:"insertedIds"`
	DroppedCount  int      `json:"droppedCount,omitempty"`
}

// Service validates and persists detection-event batches and serves the
// dual-mode query contract (rows or per-type counts).
type Service struct {
	events       repository.EventRepository
	sessions     repository.SessionRepository
	logger       *slog.Logger
	limitDefault int
	limitMax     int
	now          func() time.Time
}

// New constructs an ingestion service. limitDefault is the page size used
// when a query names none; limitMax caps what a query may ask for.
func New(events repository.EventRepository, sessions repository.SessionRepository, logger *slog.Logger, limitDefault, limitMax int) Service {
	if limitDefault <= 0 {
		limitDefault = defaultPageLimit
	}
	if limitMax <= 0 {
		limitMax = maxPageLimit
	}
	if limitDefault > limitMax {
		limitDefault = limitMax
	}
	return Service{events: events, sessions: sessions, logger: logger, limitDefault: limitDefault, limitMax: limitMax, now: time.Now}
}

// SaveBatch persists the valid entries of a batch against an existing
// session. Malformed entries are dropped individually; per-row insert
// failures skip the row without rolling back the rest.
func (s Service) SaveBatch(ctx context.Context, sessionID string, entries []IncomingEvent) (SaveResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if !session.ValidID(sessionID) {
		return SaveResult{}, fmt.Errorf("%w: sessionId must be a valid identifier", domain.ErrInvalidRequest)
	}
	if len(entries) == 0 {
		return SaveResult{}, fmt.Errorf("%w: events[] required", domain.ErrInvalidRequest)
	}
	if _, err := s.sessions.GetSessionByID(ctx, sessionID); err != nil {
		return SaveResult{}, err
	}

	result := SaveResult{InsertedIDs: make([]string, 0, len(entries))}
	for _, entry := range entries {
		tag := entry.tag()
		if !domain.KnownEventType(tag) || strings.TrimSpace(entry.Message) == "" {
			result.DroppedCount++
			continue
		}
		occurred := s.now().UTC()
		if entry.Timestamp != nil {
			occurred = entry.Timestamp.UTC()
		}
		event := &domain.DetectionEvent{
			ID:          uuid.NewString(),
			SessionID:   sessionID,
			EventType:   tag,
			Message:     entry.Message,
			CandidateID: strings.TrimSpace(entry.CandidateID),
			Metadata:    entry.Metadata,
			Timestamp:   occurred,
			IngestedAt:  s.now().UTC(),
		}
		if err := s.events.InsertEvent(ctx, event); err != nil {
			s.logger.Warn("event insert failed", "session_id", sessionID, "event_type", tag, "error", err)
			result.DroppedCount++
			continue
		}
		result.InsertedCount++
		result.InsertedIDs = append(result.InsertedIDs, event.ID)
	}
	s.logger.Info("event batch saved", "session_id", sessionID,
		"inserted", result.InsertedCount, "dropped", result.DroppedCount)
	return result, nil
}

// List returns a session's events in timestamp order.
func (s Service) List(ctx context.Context, sessionID string, filter domain.EventFilter) ([]domain.DetectionEvent, error) {
	filter, err := s.prepare(ctx, sessionID, filter)
	if err != nil {
		return nil, err
	}
	return s.events.ListEventsBySession(ctx, sessionID, filter)
}

// Aggregate returns per-type counts for a session, honoring the same
// filters as List. The report aggregator depends on this path.
func (s Service) Aggregate(ctx context.Context, sessionID string, filter domain.EventFilter) (map[domain.EventType]int64, error) {
	filter, err := s.prepare(ctx, sessionID, filter)
	if err != nil {
		return nil, err
	}
	return s.events.CountEventsByType(ctx, sessionID, filter)
}

func (s Service) prepare(ctx context.Context, sessionID string, filter domain.EventFilter) (domain.EventFilter, error) {
	if !session.ValidID(sessionID) {
		return filter, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	if filter.Type != "" && !domain.KnownEventType(filter.Type) {
		return filter, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidRequest, filter.Type)
	}
	if _, err := s.sessions.GetSessionByID(ctx, sessionID); err != nil {
		return filter, err
	}
	if filter.Limit <= 0 {
		filter.Limit = s.limitDefault
	}
	if filter.Limit > s.limitMax {
		filter.Limit = s.limitMax
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	return filter, nil
}
