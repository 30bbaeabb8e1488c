package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
	"github.com/Ravichandra89/TuteDude-Assessment/internal/repository"
)

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.CandidateRepository = (*Repository)(nil)
	_ repository.SessionRepository   = (*Repository)(nil)
	_ repository.EventRepository     = (*Repository)(nil)
)

// CreateCandidate inserts a candidate.
func (r *Repository) CreateCandidate(ctx context.Context, candidate *domain.Candidate) error {
	const query = `INSERT INTO candidates (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query, candidate.ID, candidate.Name, candidate.Email, candidate.CreatedAt)
	return err
}

// GetCandidateByID fetches a candidate by identifier.
func (r *Repository) GetCandidateByID(ctx context.Context, id string) (*domain.Candidate, error) {
	const query = `SELECT id, name, email, created_at FROM candidates WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var c domain.Candidate
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// CreateSession inserts a session record.
func (r *Repository) CreateSession(ctx context.Context, session *domain.Session) error {
	const query = `INSERT INTO sessions (id, candidate_id, start_time, end_time, recording_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.pool.Exec(ctx, query, session.ID, session.CandidateID, session.StartTime,
		session.EndTime, nullableString(session.RecordingURL), session.CreatedAt, session.UpdatedAt)
	return err
}

// GetSessionByID retrieves a session by identifier.
func (r *Repository) GetSessionByID(ctx context.Context, id string) (*domain.Session, error) {
	const query = `SELECT id, candidate_id, start_time, end_time, recording_url, created_at, updated_at
		FROM sessions WHERE id = $1`
	return r.scanSession(r.pool.QueryRow(ctx, query, id))
}

// UpdateSessionStart overwrites the start timestamp and returns the updated row.
func (r *Repository) UpdateSessionStart(ctx context.Context, id string, startTime time.Time) (*domain.Session, error) {
	const query = `UPDATE sessions SET start_time = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, candidate_id, start_time, end_time, recording_url, created_at, updated_at`
	return r.scanSession(r.pool.QueryRow(ctx, query, id, startTime))
}

// UpdateSessionEnd sets the end timestamp. Re-ending overwrites the previous value.
func (r *Repository) UpdateSessionEnd(ctx context.Context, id string, endTime time.Time) (*domain.Session, error) {
	const query = `UPDATE sessions SET end_time = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, candidate_id, start_time, end_time, recording_url, created_at, updated_at`
	return r.scanSession(r.pool.QueryRow(ctx, query, id, endTime))
}

// UpdateSessionRecording stores the object key produced by the external uploader.
func (r *Repository) UpdateSessionRecording(ctx context.Context, id, recordingURL string) (*domain.Session, error) {
	const query = `UPDATE sessions SET recording_url = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, candidate_id, start_time, end_time, recording_url, created_at, updated_at`
	return r.scanSession(r.pool.QueryRow(ctx, query, id, recordingURL))
}

func (r *Repository) scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	var recording *string
	if err := row.Scan(&s.ID, &s.CandidateID, &s.StartTime, &s.EndTime, &recording, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if recording != nil {
		s.RecordingURL = *recording
	}
	return &s, nil
}

// InsertEvent appends a detection event row.
func (r *Repository) InsertEvent(ctx context.Context, event *domain.DetectionEvent) error {
	const query = `INSERT INTO detection_events (id, session_id, event_type, message, candidate_id, metadata, occurred_at, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.pool.Exec(ctx, query, event.ID, event.SessionID, string(event.EventType), event.Message,
		nullableString(event.CandidateID), event.Metadata, event.Timestamp, event.IngestedAt)
	return err
}

// ListEventsBySession returns events in timestamp order, filtered and paginated.
func (r *Repository) ListEventsBySession(ctx context.Context, sessionID string, filter domain.EventFilter) ([]domain.DetectionEvent, error) {
	query, args := buildEventQuery(
		`SELECT id, session_id, event_type, message, candidate_id, metadata, occurred_at, ingested_at FROM detection_events`,
		sessionID, filter)
	query += fmt.Sprintf(" ORDER BY occurred_at ASC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.DetectionEvent, 0)
	for rows.Next() {
		var e domain.DetectionEvent
		var eventType string
		var candidateID *string
		if err := rows.Scan(&e.ID, &e.SessionID, &eventType, &e.Message, &candidateID, &e.Metadata, &e.Timestamp, &e.IngestedAt); err != nil {
			return nil, err
		}
		e.EventType = domain.EventType(eventType)
		if candidateID != nil {
			e.CandidateID = *candidateID
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountEventsByType aggregates per-type counts honoring the same filters as
// the row query.
func (r *Repository) CountEventsByType(ctx context.Context, sessionID string, filter domain.EventFilter) (map[domain.EventType]int64, error) {
	query, args := buildEventQuery(`SELECT event_type, COUNT(1) FROM detection_events`, sessionID, filter)
	query += " GROUP BY event_type"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.EventType]int64)
	for rows.Next() {
		var eventType string
		var count int64
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		counts[domain.EventType(eventType)] = count
	}
	return counts, rows.Err()
}

func buildEventQuery(base, sessionID string, filter domain.EventFilter) (string, []any) {
	clauses := []string{"session_id = $1"}
	args := []any{sessionID}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		clauses = append(clauses, fmt.Sprintf("event_type = $%d", len(args)))
	}
	if filter.CandidateID != "" {
		args = append(args, filter.CandidateID)
		clauses = append(clauses, fmt.Sprintf("candidate_id = $%d", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		clauses = append(clauses, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		clauses = append(clauses, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}
	return base + " WHERE " + strings.Join(clauses, " AND "), args
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
