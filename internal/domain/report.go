package domain

import "time"

// IntegrityReport is derived from a session's event set on demand. It is
// never stored; callers recompute it per request.
type IntegrityReport struct {
	SessionID          string           `json:"sessionId"`
	CandidateName      string           `json:"candidateName"`
	DurationSeconds    *float64         `json:"durationSeconds"`
	FocusLostCount     int              `json:"focusLostCount"`
	AbsenceCount       int              `json:"absenceCount"`
	MultipleFacesCount int              `json:"multipleFacesCount"`
	SuspiciousItems    []string         `json:"suspiciousItems"`
	IntegrityScore     int              `json:"integrityScore"`
	Events             []DetectionEvent `json:"events"`
	GeneratedAt        time.Time        `json:"generatedAt"`
}
