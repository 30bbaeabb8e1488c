package domain

import "time"

// Session anchors detection events and reports for one interview.
type Session struct {
	ID           string     `json:"id"`
	CandidateID  string     `json:"candidateId"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	RecordingURL string     `json:"recordingUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Ended reports whether the session reached its terminal state.
func (s Session) Ended() bool {
	return s.EndTime != nil
}
