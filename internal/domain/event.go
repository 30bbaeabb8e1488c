package domain

import "time"

// EventType enumerates the detection observations the browser pipeline emits.
type EventType string

const (
	EventFocusLost      EventType = "FOCUS_LOST"
	EventNoFace         EventType = "NO_FACE"
	EventMultipleFaces  EventType = "MULTIPLE_FACES"
	EventPhoneDetected  EventType = "PHONE_DETECTED"
	EventNotesDetected  EventType = "NOTES_DETECTED"
	EventDeviceDetected EventType = "DEVICE_DETECTED"
)

// KnownEventType reports whether the tag is one of the six detection kinds.
func KnownEventType(t EventType) bool {
	switch t {
	case EventFocusLost, EventNoFace, EventMultipleFaces,
		EventPhoneDetected, EventNotesDetected, EventDeviceDetected:
		return true
	}
	return false
}

// Suspicious reports whether the type names a detected object rather than a
// face/focus observation.
func (t EventType) Suspicious() bool {
	switch t {
	case EventPhoneDetected, EventNotesDetected, EventDeviceDetected:
		return true
	}
	return false
}

// DetectionEvent is a persisted candidate observation. Rows are append-only
// and never mutated after insert.
type DetectionEvent struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	EventType   EventType `json:"eventType"`
	Message     string    `json:"message"`
	CandidateID string    `json:"candidateId,omitempty"`
	Metadata    []byte    `json:"metadata,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	IngestedAt  time.Time `json:"ingestedAt"`
}

// EventFilter narrows detection-event queries.
type EventFilter struct {
	Type        EventType
	CandidateID string
	From        time.Time
	To          time.Time
	Page        int
	Limit       int
}
