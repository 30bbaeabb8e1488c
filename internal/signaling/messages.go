package signaling

import "encoding/json"

// Wire event names, shared with the browser clients.
const (
	EventJoin              = "join"
	EventLeave             = "leave"
	EventOffer             = "offer"
	EventAnswer            = "answer"
	EventICECandidate      = "ice-candidate"
	EventReady             = "ready"
	EventParticipantJoined = "participant-joined"
	EventParticipantLeft   = "participant-left"
	EventError             = "error"
)

// Role identifies which side of the interview a connection plays.
type Role string

const (
	RoleInterviewer Role = "interviewer"
	RoleCandidate   Role = "candidate"
)

// KnownRole reports whether the role tag is one of the two interview roles.
func KnownRole(r Role) bool {
	return r == RoleInterviewer || r == RoleCandidate
}

// Envelope is the JSON frame exchanged on the signaling socket.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinPayload carries a join request.
type JoinPayload struct {
	RoomID string `json:"roomId"`
	Role   Role   `json:"role"`
}

// RelayPayload addresses a negotiation message. Description and Candidate
// are opaque; the relay never parses SDP or ICE contents.
type RelayPayload struct {
	To          string          `json:"to,omitempty"`
	From        string          `json:"from,omitempty"`
	Description json.RawMessage `json:"description,omitempty"`
	Candidate   json.RawMessage `json:"candidate,omitempty"`
}

// ReadyPayload announces that both roles are present in a room.
type ReadyPayload struct {
	RoomID       string     `json:"roomId"`
	Participants []Occupant `json:"participants"`
}

// ParticipantPayload announces a peer arriving or leaving.
type ParticipantPayload struct {
	ID   string `json:"id"`
	Role Role   `json:"role,omitempty"`
}

// ErrorPayload carries a human-readable, non-fatal error to one client.
type ErrorPayload struct {
	Message string `json:"message"`
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}

func errorEnvelope(message string) Envelope {
	return Envelope{Event: EventError, Data: mustMarshal(ErrorPayload{Message: message})}
}
