package signaling

import (
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
)

// Outbound is a message the transport layer must deliver to one connection.
type Outbound struct {
	To      string
	Payload Envelope
}

// Handler maps inbound signaling frames to outbound message lists. It holds
// no transport state, which keeps the protocol unit-testable without a
// websocket.
type Handler struct {
	registry *Registry
	log      *slog.Logger
}

// NewHandler wires the relay to its room registry.
func NewHandler(registry *Registry, log *slog.Logger) *Handler {
	return &Handler{registry: registry, log: log.With("component", "signaling")}
}

// HandleMessage processes one inbound frame from connID. Protocol errors
// never terminate the connection; they come back as a single error frame
// addressed to the sender.
func (h *Handler) HandleMessage(connID string, raw []byte) []Outbound {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return []Outbound{{To: connID, Payload: errorEnvelope("invalid message")}}
	}

	switch env.Event {
	case EventJoin:
		return h.handleJoin(connID, env.Data)
	case EventLeave:
		return h.handleLeave(connID)
	case EventOffer, EventAnswer, EventICECandidate:
		return h.handleRelay(connID, env.Event, env.Data)
	default:
		return []Outbound{{To: connID, Payload: errorEnvelope("unknown event: " + env.Event)}}
	}
}

// HandleDisconnect runs the implicit-leave path when the transport drops a
// connection. Cleanup must not depend on the client's cooperation.
func (h *Handler) HandleDisconnect(connID string) []Outbound {
	return h.handleLeave(connID)
}

func (h *Handler) handleJoin(connID string, data json.RawMessage) []Outbound {
	var payload JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return []Outbound{{To: connID, Payload: errorEnvelope("invalid join payload")}}
	}
	if payload.RoomID == "" || payload.Role == "" {
		return []Outbound{{To: connID, Payload: errorEnvelope("roomId & role required")}}
	}
	if !KnownRole(payload.Role) {
		return []Outbound{{To: connID, Payload: errorEnvelope("unknown role: " + string(payload.Role))}}
	}

	result, err := h.registry.Join(connID, payload.RoomID, payload.Role)
	if err != nil {
		if errors.Is(err, domain.ErrRoleConflict) {
			return []Outbound{{To: connID, Payload: errorEnvelope(string(payload.Role) + " already present in room")}}
		}
		return []Outbound{{To: connID, Payload: errorEnvelope("join failed")}}
	}
	h.log.Info("participant joined", "conn_id", connID, "room_id", result.RoomID, "role", result.Role)

	out := make([]Outbound, 0, len(result.Participants)+len(result.Others))
	joined := Envelope{
		Event: EventParticipantJoined,
		Data:  mustMarshal(ParticipantPayload{ID: connID, Role: result.Role}),
	}
	for _, other := range result.Others {
		out = append(out, Outbound{To: other, Payload: joined})
	}
	if result.Ready {
		h.log.Info("room ready", "room_id", result.RoomID)
		ready := Envelope{
			Event: EventReady,
			Data:  mustMarshal(ReadyPayload{RoomID: result.RoomID, Participants: result.Participants}),
		}
		for _, occ := range result.Participants {
			out = append(out, Outbound{To: occ.ConnID, Payload: ready})
		}
	}
	return out
}

func (h *Handler) handleLeave(connID string) []Outbound {
	result := h.registry.Leave(connID)
	if !result.Left {
		return nil
	}
	h.log.Info("participant left", "conn_id", connID, "room_id", result.RoomID)

	left := Envelope{
		Event: EventParticipantLeft,
		Data:  mustMarshal(ParticipantPayload{ID: connID}),
	}
	out := make([]Outbound, 0, len(result.Remaining))
	for _, peer := range result.Remaining {
		out = append(out, Outbound{To: peer, Payload: left})
	}
	return out
}

func (h *Handler) handleRelay(connID, event string, data json.RawMessage) []Outbound {
	var payload RelayPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return []Outbound{{To: connID, Payload: errorEnvelope("invalid " + event + " payload")}}
	}

	body := payload.Description
	if event == EventICECandidate {
		body = payload.Candidate
	}
	if len(body) == 0 {
		return []Outbound{{To: connID, Payload: errorEnvelope(event + " requires a payload")}}
	}

	var targets []string
	switch {
	case payload.To != "":
		if !h.registry.SharesRoom(connID, payload.To) {
			return []Outbound{{To: connID, Payload: errorEnvelope("unknown target")}}
		}
		targets = []string{payload.To}
	default:
		// No explicit target: fall back to broadcasting to the rest of
		// the sender's room.
		targets = h.registry.Peers(connID)
		if len(targets) == 0 {
			return []Outbound{{To: connID, Payload: errorEnvelope("no peer in room")}}
		}
	}

	forwarded := RelayPayload{From: connID}
	if event == EventICECandidate {
		forwarded.Candidate = body
		// ICE candidates arrive tens of times per negotiation; keep them
		// out of the default log stream.
		h.log.Debug("relayed ice candidate", "from", connID, "targets", len(targets))
	} else {
		forwarded.Description = body
		h.log.Info("relayed "+event, "from", connID, "targets", len(targets))
	}
	env := Envelope{Event: event, Data: mustMarshal(forwarded)}

	out := make([]Outbound, 0, len(targets))
	for _, target := range targets {
		out = append(out, Outbound{To: target, Payload: env})
	}
	return out
}
