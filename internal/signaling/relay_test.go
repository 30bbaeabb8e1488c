package signaling

import (
	"encoding/json"
	"io"
	"testing"

	"log/slog"
)

func testHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(NewRegistry(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(Envelope{Event: event, Data: mustMarshal(data)})
	if err != nil {
		t.Fatalf("marshal frame: %v", err)
	}
	return raw
}

func joinRoom(t *testing.T, h *Handler, connID, roomID string, role Role) []Outbound {
	t.Helper()
	out := h.HandleMessage(connID, frame(t, EventJoin, JoinPayload{RoomID: roomID, Role: role}))
	for _, o := range out {
		if o.Payload.Event == EventError {
			t.Fatalf("join of %s failed: %s", connID, o.Payload.Data)
		}
	}
	return out
}

func decodeRelay(t *testing.T, env Envelope) RelayPayload {
	t.Helper()
	var payload RelayPayload
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode relay payload: %v", err)
	}
	return payload
}

func assertSingleError(t *testing.T, out []Outbound, to, message string) {
	t.Helper()
	if len(out) != 1 {
		t.Fatalf("expected 1 outbound, got %d", len(out))
	}
	if out[0].To != to {
		t.Fatalf("error addressed to %s, want %s", out[0].To, to)
	}
	if out[0].Payload.Event != EventError {
		t.Fatalf("expected error event, got %s", out[0].Payload.Event)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(out[0].Payload.Data, &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload.Message != message {
		t.Fatalf("error message = %q, want %q", payload.Message, message)
	}
}

func TestJoinNotifiesOthersAndReady(t *testing.T) {
	h := testHandler(t)

	out := joinRoom(t, h, "int-1", "room-a", RoleInterviewer)
	if len(out) != 0 {
		t.Fatalf("first join should produce no outbound, got %d", len(out))
	}

	out = joinRoom(t, h, "cand-1", "room-a", RoleCandidate)
	// one participant-joined to the interviewer, ready to both
	byEvent := map[string][]string{}
	for _, o := range out {
		byEvent[o.Payload.Event] = append(byEvent[o.Payload.Event], o.To)
	}
	if got := byEvent[EventParticipantJoined]; len(got) != 1 || got[0] != "int-1" {
		t.Fatalf("participant-joined targets = %v, want [int-1]", got)
	}
	if got := byEvent[EventReady]; len(got) != 2 {
		t.Fatalf("ready targets = %v, want both occupants", got)
	}
}

func TestJoinRoleConflictMessage(t *testing.T) {
	h := testHandler(t)
	joinRoom(t, h, "cand-1", "room-a", RoleCandidate)

	out := h.HandleMessage("cand-2", frame(t, EventJoin, JoinPayload{RoomID: "room-a", Role: RoleCandidate}))
	assertSingleError(t, out, "cand-2", "candidate already present in room")
}

func TestJoinRejectsUnknownRole(t *testing.T) {
	h := testHandler(t)
	out := h.HandleMessage("conn-1", frame(t, EventJoin, JoinPayload{RoomID: "room-a", Role: "observer"}))
	assertSingleError(t, out, "conn-1", "unknown role: observer")
}

func TestOfferForwardedToExplicitTarget(t *testing.T) {
	h := testHandler(t)
	joinRoom(t, h, "int-1", "room-a", RoleInterviewer)
	joinRoom(t, h, "cand-1", "room-a", RoleCandidate)

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	out := h.HandleMessage("int-1", frame(t, EventOffer, RelayPayload{To: "cand-1", Description: sdp}))
	if len(out) != 1 || out[0].To != "cand-1" {
		t.Fatalf("unexpected outbound: %+v", out)
	}
	if out[0].Payload.Event != EventOffer {
		t.Fatalf("forwarded event = %s, want offer", out[0].Payload.Event)
	}
	payload := decodeRelay(t, out[0].Payload)
	if payload.From != "int-1" {
		t.Fatalf("from = %q, want int-1", payload.From)
	}
	if string(payload.Description) != string(sdp) {
		t.Fatalf("description altered in transit: %s", payload.Description)
	}
}

func TestOfferBroadcastsWithoutTarget(t *testing.T) {
	h := testHandler(t)
	joinRoom(t, h, "int-1", "room-a", RoleInterviewer)
	joinRoom(t, h, "cand-1", "room-a", RoleCandidate)

	out := h.HandleMessage("int-1", frame(t, EventOffer, RelayPayload{Description: json.RawMessage(`{"type":"offer"}`)}))
	if len(out) != 1 || out[0].To != "cand-1" {
		t.Fatalf("broadcast must reach the peer only, got %+v", out)
	}
}

func TestRelayRejectsTargetOutsideRoom(t *testing.T) {
	h := testHandler(t)
	joinRoom(t, h, "int-1", "room-a", RoleInterviewer)
	joinRoom(t, h, "int-2", "room-b", RoleInterviewer)

	out := h.HandleMessage("int-1", frame(t, EventOffer, RelayPayload{To: "int-2", Description: json.RawMessage(`{}`)}))
	assertSingleError(t, out, "int-1", "unknown target")
}

func TestRelayRequiresPayload(t *testing.T) {
	h := testHandler(t)
	joinRoom(t, h, "int-1", "room-a", RoleInterviewer)
	joinRoom(t, h, "cand-1", "room-a", RoleCandidate)

	out := h.HandleMessage("int-1", frame(t, EventAnswer, RelayPayload{To: "cand-1"}))
	assertSingleError(t, out, "int-1", "answer requires a payload")
}

func TestICECandidateUsesCandidateField(t *testing.T) {
	h := testHandler(t)
	joinRoom(t, h, "int-1", "room-a", RoleInterviewer)
	joinRoom(t, h, "cand-1", "room-a", RoleCandidate)

	ice := json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 10.0.0.1 54321 typ host"}`)
	out := h.HandleMessage("cand-1", frame(t, EventICECandidate, RelayPayload{To: "int-1", Candidate: ice}))
	if len(out) != 1 || out[0].To != "int-1" {
		t.Fatalf("unexpected outbound: %+v", out)
	}
	payload := decodeRelay(t, out[0].Payload)
	if string(payload.Candidate) != string(ice) {
		t.Fatalf("candidate altered in transit: %s", payload.Candidate)
	}
	if len(payload.Description) != 0 {
		t.Fatalf("ice frame must not carry a description, got %s", payload.Description)
	}
}

func TestMalformedFrameReturnsError(t *testing.T) {
	h := testHandler(t)
	out := h.HandleMessage("conn-1", []byte("{not json"))
	assertSingleError(t, out, "conn-1", "invalid message")
}

func TestUnknownEventReturnsError(t *testing.T) {
	h := testHandler(t)
	out := h.HandleMessage("conn-1", frame(t, "renegotiate", struct{}{}))
	assertSingleError(t, out, "conn-1", "unknown event: renegotiate")
}

func TestDisconnectNotifiesRemainingPeers(t *testing.T) {
	h := testHandler(t)
	joinRoom(t, h, "int-1", "room-a", RoleInterviewer)
	joinRoom(t, h, "cand-1", "room-a", RoleCandidate)

	out := h.HandleDisconnect("cand-1")
	if len(out) != 1 || out[0].To != "int-1" || out[0].Payload.Event != EventParticipantLeft {
		t.Fatalf("unexpected outbound: %+v", out)
	}
	var payload ParticipantPayload
	if err := json.Unmarshal(out[0].Payload.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.ID != "cand-1" {
		t.Fatalf("left id = %q, want cand-1", payload.ID)
	}

	// the freed slot is reusable immediately
	joinRoom(t, h, "cand-2", "room-a", RoleCandidate)
}

func TestDisconnectOfUnknownConnectionIsSilent(t *testing.T) {
	h := testHandler(t)
	if out := h.HandleDisconnect("ghost"); out != nil {
		t.Fatalf("expected no outbound, got %+v", out)
	}
}
