package signaling

import (
	"sync"

	"github.com/Ravichandra89/TuteDude-Assessment/internal/domain"
)

// Occupant is a role-tagged connection inside a room.
type Occupant struct {
	ConnID string `json:"id"`
	Role   Role   `json:"role"`
}

type room struct {
	occupants []Occupant
	// ready is set when READY has been announced for the current
	// both-roles occupancy and cleared once a role slot empties, so the
	// event fires exactly once per transition.
	ready bool
}

type connState struct {
	roomID string
	role   Role
}

// Registry owns the room table. It is constructed once at startup and
// injected into the relay handler; all mutation is serialized behind one
// mutex and state is updated before any broadcast is computed.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*room
	conns map[string]connState
}

// NewRegistry creates an empty room registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*room),
		conns: make(map[string]connState),
	}
}

// JoinResult reports the room state right after a successful join.
type JoinResult struct {
	RoomID       string
	Role         Role
	Participants []Occupant
	Others       []string
	Ready        bool
}

// Join registers a connection in a room. It fails with ErrRoleConflict when
// the role slot is already occupied by another connection. A connection that
// is still registered elsewhere is moved: its previous slot is freed before
// the new one is taken, so no room keeps a phantom occupant. Ready is true
// only on the transition into the both-roles state.
func (r *Registry) Join(connID, roomID string, role Role) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm := r.rooms[roomID]; rm != nil {
		for _, occ := range rm.occupants {
			if occ.Role == role && occ.ConnID != connID {
				return JoinResult{}, domain.ErrRoleConflict
			}
		}
	}
	// conflict check precedes the implicit leave: a refused join must not
	// disturb the connection's current room
	r.leaveLocked(connID)

	rm := r.rooms[roomID]
	if rm == nil {
		rm = &room{}
		r.rooms[roomID] = rm
	}

	others := make([]string, 0, len(rm.occupants))
	for _, occ := range rm.occupants {
		others = append(others, occ.ConnID)
	}
	rm.occupants = append(rm.occupants, Occupant{ConnID: connID, Role: role})
	r.conns[connID] = connState{roomID: roomID, role: role}

	ready := false
	if rm.hasRole(RoleInterviewer) && rm.hasRole(RoleCandidate) && !rm.ready {
		rm.ready = true
		ready = true
	}

	return JoinResult{
		RoomID:       roomID,
		Role:         role,
		Participants: append([]Occupant(nil), rm.occupants...),
		Others:       others,
		Ready:        ready,
	}, nil
}

// LeaveResult reports what a leave removed, if anything.
type LeaveResult struct {
	RoomID    string
	Left      bool
	Remaining []string
}

// Leave removes a connection from its room. It is idempotent: a connection
// that is in no room yields a zero result and no error. Empty rooms are
// deleted.
func (r *Registry) Leave(connID string) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(connID)
}

func (r *Registry) leaveLocked(connID string) LeaveResult {
	state, ok := r.conns[connID]
	if !ok {
		return LeaveResult{}
	}
	delete(r.conns, connID)

	rm := r.rooms[state.roomID]
	if rm == nil {
		return LeaveResult{}
	}
	kept := rm.occupants[:0]
	for _, occ := range rm.occupants {
		if occ.ConnID != connID {
			kept = append(kept, occ)
		}
	}
	rm.occupants = kept
	if !rm.hasRole(RoleInterviewer) || !rm.hasRole(RoleCandidate) {
		rm.ready = false
	}
	if len(rm.occupants) == 0 {
		delete(r.rooms, state.roomID)
	}

	remaining := make([]string, 0, len(rm.occupants))
	for _, occ := range rm.occupants {
		remaining = append(remaining, occ.ConnID)
	}
	return LeaveResult{RoomID: state.roomID, Left: true, Remaining: remaining}
}

// Peers returns the other occupants of the connection's room.
func (r *Registry) Peers(connID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.conns[connID]
	if !ok {
		return nil
	}
	rm := r.rooms[state.roomID]
	if rm == nil {
		return nil
	}
	peers := make([]string, 0, len(rm.occupants))
	for _, occ := range rm.occupants {
		if occ.ConnID != connID {
			peers = append(peers, occ.ConnID)
		}
	}
	return peers
}

// SharesRoom reports whether target sits in the same room as connID.
func (r *Registry) SharesRoom(connID, target string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.conns[connID]
	if !ok {
		return false
	}
	targetState, ok := r.conns[target]
	return ok && targetState.roomID == state.roomID
}

// Occupants returns a snapshot of a room's occupant list.
func (r *Registry) Occupants(roomID string) []Occupant {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[roomID]
	if rm == nil {
		return nil
	}
	return append([]Occupant(nil), rm.occupants...)
}

func (rm *room) hasRole(role Role) bool {
	for _, occ := range rm.occupants {
		if occ.Role == role {
			return true
		}
	}
	return false
}
