package domain

import "errors"

// ErrInvalidRequest marks malformed or missing required input. Mapped to 400
// at the HTTP boundary and never retried by clients.
var ErrInvalidRequest = errors.New("invalid request")

// ErrRoleConflict indicates a room already holds an occupant of the
// requested role. Surfaced to the joining client only.
var ErrRoleConflict = errors.New("role already present in room")
