package ws

import "encoding/json"

const Greeting = "Welcome"

// Inbound actions, selected by the "action" discriminant.
const (
	ActionJoinRoom  = "join_room"
	ActionLeaveRoom = "leave_room"
	ActionChat      = "chat"
)

// Envelope is the part of every inbound frame needed to route it.
type Envelope struct {
	Action string `json:"action"`
}

// ──────────────────────────── Request DTOs ─────────────────────────────────

// Fields are pointers so that an absent field can be told apart from "".
// Empty strings are valid room names and messages.

type JoinRoomRequest struct {
	Room *string `json:"room" validate:"required"`
}

type LeaveRoomRequest struct {
	Room *string `json:"room" validate:"required"`
}

type ChatRequest struct {
	Room    *string `json:"room"    validate:"required"`
	Message *string `json:"message" validate:"required"`
}

// ──────────────────────────── Outbound frames ──────────────────────────────

// StatusFrame acknowledges a request to its sender.
type StatusFrame struct {
	Status string `json:"status"`
	Room   string `json:"room"`
}

// ChatFrame is fanned out to every member of a room.
type ChatFrame struct {
	Chat string `json:"chat"`
}

// ErrorFrame is returned to the originator of an undecodable frame.
type ErrorFrame struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

const errInvalidJSON = "invalid_json"

func encodeFrame(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Frames are flat structs of strings.
		panic(err)
	}
	return b
}
