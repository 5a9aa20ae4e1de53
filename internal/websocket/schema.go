package websocket

import "github.com/sistec/enquiry-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionPing    Action = "ping"
	ActionRefresh Action = "refresh"
)

// RequestEnvelope is the only client message shape on the admin stream.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError      Event = "error"
	EventSnapshot   Event = "snapshot"
	EventModeration Event = "moderation"
	EventPong       Event = "pong"
)

// SnapshotResponse carries the whole pending queue, sent on connect and on refresh.
type SnapshotResponse struct {
	Event   Event                `json:"event"`
	Pending []model.PendingQuery `json:"pending"`
	Stats   *model.QueryStats    `json:"stats,omitempty"`
}

// ModerationResponse relays one queue change.
type ModerationResponse struct {
	Event Event                 `json:"event"`
	Data  model.ModerationEvent `json:"data"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
