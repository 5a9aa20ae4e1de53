package model

import "time"

// ModerationEventType names a change to the moderation queue.
type ModerationEventType string

const (
	EventQueryPending  ModerationEventType = "query.pending"
	EventQueryAnswered ModerationEventType = "query.answered"
)

// ModerationEvent is broadcast to admins when the pending queue changes.
type ModerationEvent struct {
	Type       ModerationEventType `json:"type"`
	QueryID    int64               `json:"query_id"`
	UserID     int                 `json:"user_id"`
	UserName   string              `json:"user_name,omitempty"`
	QueryText  string              `json:"query_text"`
	AnsweredBy AnsweredBy          `json:"answered_by,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	At         time.Time           `json:"at"`
}
