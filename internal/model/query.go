package model

import "time"

// QueryStatus is the lifecycle state of a question.
type QueryStatus string

const (
	StatusPending  QueryStatus = "pending"
	StatusAnswered QueryStatus = "answered"
)

// AnsweredBy records who supplied the answer.
type AnsweredBy string

const (
	AnsweredByNone  AnsweredBy = "none"
	AnsweredByAI    AnsweredBy = "ai"
	AnsweredByAdmin AnsweredBy = "admin"
)

// Query is one question and its (possibly missing) answer.
// Answer is non-nil exactly when Status is StatusAnswered.
type Query struct {
	ID         int64       `json:"id"`
	UserID     int         `json:"user_id"`
	Text       string      `json:"query_text"`
	Answer     *string     `json:"answer_text"`
	Status     QueryStatus `json:"status"`
	AnsweredBy AnsweredBy  `json:"answered_by"`
	CreatedAt  time.Time   `json:"created_at"`
	AnsweredAt *time.Time  `json:"answered_at"`
}

// PendingQuery is a pending query with its asker, as shown in the moderation queue.
type PendingQuery struct {
	Query
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

// QueryStats summarizes the ledger for the admin dashboard.
type QueryStats struct {
	Total           int `json:"total"`
	Pending         int `json:"pending"`
	AnsweredByAI    int `json:"answered_by_ai"`
	AnsweredByAdmin int `json:"answered_by_admin"`
}

// ChatRequest is the payload of a new student question.
type ChatRequest struct {
	Query string `json:"query" form:"query" binding:"required,max=2000"`
}

// ChatReply is the chat endpoint's response body.
type ChatReply struct {
	Response string      `json:"response"`
	Status   QueryStatus `json:"status"`
}

// AnswerQueryRequest is the payload an admin sends to resolve a pending query.
type AnswerQueryRequest struct {
	QueryID int64  `json:"query_id" form:"query_id" binding:"required,gt=0"`
	Answer  string `json:"answer" form:"answer" binding:"required,max=10000"`
}

// ChatHistory is a student's questions, newest first, with the number still waiting for an admin.
type ChatHistory struct {
	Queries      []Query `json:"queries"`
	PendingCount int     `json:"pending_count"`
}
