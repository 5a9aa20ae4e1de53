package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/ai"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
)

// FallbackMessage is shown to the student whenever no automatic answer could be produced.
const FallbackMessage = "Your query has been forwarded to the admin. You will receive a response soon."

// ErrEmptyQuestion is returned for a blank question. Nothing is recorded.
var ErrEmptyQuestion = errors.New("query must not be empty")

// ErrInvalidText is returned for text Postgres cannot store (NUL bytes).
var ErrInvalidText = errors.New("text must not contain NUL characters")

// ChatConfig tunes the chat orchestration.
type ChatConfig struct {
	Persona  string
	Deadline time.Duration // overall bound on the AI call, all retries included
	Dedup    bool          // reuse an earlier answer to the same question
}

// ChatService records student questions, tries to answer them automatically and
// hands the rest to the admins.
type ChatService struct {
	queries QueryLedger
	asker   ai.Asker
	events  EventPublisher
	cfg     ChatConfig
	log     zerolog.Logger
}

// NewChatService creates a new ChatService.
func NewChatService(queries QueryLedger, asker ai.Asker, events EventPublisher, cfg ChatConfig, log zerolog.Logger) *ChatService {
	return &ChatService{
		queries: queries,
		asker:   asker,
		events:  events,
		cfg:     cfg,
		log:     logger.Component(log, "chat"),
	}
}

// Ask handles one question from a student. AI failures are never returned:
// the question stays pending and the reply carries FallbackMessage.
func (s *ChatService) Ask(ctx context.Context, userID int, userName, question string) (*model.ChatReply, error) {
	text := strings.TrimSpace(question)
	if text == "" {
		return nil, ErrEmptyQuestion
	}
	if hasNUL(text) {
		return nil, ErrInvalidText
	}

	if s.cfg.Dedup {
		prior, err := s.queries.AppendFromPrior(ctx, userID, text)
		if err != nil {
			return nil, fmt.Errorf("dedup lookup: %w", err)
		}
		if prior != nil {
			s.log.Debug().Int64("query_id", prior.ID).Msg("Answered from an earlier identical question")
			return answered(prior), nil
		}
	}

	q, err := s.queries.Append(ctx, userID, text)
	if err != nil {
		return nil, fmt.Errorf("append query: %w", err)
	}

	answer, err := s.askAI(ctx, text)
	if err != nil {
		s.forward(ctx, q, userName, err)
		return &model.ChatReply{Response: FallbackMessage, Status: model.StatusPending}, nil
	}

	resolved, err := s.queries.Resolve(ctx, q.ID, answer, model.AnsweredByAI)
	if errors.Is(err, repository.ErrAlreadyAnswered) {
		// An admin got there first; theirs stands.
		resolved, err = s.queries.GetByID(ctx, q.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve query: %w", err)
	}
	return answered(resolved), nil
}

// History returns the student's questions newest first and how many are still pending.
func (s *ChatService) History(ctx context.Context, userID int) (*model.ChatHistory, error) {
	queries, err := s.queries.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	pending, err := s.queries.CountPendingForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.ChatHistory{Queries: queries, PendingCount: pending}, nil
}

func (s *ChatService) askAI(ctx context.Context, text string) (string, error) {
	if s.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Deadline)
		defer cancel()
	}
	return s.asker.Ask(ctx, text, s.cfg.Persona)
}

func (s *ChatService) forward(ctx context.Context, q *model.Query, userName string, cause error) {
	reason := "unknown"
	var f *ai.Failure
	if errors.As(cause, &f) {
		reason = string(f.Reason)
	}

	s.log.Warn().
		Err(cause).
		Int64("query_id", q.ID).
		Str("reason", reason).
		Msg("No automatic answer, forwarding to admin")

	ev := model.ModerationEvent{
		Type:      model.EventQueryPending,
		QueryID:   q.ID,
		UserID:    q.UserID,
		UserName:  userName,
		QueryText: q.Text,
		Reason:    reason,
		At:        q.CreatedAt,
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Error().Err(err).Int64("query_id", q.ID).Msg("Failed to publish pending event")
	}
}

func answered(q *model.Query) *model.ChatReply {
	reply := &model.ChatReply{Status: q.Status}
	if q.Answer != nil {
		reply.Response = *q.Answer
	}
	return reply
}

func hasNUL(values ...string) bool {
	for _, v := range values {
		if strings.IndexByte(v, 0) >= 0 {
			return true
		}
	}
	return false
}
