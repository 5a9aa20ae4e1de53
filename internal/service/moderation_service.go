package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/logger"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
)

// ErrEmptyAnswer is returned when an admin submits a blank answer.
var ErrEmptyAnswer = errors.New("answer must not be empty")

// ModerationService backs the admin queue of forwarded questions.
type ModerationService struct {
	queries QueryLedger
	events  EventPublisher
	policy  string
	log     zerolog.Logger
}

// NewModerationService creates a new ModerationService. policy is one of
// config.ResolvePolicyReject or config.ResolvePolicyIgnore.
func NewModerationService(queries QueryLedger, events EventPublisher, policy string, log zerolog.Logger) *ModerationService {
	if policy != config.ResolvePolicyIgnore {
		policy = config.ResolvePolicyReject
	}
	return &ModerationService{
		queries: queries,
		events:  events,
		policy:  policy,
		log:     logger.Component(log, "moderation"),
	}
}

// ListPending returns unanswered questions, oldest first.
func (s *ModerationService) ListPending(ctx context.Context) ([]model.PendingQuery, error) {
	return s.queries.ListPending(ctx)
}

// Answer resolves a pending question as the admin.
// A second answer returns repository.ErrAlreadyAnswered, or the stored row unchanged
// under the ignore policy.
func (s *ModerationService) Answer(ctx context.Context, queryID int64, answer string) (*model.Query, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}
	if hasNUL(answer) {
		return nil, ErrInvalidText
	}

	q, err := s.queries.Resolve(ctx, queryID, answer, model.AnsweredByAdmin)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyAnswered) && s.policy == config.ResolvePolicyIgnore {
			return s.queries.GetByID(ctx, queryID)
		}
		return nil, err
	}

	ev := model.ModerationEvent{
		Type:       model.EventQueryAnswered,
		QueryID:    q.ID,
		UserID:     q.UserID,
		QueryText:  q.Text,
		AnsweredBy: q.AnsweredBy,
		At:         time.Now().UTC(),
	}
	if q.AnsweredAt != nil {
		ev.At = *q.AnsweredAt
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		s.log.Error().Err(err).Int64("query_id", q.ID).Msg("Failed to publish answered event")
	}

	s.log.Info().Int64("query_id", q.ID).Msg("Query answered by admin")
	return q, nil
}

// Stats summarizes the ledger.
func (s *ModerationService) Stats(ctx context.Context) (*model.QueryStats, error) {
	return s.queries.Stats(ctx)
}
