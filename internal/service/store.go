package service

import (
	"context"
	"time"

	"github.com/sistec/enquiry-backend/internal/model"
)

// UserStore is the credential store. Implemented by repository.UserRepository
// and inmemdb.UserRepository.
type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id int) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// QueryLedger is the append-mostly record of student questions.
type QueryLedger interface {
	Append(ctx context.Context, userID int, text string) (*model.Query, error)
	AppendFromPrior(ctx context.Context, userID int, text string) (*model.Query, error)
	Resolve(ctx context.Context, id int64, answer string, by model.AnsweredBy) (*model.Query, error)
	GetByID(ctx context.Context, id int64) (*model.Query, error)
	ListForUser(ctx context.Context, userID int) ([]model.Query, error)
	ListPending(ctx context.Context) ([]model.PendingQuery, error)
	CountPendingForUser(ctx context.Context, userID int) (int, error)
	Stats(ctx context.Context) (*model.QueryStats, error)
}

// SessionStore tracks live session IDs so a signed token can be revoked before it expires.
type SessionStore interface {
	Save(ctx context.Context, jti string, userID int, ttl time.Duration) error
	Owner(ctx context.Context, jti string) (userID int, ok bool, err error)
	Delete(ctx context.Context, jti string) error
}

// EventPublisher fans moderation events out to admins.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.ModerationEvent) error
}
