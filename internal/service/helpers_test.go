package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/config"
	"github.com/sistec/enquiry-backend/internal/model"
	inmemdb "github.com/sistec/enquiry-backend/internal/repository/inmem"
	"golang.org/x/crypto/bcrypt"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.ModerationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev model.ModerationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []model.ModerationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ModerationEvent(nil), p.events...)
}

type fixture struct {
	db       *inmemdb.DB
	users    *inmemdb.UserRepository
	queries  *inmemdb.QueryRepository
	sessions *inmemdb.SessionRepository
	events   *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := openDB(t)
	return &fixture{
		db:       db,
		users:    inmemdb.NewUserRepository(db),
		queries:  inmemdb.NewQueryRepository(db),
		sessions: inmemdb.NewSessionRepository(db),
		events:   &recordingPublisher{},
	}
}

// openDB returns an in-memory database whose clock moves forward a second per read.
func openDB(t *testing.T) *inmemdb.DB {
	t.Helper()
	db := inmemdb.Open()
	var mu sync.Mutex
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})
	return db
}

func (f *fixture) userService() *UserService {
	return NewUserService(f.users, bcrypt.MinCost)
}

func (f *fixture) authService() *AuthService {
	return NewAuthService(&config.Config{SessionSecret: "test-secret", SessionTTL: time.Hour}, f.sessions)
}

func (f *fixture) moderation(policy string) *ModerationService {
	return NewModerationService(f.queries, f.events, policy, zerolog.Nop())
}
