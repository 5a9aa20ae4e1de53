package inmemdb

import (
	"context"
	"time"
)

type SessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (repo *SessionRepository) Save(_ context.Context, jti string, userID int, ttl time.Duration) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.sessions[jti] = session{userID: userID, expiresAt: repo.db.now().Add(ttl)}
	return nil
}

func (repo *SessionRepository) Owner(_ context.Context, jti string) (int, bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s, ok := repo.db.sessions[jti]
	if !ok || !repo.db.now().Before(s.expiresAt) {
		return 0, false, nil
	}
	return s.userID, true, nil
}

func (repo *SessionRepository) Delete(_ context.Context, jti string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.sessions, jti)
	return nil
}
