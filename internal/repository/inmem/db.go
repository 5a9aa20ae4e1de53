// Package inmemdb provides map-backed stand-ins for the PostgreSQL and Redis
// repositories. They honour the same contracts and are meant for tests.
package inmemdb

import (
	"sync"
	"time"

	"github.com/sistec/enquiry-backend/internal/model"
)

// DB holds all tables behind one lock, which also makes multi-row operations atomic.
type DB struct {
	mu sync.RWMutex

	users    map[int]*model.User
	userSeq  int
	queries  map[int64]*model.Query
	querySeq int64
	sessions map[string]session
	now      func() time.Time
}

type session struct {
	userID    int
	expiresAt time.Time
}

// Open returns an empty database.
func Open() *DB {
	return &DB{
		users:    make(map[int]*model.User),
		queries:  make(map[int64]*model.Query),
		sessions: make(map[string]session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source, letting tests control ordering and expiry.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}
