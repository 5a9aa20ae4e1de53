package inmemdb

import (
	"context"
	"strings"

	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (repo *UserRepository) Create(_ context.Context, u *model.User) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repository.ErrDuplicateEmail
		}
	}

	repo.db.userSeq++
	u.ID = repo.db.userSeq
	u.CreatedAt = repo.db.now()
	stored := *u
	repo.db.users[u.ID] = &stored
	return nil
}

func (repo *UserRepository) GetByID(_ context.Context, id int) (*model.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if u, ok := repo.db.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, repository.ErrUserNotFound
}

func (repo *UserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, u := range repo.db.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// Count returns the number of stored users.
func (repo *UserRepository) Count() int {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.users)
}
