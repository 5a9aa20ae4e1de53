package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
)

type QueryRepository struct {
	db *DB
}

func NewQueryRepository(db *DB) *QueryRepository {
	return &QueryRepository{db: db}
}

func (repo *QueryRepository) Append(_ context.Context, userID int, text string) (*model.Query, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	return repo.insert(userID, text, nil, model.StatusPending, model.AnsweredByNone), nil
}

func (repo *QueryRepository) AppendFromPrior(_ context.Context, userID int, text string) (*model.Query, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var prior *model.Query
	for _, q := range repo.db.queries {
		if q.Status != model.StatusAnswered || !strings.EqualFold(q.Text, text) {
			continue
		}
		if prior == nil || q.ID > prior.ID {
			prior = q
		}
	}
	if prior == nil {
		return nil, nil
	}

	answer := *prior.Answer
	return repo.insert(userID, text, &answer, model.StatusAnswered, prior.AnsweredBy), nil
}

func (repo *QueryRepository) Resolve(_ context.Context, id int64, answer string, by model.AnsweredBy) (*model.Query, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	q, ok := repo.db.queries[id]
	if !ok {
		return nil, repository.ErrQueryNotFound
	}
	if q.Status != model.StatusPending {
		return nil, repository.ErrAlreadyAnswered
	}

	now := repo.db.now()
	q.Answer = &answer
	q.Status = model.StatusAnswered
	q.AnsweredBy = by
	q.AnsweredAt = &now
	return copyQuery(q), nil
}

func (repo *QueryRepository) GetByID(_ context.Context, id int64) (*model.Query, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if q, ok := repo.db.queries[id]; ok {
		return copyQuery(q), nil
	}
	return nil, repository.ErrQueryNotFound
}

func (repo *QueryRepository) ListForUser(_ context.Context, userID int) ([]model.Query, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := []model.Query{}
	for _, q := range repo.db.queries {
		if q.UserID == userID {
			out = append(out, *copyQuery(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (repo *QueryRepository) ListPending(_ context.Context) ([]model.PendingQuery, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	out := []model.PendingQuery{}
	for _, q := range repo.db.queries {
		if q.Status != model.StatusPending {
			continue
		}
		p := model.PendingQuery{Query: *copyQuery(q)}
		if u, ok := repo.db.users[q.UserID]; ok {
			p.UserName = u.Name
			p.UserEmail = u.Email
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (repo *QueryRepository) CountPendingForUser(_ context.Context, userID int) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	n := 0
	for _, q := range repo.db.queries {
		if q.UserID == userID && q.Status == model.StatusPending {
			n++
		}
	}
	return n, nil
}

func (repo *QueryRepository) Stats(_ context.Context) (*model.QueryStats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	s := &model.QueryStats{Total: len(repo.db.queries)}
	for _, q := range repo.db.queries {
		switch {
		case q.Status == model.StatusPending:
			s.Pending++
		case q.AnsweredBy == model.AnsweredByAI:
			s.AnsweredByAI++
		case q.AnsweredBy == model.AnsweredByAdmin:
			s.AnsweredByAdmin++
		}
	}
	return s, nil
}

// insert must be called with the write lock held.
func (repo *QueryRepository) insert(userID int, text string, answer *string, status model.QueryStatus, by model.AnsweredBy) *model.Query {
	repo.db.querySeq++
	now := repo.db.now()
	q := &model.Query{
		ID:         repo.db.querySeq,
		UserID:     userID,
		Text:       text,
		Answer:     answer,
		Status:     status,
		AnsweredBy: by,
		CreatedAt:  now,
	}
	if answer != nil {
		q.AnsweredAt = &now
	}
	repo.db.queries[q.ID] = q
	return copyQuery(q)
}

func copyQuery(q *model.Query) *model.Query {
	cp := *q
	if q.Answer != nil {
		a := *q.Answer
		cp.Answer = &a
	}
	if q.AnsweredAt != nil {
		t := *q.AnsweredAt
		cp.AnsweredAt = &t
	}
	return &cp
}
