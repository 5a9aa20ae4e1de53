package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sistec/enquiry-backend/internal/model"
)

var (
	ErrQueryNotFound   = errors.New("query not found")
	ErrAlreadyAnswered = errors.New("query already answered")
)

const queryColumns = `q.id, q.user_id, q.query_text, q.answer_text, q.status, q.answered_by, q.created_at, q.answered_at`

// QueryRepository is the query ledger: every student question and its answer.
type QueryRepository struct {
	pool *pgxpool.Pool
}

// NewQueryRepository creates a new QueryRepository.
func NewQueryRepository(pool *pgxpool.Pool) *QueryRepository {
	return &QueryRepository{pool: pool}
}

// Append records a new pending question.
func (r *QueryRepository) Append(ctx context.Context, userID int, text string) (*model.Query, error) {
	return scanQuery(r.pool.QueryRow(ctx,
		`INSERT INTO queries AS q (user_id, query_text, status, answered_by)
		 VALUES ($1, $2, 'pending', 'none')
		 RETURNING `+queryColumns,
		userID, text,
	))
}

// AppendFromPrior looks for an earlier answered question with the same text
// (case-insensitive) and, when found, records the new question already answered
// with the copied answer. Lookup and insert share one transaction.
// Returns (nil, nil) when no prior answer exists.
func (r *QueryRepository) AppendFromPrior(ctx context.Context, userID int, text string) (*model.Query, error) {
	var created *model.Query

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var answer string
		var by model.AnsweredBy
		err := tx.QueryRow(ctx,
			`SELECT answer_text, answered_by FROM queries
			 WHERE LOWER(query_text) = LOWER($1) AND status = 'answered'
			 ORDER BY id DESC
			 LIMIT 1`, text,
		).Scan(&answer, &by)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("find prior answer: %w", err)
		}

		created, err = scanQuery(tx.QueryRow(ctx,
			`INSERT INTO queries AS q (user_id, query_text, answer_text, status, answered_by, answered_at)
			 VALUES ($1, $2, $3, 'answered', $4, NOW())
			 RETURNING `+queryColumns,
			userID, text, answer, by,
		))
		if err != nil {
			return fmt.Errorf("insert copied answer: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Resolve answers a pending query. The conditional UPDATE makes concurrent
// resolvers race safely: exactly one wins, the others see ErrAlreadyAnswered.
func (r *QueryRepository) Resolve(ctx context.Context, id int64, answer string, by model.AnsweredBy) (*model.Query, error) {
	q, err := scanQuery(r.pool.QueryRow(ctx,
		`UPDATE queries AS q
		 SET answer_text = $2, answered_by = $3, status = 'answered', answered_at = NOW()
		 WHERE q.id = $1 AND q.status = 'pending'
		 RETURNING `+queryColumns,
		id, answer, by,
	))
	if err == nil {
		return q, nil
	}
	if !errors.Is(err, ErrQueryNotFound) {
		return nil, err
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM queries WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyAnswered
	}
	return nil, ErrQueryNotFound
}

// GetByID retrieves a single query.
func (r *QueryRepository) GetByID(ctx context.Context, id int64) (*model.Query, error) {
	return scanQuery(r.pool.QueryRow(ctx,
		`SELECT `+queryColumns+` FROM queries q WHERE q.id = $1`, id,
	))
}

// ListForUser returns a user's questions, newest first.
func (r *QueryRepository) ListForUser(ctx context.Context, userID int) ([]model.Query, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+queryColumns+` FROM queries q
		 WHERE q.user_id = $1
		 ORDER BY q.created_at DESC, q.id DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queries := []model.Query{}
	for rows.Next() {
		var q model.Query
		if err := rows.Scan(&q.ID, &q.UserID, &q.Text, &q.Answer, &q.Status, &q.AnsweredBy, &q.CreatedAt, &q.AnsweredAt); err != nil {
			return nil, err
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// ListPending returns the moderation queue, oldest first.
func (r *QueryRepository) ListPending(ctx context.Context) ([]model.PendingQuery, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+queryColumns+`, u.display_name, u.email
		 FROM queries q
		 JOIN users u ON u.id = q.user_id
		 WHERE q.status = 'pending'
		 ORDER BY q.created_at ASC, q.id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := []model.PendingQuery{}
	for rows.Next() {
		var p model.PendingQuery
		if err := rows.Scan(&p.ID, &p.UserID, &p.Text, &p.Answer, &p.Status, &p.AnsweredBy, &p.CreatedAt, &p.AnsweredAt,
			&p.UserName, &p.UserEmail); err != nil {
			return nil, err
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// CountPendingForUser returns how many of a user's questions still await an answer.
func (r *QueryRepository) CountPendingForUser(ctx context.Context, userID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM queries WHERE user_id = $1 AND status = 'pending'`, userID,
	).Scan(&n)
	return n, err
}

// Stats aggregates the whole ledger.
func (r *QueryRepository) Stats(ctx context.Context) (*model.QueryStats, error) {
	s := &model.QueryStats{}
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'pending'),
		        COUNT(*) FILTER (WHERE answered_by = 'ai'),
		        COUNT(*) FILTER (WHERE answered_by = 'admin')
		 FROM queries`,
	).Scan(&s.Total, &s.Pending, &s.AnsweredByAI, &s.AnsweredByAdmin)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func scanQuery(row pgx.Row) (*model.Query, error) {
	q := &model.Query{}
	err := row.Scan(&q.ID, &q.UserID, &q.Text, &q.Answer, &q.Status, &q.AnsweredBy, &q.CreatedAt, &q.AnsweredAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQueryNotFound
		}
		return nil, err
	}
	return q, nil
}
