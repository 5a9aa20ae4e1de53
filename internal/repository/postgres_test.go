package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/sistec/enquiry-backend/internal/database"
	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPool connects to TEST_DATABASE_URL, migrating it first.
// Tests using it are skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, database.MigrateUp(url, zerolog.Nop()))

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

// testUser creates a user with a unique email and removes it with its queries afterwards.
func testUser(t *testing.T, pool *pgxpool.Pool, name string) *model.User {
	t.Helper()
	ctx := context.Background()
	u := &model.User{
		Name:         name,
		Email:        fmt.Sprintf("repo-test-%d@example.com", time.Now().UnixNano()),
		PasswordHash: "x",
		Role:         model.RoleStudent,
	}
	require.NoError(t, NewUserRepository(pool).Create(ctx, u))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM queries WHERE user_id = $1`, u.ID)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID)
	})
	return u
}

func uniqueText(prefix string) string {
	return fmt.Sprintf("%s %d", prefix, time.Now().UnixNano())
}

func TestUserRepository_Postgres(t *testing.T) {
	pool := testPool(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	u := testUser(t, pool, "Ravi Kumar")
	assert.NotZero(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	got, err := repo.GetByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, model.RoleStudent, got.Role)

	// The unique index is on LOWER(email).
	dup := &model.User{Name: "Other", Email: "REPO-" + u.Email[len("repo-"):], PasswordHash: "x", Role: model.RoleStudent}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateEmail)

	_, err = repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestQueryRepository_ResolveOnce(t *testing.T) {
	pool := testPool(t)
	repo := NewQueryRepository(pool)
	ctx := context.Background()
	u := testUser(t, pool, "Ravi Kumar")

	q, err := repo.Append(ctx, u.ID, "Is there a hostel?")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, q.Status)
	assert.Equal(t, model.AnsweredByNone, q.AnsweredBy)
	assert.Nil(t, q.Answer)

	resolved, err := repo.Resolve(ctx, q.ID, "Yes, two blocks.", model.AnsweredByAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnswered, resolved.Status)
	require.NotNil(t, resolved.AnsweredAt)

	_, err = repo.Resolve(ctx, q.ID, "Changed", model.AnsweredByAI)
	assert.ErrorIs(t, err, ErrAlreadyAnswered)

	stored, err := repo.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "Yes, two blocks.", *stored.Answer)
	assert.Equal(t, model.AnsweredByAdmin, stored.AnsweredBy)

	_, err = repo.Resolve(ctx, -1, "x", model.AnsweredByAdmin)
	assert.ErrorIs(t, err, ErrQueryNotFound)
}

func TestQueryRepository_ConcurrentResolve(t *testing.T) {
	pool := testPool(t)
	repo := NewQueryRepository(pool)
	ctx := context.Background()
	u := testUser(t, pool, "Ravi Kumar")

	q, err := repo.Append(ctx, u.ID, "Bus timings?")
	require.NoError(t, err)

	const resolvers = 8
	var wg sync.WaitGroup
	errs := make(chan error, resolvers)
	for i := 0; i < resolvers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.Resolve(ctx, q.ID, fmt.Sprintf("answer %d", i), model.AnsweredByAdmin)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyAnswered)
	}
	assert.Equal(t, 1, wins)
}

func TestQueryRepository_AppendFromPrior(t *testing.T) {
	pool := testPool(t)
	repo := NewQueryRepository(pool)
	ctx := context.Background()
	first := testUser(t, pool, "Ravi Kumar")
	second := testUser(t, pool, "Asha Verma")
	text := uniqueText("What is the hostel fee?")

	none, err := repo.AppendFromPrior(ctx, second.ID, text)
	require.NoError(t, err)
	assert.Nil(t, none)

	q, err := repo.Append(ctx, first.ID, text)
	require.NoError(t, err)
	_, err = repo.Resolve(ctx, q.ID, "INR 60,000 per year.", model.AnsweredByAI)
	require.NoError(t, err)

	copied, err := repo.AppendFromPrior(ctx, second.ID, "  "+text)
	require.NoError(t, err)
	assert.Nil(t, copied, "lookup matches the exact text, ignoring case only")

	copied, err = repo.AppendFromPrior(ctx, second.ID, strings.ToUpper(text))
	require.NoError(t, err)
	require.NotNil(t, copied)
	assert.NotEqual(t, q.ID, copied.ID)
	assert.Equal(t, second.ID, copied.UserID)
	assert.Equal(t, model.StatusAnswered, copied.Status)
	assert.Equal(t, model.AnsweredByAI, copied.AnsweredBy)
	assert.Equal(t, "INR 60,000 per year.", *copied.Answer)
}

func TestQueryRepository_Listings(t *testing.T) {
	pool := testPool(t)
	repo := NewQueryRepository(pool)
	ctx := context.Background()
	u := testUser(t, pool, "Ravi Kumar")

	older, err := repo.Append(ctx, u.ID, "first")
	require.NoError(t, err)
	newer, err := repo.Append(ctx, u.ID, "second")
	require.NoError(t, err)

	mine, err := repo.ListForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, newer.ID, mine[0].ID)
	assert.Equal(t, older.ID, mine[1].ID)

	n, err := repo.CountPendingForUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	pending, err := repo.ListPending(ctx)
	require.NoError(t, err)
	var ids []int64
	for _, p := range pending {
		if p.UserID == u.ID {
			ids = append(ids, p.ID)
			assert.Equal(t, "Ravi Kumar", p.UserName)
			assert.Equal(t, u.Email, p.UserEmail)
		}
	}
	assert.Equal(t, []int64{older.ID, newer.ID}, ids)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.Pending, 2)
}
