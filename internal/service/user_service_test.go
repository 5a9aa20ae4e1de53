package service

import (
	"context"
	"strings"
	"testing"

	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/sistec/enquiry-backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerStudent(t *testing.T, s *UserService, email string) *model.User {
	t.Helper()
	u, err := s.Register(context.Background(), model.RegisterRequest{
		Name:     "Ravi Kumar",
		Email:    email,
		Password: "secret123",
		Mobile:   "9876543210",
		Address:  "Bhopal",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterThenAuthenticate(t *testing.T) {
	f := newFixture(t)
	s := f.userService()

	u := registerStudent(t, s, "  Ravi@Example.com ")
	assert.Equal(t, "ravi@example.com", u.Email)
	assert.Equal(t, model.RoleStudent, u.Role)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	got, err := s.Authenticate(context.Background(), "RAVI@example.com", "secret123", model.RoleStudent)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	f := newFixture(t)
	s := f.userService()
	registerStudent(t, s, "ravi@example.com")

	_, err := s.Register(context.Background(), model.RegisterRequest{
		Name: "Other", Email: "RAVI@example.com", Password: "another1",
	})

	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
	assert.Equal(t, 1, f.users.Count())
}

func TestRegister_MissingField(t *testing.T) {
	f := newFixture(t)
	_, err := f.userService().Register(context.Background(), model.RegisterRequest{
		Name: "  ", Email: "x@example.com", Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Zero(t, f.users.Count())
}

func TestAuthenticate_SameErrorForEveryFailure(t *testing.T) {
	f := newFixture(t)
	s := f.userService()
	registerStudent(t, s, "ravi@example.com")
	ctx := context.Background()

	_, unknown := s.Authenticate(ctx, "nobody@example.com", "secret123", model.RoleStudent)
	_, wrongPass := s.Authenticate(ctx, "ravi@example.com", "wrong", model.RoleStudent)
	_, wrongRole := s.Authenticate(ctx, "ravi@example.com", "secret123", model.RoleAdmin)

	for _, err := range []error{unknown, wrongPass, wrongRole} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, ErrInvalidCredentials.Error(), err.Error())
	}
}

func TestCreateAdmin(t *testing.T) {
	f := newFixture(t)
	s := f.userService()

	admin, err := s.Create(context.Background(), NewUser{
		Name: "Office", Email: "office@example.com", Password: "adminpass", Role: model.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)

	_, err = s.Authenticate(context.Background(), "office@example.com", "adminpass", model.RoleAdmin)
	assert.NoError(t, err)
}

func TestCreate_PasswordLimitIsBytes(t *testing.T) {
	f := newFixture(t)
	s := f.userService()

	_, err := s.Create(context.Background(), NewUser{
		Name: "Ravi", Email: "ravi@example.com", Password: strings.Repeat("é", 40),
	})
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Zero(t, f.users.Count())

	_, err = s.Create(context.Background(), NewUser{
		Name: "Ravi", Email: "ravi@example.com", Password: strings.Repeat("a", MaxPasswordBytes),
	})
	assert.NoError(t, err)
}

func TestCreate_NULRejected(t *testing.T) {
	f := newFixture(t)
	s := f.userService()

	for _, nu := range []NewUser{
		{Name: "Ravi\x00", Email: "a@example.com", Password: "secret123"},
		{Name: "Ravi", Email: "b@example.com", Password: "secret123", Address: "Bhopal\x00"},
		{Name: "Ravi", Email: "c@example.com", Password: "secret123", Mobile: "98\x00"},
	} {
		_, err := s.Create(context.Background(), nu)
		assert.ErrorIs(t, err, ErrInvalidText)
	}
	assert.Zero(t, f.users.Count())
}
