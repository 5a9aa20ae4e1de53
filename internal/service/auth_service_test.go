package service

import (
	"context"
	"testing"
	"time"

	"github.com/sistec/enquiry-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidateSession(t *testing.T) {
	f := newFixture(t)
	auth := f.authService()
	ctx := context.Background()
	u := &model.User{ID: 3, Name: "Ravi", Role: model.RoleStudent}

	token, issued, err := auth.IssueSession(ctx, u)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, 3, claims.UserID)
	assert.Equal(t, model.RoleStudent, claims.Role)
	assert.Equal(t, "Ravi", claims.Name)
	assert.Equal(t, issued.ID, claims.ID)
}

func TestValidateSession_AfterRevoke(t *testing.T) {
	f := newFixture(t)
	auth := f.authService()
	ctx := context.Background()

	token, claims, err := auth.IssueSession(ctx, &model.User{ID: 3, Role: model.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, auth.Revoke(ctx, claims))

	_, err = auth.ValidateSession(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRevoked)

	// The signature alone is still valid.
	_, err = auth.ValidateToken(token)
	assert.NoError(t, err)
}

func TestValidateToken_Rejects(t *testing.T) {
	f := newFixture(t)
	auth := f.authService()

	token, _, err := auth.IssueSession(context.Background(), &model.User{ID: 1, Role: model.RoleStudent})
	require.NoError(t, err)

	other := f.authService()
	other.secret = []byte("another-secret")
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
