package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"auction-house/internal/auth"
	"auction-house/internal/domain"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type memUsers struct {
	users map[string]*domain.User
	err   error
}

func (m *memUsers) GetUser(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrNotFound
}

func (m *memUsers) UpsertUser(_ context.Context, user *domain.User) error {
	if m.err != nil {
		return m.err
	}
	m.users[user.ID] = user
	return nil
}

func serve(t *testing.T, a *Authenticator, header string) (*httptest.ResponseRecorder, *domain.User) {
	t.Helper()
	e := echo.New()
	var seen *domain.User
	e.GET("/me", func(c echo.Context) error {
		seen = CurrentUser(c)
		return c.NoContent(http.StatusOK)
	}, a.RequireUser())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireUserAcceptsValidToken(t *testing.T) {
	users := &memUsers{users: map[string]*domain.User{}}
	a := NewAuthenticator(secret, users, logger.NewNop())

	token, err := auth.GenerateToken(secret, "u1", "alice", time.Hour)
	require.NoError(t, err)

	rec, user := serve(t, a, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, &domain.User{ID: "u1", Username: "alice"}, user)
	require.Contains(t, users.users, "u1")
}

func TestRequireUserRejects(t *testing.T) {
	users := &memUsers{users: map[string]*domain.User{}}
	a := NewAuthenticator(secret, users, logger.NewNop())

	forged, err := auth.GenerateToken("other-secret", "u1", "alice", time.Hour)
	require.NoError(t, err)
	expired, err := auth.GenerateToken(secret, "u1", "alice", -time.Minute)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing": "",
		"scheme":  "Basic dXNlcjpwYXNz",
		"forged":  "Bearer " + forged,
		"expired": "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			rec, user := serve(t, a, header)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			require.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
			require.Nil(t, user)
		})
	}
	require.Empty(t, users.users)
}

func TestAuthenticateFailsWhenUserCannotBeRecorded(t *testing.T) {
	users := &memUsers{users: map[string]*domain.User{}, err: errors.New("db down")}
	a := NewAuthenticator(secret, users, logger.NewNop())

	token, err := auth.GenerateToken(secret, "u1", "alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+token, nil)
	_, err = a.Authenticate(req)
	require.ErrorContains(t, err, "db down")
}

func TestRequireUserReportsStoreFailureAsServerError(t *testing.T) {
	users := &memUsers{
		users: map[string]*domain.User{},
		err:   fmt.Errorf("%w: upserting user u1: database is locked", domain.ErrPersistence),
	}
	a := NewAuthenticator(secret, users, logger.NewNop())

	token, err := auth.GenerateToken(secret, "u1", "alice", time.Hour)
	require.NoError(t, err)

	rec, user := serve(t, a, "Bearer "+token)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	require.Nil(t, user)
}
