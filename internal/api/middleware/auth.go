package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"auction-house/internal/auth"
	"auction-house/internal/domain"
	"auction-house/internal/domain/repositories"
	"auction-house/pkg/logger"

	"github.com/labstack/echo/v4"
)

const userContextKey = "auction.user"

// Authenticator validates bearer tokens and keeps the local user projection
// in step with the token's claims.
type Authenticator struct {
	secret string
	users  repositories.UserRepository
	log    logger.Logger
}

func NewAuthenticator(secret string, users repositories.UserRepository, log logger.Logger) *Authenticator {
	return &Authenticator{secret: secret, users: users, log: log}
}

// Authenticate resolves the user behind r. It is also the websocket
// handshake authenticator.
func (a *Authenticator) Authenticate(r *http.Request) (*domain.User, error) {
	token, err := auth.TokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	claims, err := auth.ValidateToken(a.secret, token)
	if err != nil {
		return nil, err
	}

	user := claims.User()
	if err := a.users.UpsertUser(r.Context(), user); err != nil {
		return nil, fmt.Errorf("recording user %s: %w", user.ID, err)
	}
	return user, nil
}

// RequireUser rejects requests without a valid token with 401. A token that
// is valid but cannot be recorded is a server fault and gets 500.
func (a *Authenticator) RequireUser() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := a.Authenticate(c.Request())
			if errors.Is(err, domain.ErrPersistence) {
				a.log.Error("Failed to record user", "path", c.Path(), "error", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
			if err != nil {
				a.log.Info("Rejected request", "path", c.Path(), "error", err)
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user RequireUser stored on c, or nil.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}
