package repositories

import (
	"context"

	"auction-house/internal/domain"
)

type UserRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	// UpsertUser records the identity projection of an authenticated user.
	UpsertUser(ctx context.Context, user *domain.User) error
}
