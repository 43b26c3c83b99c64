package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"auction-house/internal/domain"
	"auction-house/internal/domain/repositories"
)

type SQLUserRepository struct {
	db      *sql.DB
	dialect Dialect
}

var _ repositories.UserRepository = (*SQLUserRepository)(nil)

func NewSQLUserRepository(db *sql.DB, dialect Dialect) *SQLUserRepository {
	return &SQLUserRepository{db: db, dialect: dialect}
}

func (r *SQLUserRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return getUser(ctx, r.db, userID)
}

func (r *SQLUserRepository) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `INSERT INTO users (id, username) VALUES (?, ?)
        ON CONFLICT (id) DO UPDATE SET username = excluded.username`
	if r.dialect.Name == MySQL.Name {
		query = `INSERT INTO users (id, username) VALUES (?, ?)
        ON DUPLICATE KEY UPDATE username = VALUES(username)`
	}
	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username); err != nil {
		return fmt.Errorf("%w: upserting user %s: %w", domain.ErrPersistence, user.ID, err)
	}
	return nil
}

func getUser(ctx context.Context, q querier, userID string) (*domain.User, error) {
	var user domain.User
	err := q.QueryRowContext(ctx, `SELECT id, username FROM users WHERE id = ?`, userID).
		Scan(&user.ID, &user.Username)
	if err != nil {
		return nil, wrapLookup(err, "user", userID)
	}
	return &user, nil
}
