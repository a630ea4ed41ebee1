package store

import (
	"context"

	"ledgerpay/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) Create(ctx context.Context, tx Execer, id, displayName string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, display_name)
		VALUES ($1, $2)
	`, id, displayName)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `SELECT id, display_name, created_at FROM users WHERE id = $1`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

// GetByDisplayName runs on q so the resolver can read inside its transaction.
func (s *UserStore) GetByDisplayName(ctx context.Context, q Getter, displayName string) (models.User, error) {
	var row models.User
	err := q.GetContext(ctx, &row, `SELECT id, display_name, created_at FROM users WHERE display_name = $1`, displayName)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}
