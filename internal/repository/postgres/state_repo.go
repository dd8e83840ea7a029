package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StateRepository struct {
	db *pgxpool.Pool
}

func NewStateRepository(db *pgxpool.Pool) *StateRepository {
	return &StateRepository{
		db: db,
	}
}

func (s *StateRepository) Get(ctx context.Context, key string) (string, error) {
	query := `SELECT value FROM bot_state WHERE key = $1`
	var value string
	err := s.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *StateRepository) Set(ctx context.Context, key, value string) error {
	query := `INSERT INTO bot_state (key, value, updated_at) VALUES ($1, $2, now())
						ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	_, err := s.db.Exec(ctx, query, key, value)
	return err
}
