package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type ProcessedEventRepository struct {
	db *pgxpool.Pool
}

func NewProcessedEventRepository(db *pgxpool.Pool) *ProcessedEventRepository {
	return &ProcessedEventRepository{
		db: db,
	}
}

// MarkProcessed swallows duplicate inserts; re-marking an event is a no-op.
func (p *ProcessedEventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	query := `INSERT INTO processed_events (event_id) VALUES ($1)
						ON CONFLICT (event_id) DO NOTHING`
	_, err := p.db.Exec(ctx, query, eventID)
	return err
}

func (p *ProcessedEventRepository) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM processed_events WHERE event_id = $1)`
	var exists bool
	if err := p.db.QueryRow(ctx, query, eventID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
