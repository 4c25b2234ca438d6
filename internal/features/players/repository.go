// Package players — repository.go читает таблицу players.
package players

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// PlayerStats: если игрока нет — found=false без ошибки.
func (r *Repository) PlayerStats(ctx context.Context, playerID string) (*Stats, bool, error) {
	query := `
		SELECT player_id, total_catches, total_points, created_at
		FROM players
		WHERE player_id = $1
	`
	var s Stats
	err := r.db.QueryRow(ctx, query, playerID).Scan(
		&s.PlayerID, &s.TotalCatches, &s.TotalPoints, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ошибка чтения игрока (player_id=%s): %w", playerID, err)
	}
	return &s, true, nil
}
