// Package fishing — repository.go работает с таблицами catches и players.
// Сохранение улова выполняется в одной транзакции БД.
package fishing

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/fishing-server/internal/features/catalog"
)

// Repository хранит уловы в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий уловов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// BestWeight возвращает лучший вес игрока для вида.
func (r *Repository) BestWeight(ctx context.Context, playerID, speciesID string) (float64, bool, error) {
	query := `
		SELECT MAX(weight)::float8
		FROM catches
		WHERE player_id = $1 AND fish_species_id = $2::uuid
	`
	var best *float64
	if err := r.db.QueryRow(ctx, query, playerID, speciesID).Scan(&best); err != nil {
		return 0, false, fmt.Errorf("ошибка чтения рекорда: %w", err)
	}
	if best == nil {
		return 0, false, nil
	}
	return *best, true, nil
}

// InsertCatch сохраняет улов.
//
// Одновременные забросы одной пары игрок+вид сериализуются advisory-блокировкой
// транзакции, рекорд пересчитывается уже под ней. Частичный уникальный индекс
// uq_catches_personal_best страхует инвариант «один рекорд на пару».
func (r *Repository) InsertCatch(ctx context.Context, c NewCatch) (*Catch, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`,
		c.PlayerID, c.SpeciesID,
	); err != nil {
		return nil, fmt.Errorf("ошибка блокировки: %w", err)
	}

	var best *float64
	err = tx.QueryRow(ctx, `
		SELECT MAX(weight)::float8 FROM catches
		WHERE player_id = $1 AND fish_species_id = $2::uuid
	`, c.PlayerID, c.SpeciesID).Scan(&best)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения рекорда: %w", err)
	}
	isBest := best == nil || c.Weight > *best

	if isBest {
		_, err = tx.Exec(ctx, `
			UPDATE catches SET is_personal_best = FALSE
			WHERE player_id = $1 AND fish_species_id = $2::uuid AND is_personal_best
		`, c.PlayerID, c.SpeciesID)
		if err != nil {
			return nil, fmt.Errorf("ошибка сброса рекорда: %w", err)
		}
	}

	// Счётчики игрока (и сама строка игрока при первом улове)
	_, err = tx.Exec(ctx, `
		INSERT INTO players (player_id, total_catches, total_points)
		VALUES ($1, 1, $2)
		ON CONFLICT (player_id) DO UPDATE SET
			total_catches = players.total_catches + 1,
			total_points = players.total_points + EXCLUDED.total_points,
			updated_at = NOW()
	`, c.PlayerID, c.Points)
	if err != nil {
		return nil, fmt.Errorf("ошибка обновления игрока: %w", err)
	}

	saved := Catch{
		PlayerID:       c.PlayerID,
		SpeciesID:      c.SpeciesID,
		Weight:         c.Weight,
		IsPersonalBest: isBest,
		PointsEarned:   c.Points,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO catches (player_id, fish_species_id, weight, is_personal_best, points_earned)
		VALUES ($1, $2::uuid, $3, $4, $5)
		RETURNING id::text, caught_at
	`, c.PlayerID, c.SpeciesID, c.Weight, isBest, c.Points).Scan(&saved.ID, &saved.CaughtAt)
	if err != nil {
		return nil, fmt.Errorf("ошибка записи улова: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации улова: %w", err)
	}
	return &saved, nil
}

// RecentCatches возвращает последние уловы игрока вместе с видом.
func (r *Repository) RecentCatches(ctx context.Context, playerID string, limit int) ([]CatchView, error) {
	query := `
		SELECT c.id::text, c.player_id, c.fish_species_id::text, c.weight::float8,
		       c.caught_at, c.is_personal_best, c.points_earned, s.name, s.rarity
		FROM catches c
		JOIN fish_species s ON s.id = c.fish_species_id
		WHERE c.player_id = $1
		ORDER BY c.caught_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения уловов: %w", err)
	}
	defer rows.Close()

	var out []CatchView
	for rows.Next() {
		var (
			v      CatchView
			rarity string
		)
		if err := rows.Scan(
			&v.ID, &v.PlayerID, &v.SpeciesID, &v.Weight,
			&v.CaughtAt, &v.IsPersonalBest, &v.PointsEarned, &v.SpeciesName, &rarity,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения улова: %w", err)
		}
		if v.Rarity, err = catalog.ParseRarity(rarity); err != nil {
			log.WithError(err).WithField("catch_id", v.ID).Warn("Неизвестная редкость в истории")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
