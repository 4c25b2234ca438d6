// Package catalog — repository.go читает таблицу fish_species.
package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Repository читает справочник видов из PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий справочника.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListSpecies возвращает все виды рыб.
func (r *Repository) ListSpecies(ctx context.Context) ([]Species, error) {
	query := `
		SELECT id::text, name, rarity, min_weight::float8, max_weight::float8,
		       base_probability::float8, points, COALESCE(description, ''), COALESCE(image_url, '')
		FROM fish_species
		ORDER BY base_probability DESC, name
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения справочника: %w", err)
	}
	defer rows.Close()

	var species []Species
	for rows.Next() {
		var (
			sp     Species
			rarity string
		)
		if err := rows.Scan(
			&sp.ID, &sp.Name, &rarity, &sp.MinWeight, &sp.MaxWeight,
			&sp.BaseProbability, &sp.Points, &sp.Description, &sp.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("ошибка чтения вида: %w", err)
		}
		if sp.Rarity, err = ParseRarity(rarity); err != nil {
			log.WithError(err).WithField("species_id", sp.ID).Warn("Неизвестная редкость, считаем common")
		}
		species = append(species, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения справочника: %w", err)
	}
	return species, nil
}
