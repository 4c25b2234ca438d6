// Package admin — repository.go работает с таблицей admin_login_attempts.
package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository хранит попытки входа в PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// LogAttempt записывает попытку входа.
func (r *Repository) LogAttempt(ctx context.Context, client string, success bool) error {
	query := `INSERT INTO admin_login_attempts (client, success) VALUES ($1, $2)`
	if _, err := r.db.Exec(ctx, query, client, success); err != nil {
		return fmt.Errorf("ошибка записи попытки входа: %w", err)
	}
	return nil
}

// RecentFailures возвращает количество неудачных попыток за период.
func (r *Repository) RecentFailures(ctx context.Context, client string, period time.Duration) (int, error) {
	since := time.Now().Add(-period)
	query := `
		SELECT COUNT(*) FROM admin_login_attempts
		WHERE client = $1 AND attempt_time > $2 AND success = FALSE
	`
	var count int
	if err := r.db.QueryRow(ctx, query, client, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта попыток: %w", err)
	}
	return count, nil
}
