// Package admin — операторские действия над сервером.
// Сейчас это одно действие: принудительно перечитать справочник видов.
// Доступ по паролю (Argon2id), с защитой от перебора.
package admin

import (
	"errors"
	"time"
)

var (
	// ErrDisabled — ADMIN_PASSWORD_HASH не задан
	ErrDisabled = errors.New("админ-доступ отключён")
	// ErrWrongPassword — пароль не подошёл
	ErrWrongPassword = errors.New("неверный пароль")
	// ErrTooManyAttempts — слишком много неудачных попыток
	ErrTooManyAttempts = errors.New("слишком много попыток, подождите")
)

// Параметры защиты от перебора: 3 неудачные попытки = блокировка на час.
const (
	MaxFailedAttempts = 3
	AttemptsPeriod    = time.Hour
)

// LoginAttempt — попытка входа.
type LoginAttempt struct {
	ID          int64     `db:"id"`
	Client      string    `db:"client"` // IP клиента
	AttemptTime time.Time `db:"attempt_time"`
	Success     bool      `db:"success"`
}

// RefreshResult — итог перечитывания справочника.
type RefreshResult struct {
	Species  int       `json:"species"`
	LoadedAt time.Time `json:"loaded_at"`
}
