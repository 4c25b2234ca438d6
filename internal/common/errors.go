// Package common — errors.go определяет таксономию ошибок,
// которая используется во всех модулях сервера.
// Эти ошибки позволяют транспорту различать типы проблем
// и отдавать клиенту правильный статус и контекст для повтора.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Ошибки аутентификации
var (
	// ErrUnauthenticated — токен отсутствует, испорчен, просрочен или подпись не сходится
	ErrUnauthenticated = errors.New("не авторизован")
	// ErrTokenMissing — токен не передан
	ErrTokenMissing = fmt.Errorf("%w: токен не передан", ErrUnauthenticated)
	// ErrTokenExpired — срок действия токена истёк
	ErrTokenExpired = fmt.Errorf("%w: токен просрочен", ErrUnauthenticated)
	// ErrTokenInvalid — токен испорчен или подпись неверна
	ErrTokenInvalid = fmt.Errorf("%w: токен недействителен", ErrUnauthenticated)
)

// Ошибки троттлинга
var (
	// ErrRateLimited — превышен лимит запросов в скользящем окне
	ErrRateLimited = errors.New("превышен лимит запросов")
	// ErrCooldownActive — кулдаун между забросами ещё не прошёл
	ErrCooldownActive = errors.New("кулдаун ещё активен")
)

// Ошибки игры и хранилища
var (
	// ErrCatalogEmpty — в каталоге нет ни одного вида с положительной вероятностью
	ErrCatalogEmpty = errors.New("нет доступных видов рыб")
	// ErrStoreUnavailable — хранилище не ответило или вернуло ошибку
	ErrStoreUnavailable = errors.New("хранилище недоступно")
	// ErrStoreTimeout — хранилище не уложилось в таймаут
	ErrStoreTimeout = fmt.Errorf("%w: таймаут", ErrStoreUnavailable)
	// ErrInternal — всё остальное
	ErrInternal = errors.New("внутренняя ошибка")
)

// RateLimitError несёт параметры окна, чтобы клиент знал, когда повторить.
type RateLimitError struct {
	Limit  int
	Window time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: максимум %d запросов за %s", ErrRateLimited, e.Limit, e.Window)
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

// CooldownError несёт оставшееся время кулдауна.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: подождите %.1f с", ErrCooldownActive, e.Remaining.Seconds())
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }

// StoreError оборачивает ошибку хранилища: таймаут отличается от прочих отказов.
// Отмена контекста вызывающим не считается отказом хранилища.
func StoreError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %v", op, ErrStoreTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
}
