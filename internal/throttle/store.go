// Package throttle ограничивает частоту забросов для каждого игрока.
//
// Две независимые ступени: скользящее окно запросов и кулдаун между
// успешными операциями. Состояние живёт в Store, который передаётся
// явно: в памяти процесса для одного инстанса или в Redis для нескольких.
package throttle

import (
	"context"
	"time"
)

// Store хранит состояние троттлинга по игрокам.
// Каждая операция атомарна относительно других операций того же игрока.
type Store interface {
	// Admit выкидывает отметки старше now-window и, если осталось меньше
	// limit, записывает now и пропускает.
	Admit(ctx context.Context, player string, limit int, window time.Duration, now time.Time) (bool, error)

	// Reserve проверяет кулдаун и занимает слот выполняемой операции.
	// Возвращает оставшееся время кулдауна; ноль означает, что слот занят нами.
	Reserve(ctx context.Context, player string, cooldown time.Duration, now time.Time) (time.Duration, error)

	// Arm запоминает успешную операцию и освобождает слот.
	Arm(ctx context.Context, player string, cooldown time.Duration, now time.Time) error

	// Release освобождает слот без запуска кулдауна.
	Release(ctx context.Context, player string) error
}
